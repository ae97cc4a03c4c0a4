package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsCreated  *prometheus.CounterVec
	assignmentsTotal *prometheus.CounterVec
	backlogSize      prometheus.Gauge
	runDuration      prometheus.Histogram
	notifySuccess    prometheus.Counter
	notifyFailure    prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Gauge, prometheus.Histogram, prometheus.Counter, prometheus.Counter) {
	created := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emergency_requests_created_total",
			Help: "Number of emergency requests created, by initial status",
		},
		[]string{"status"},
	)
	assigned := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ambulance_assignments_total",
			Help: "Number of ambulance assignments, by source",
		},
		[]string{"source"},
	)
	backlog := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pending_requests",
			Help: "Number of requests currently waiting for a unit",
		},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "request_run_duration_seconds",
			Help:    "Duration of completed runs from assignment to completion",
			Buckets: prometheus.ExponentialBuckets(30, 2, 10),
		},
	)
	suc := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driver_notify_success_total",
			Help: "Number of dispatch orders successfully published to drivers",
		},
	)
	fail := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "driver_notify_failure_total",
			Help: "Number of dispatch orders that failed to publish",
		},
	)
	return created, assigned, backlog, duration, suc, fail
}

func init() {
	requestsCreated, assignmentsTotal, backlogSize, runDuration, notifySuccess, notifyFailure = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(requestsCreated, assignmentsTotal, backlogSize, runDuration, notifySuccess, notifyFailure)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	requestsCreated, assignmentsTotal, backlogSize, runDuration, notifySuccess, notifyFailure = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
