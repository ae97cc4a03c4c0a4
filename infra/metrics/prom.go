package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/campus-safety/dispatch/core/metrics"
)

// PromSink records dispatch events in Prometheus metrics.
type PromSink struct {
	events        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	ackLatency    prometheus.Histogram
	backlog       prometheus.Gauge
}

// NewPromSink registers dispatch metrics on the default Prometheus
// registerer. The Prometheus server is started separately via
// StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_events_total",
		Help: "Total number of dispatch lifecycle events",
	}, []string{"kind"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "driver_notifications_total",
		Help: "Driver notification outcomes",
	}, []string{"acknowledged"})
	ackLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "driver_ack_latency_seconds",
		Help:    "Time between order publish and driver acknowledgment",
		Buckets: prometheus.DefBuckets,
	})
	backlog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_backlog_size",
		Help: "Number of PENDING requests waiting for a unit",
	})

	if err := reg.Register(events); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			events = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(notifications); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			notifications = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(ackLatency); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			ackLatency = are.ExistingCollector.(prometheus.Histogram)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(backlog); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			backlog = are.ExistingCollector.(prometheus.Gauge)
		} else {
			return nil, err
		}
	}

	return &PromSink{events: events, notifications: notifications, ackLatency: ackLatency, backlog: backlog}, nil
}

// RecordDispatchEvent increments the counter for the event kind.
func (s *PromSink) RecordDispatchEvent(ev coremetrics.DispatchEvent) error {
	s.events.WithLabelValues(string(ev.Kind)).Inc()
	return nil
}

// RecordNotification counts the notification outcome and observes the ack
// latency.
func (s *PromSink) RecordNotification(ev coremetrics.NotificationEvent) error {
	s.notifications.WithLabelValues(strconv.FormatBool(ev.Acknowledged)).Inc()
	if ev.Acknowledged {
		s.ackLatency.Observe(ev.Latency.Seconds())
	}
	return nil
}

// RecordBacklogSize sets the backlog gauge.
func (s *PromSink) RecordBacklogSize(n int) error {
	s.backlog.Set(float64(n))
	return nil
}

// RecordRunDuration is covered by the engine-level histogram; the method
// exists so the sink satisfies the full recorder surface under MultiSink.
func (s *PromSink) RecordRunDuration(time.Duration) error { return nil }
