package metrics

import (
	"time"

	coremetrics "github.com/campus-safety/dispatch/core/metrics"
)

// MultiSink fans dispatch events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDispatchEvent forwards the event to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordDispatchEvent(ev coremetrics.DispatchEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordDispatchEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordNotification forwards notification outcomes.
func (m *MultiSink) RecordNotification(ev coremetrics.NotificationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.NotificationRecorder); ok {
			if err := rec.RecordNotification(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordBacklogSize forwards the backlog gauge value.
func (m *MultiSink) RecordBacklogSize(n int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.BacklogRecorder); ok {
			if err := rec.RecordBacklogSize(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRunDuration forwards run durations.
func (m *MultiSink) RecordRunDuration(d time.Duration) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.RunDurationRecorder); ok {
			if err := rec.RecordRunDuration(d); err != nil {
				return err
			}
		}
	}
	return nil
}
