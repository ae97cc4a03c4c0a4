package metrics

import "time"

// EventKind classifies a dispatch lifecycle event.
type EventKind string

const (
	EventAssigned  EventKind = "assigned"
	EventQueued    EventKind = "queued"
	EventCompleted EventKind = "completed"
	EventDrained   EventKind = "drained"
)

// DispatchEvent represents one dispatch decision to be recorded.
type DispatchEvent struct {
	Kind        EventKind
	RequestID   int64
	AmbulanceID int64 // zero when no unit is involved
	UserID      int64
	Time        time.Time
}

// MetricsSink records dispatch events for observability purposes.
type MetricsSink interface {
	RecordDispatchEvent(ev DispatchEvent) error
}

// NotificationEvent captures the outcome of a driver notification.
type NotificationEvent struct {
	OrderID      string
	AmbulanceID  int64
	RequestID    int64
	Acknowledged bool
	Latency      time.Duration
	Error        string
	Time         time.Time
}

// NotificationRecorder records driver notification outcomes.
type NotificationRecorder interface {
	RecordNotification(ev NotificationEvent) error
}

// BacklogRecorder records the size of the PENDING backlog after a dispatch
// operation commits.
type BacklogRecorder interface {
	RecordBacklogSize(n int) error
}

// RunDurationRecorder records the duration of a completed run.
type RunDurationRecorder interface {
	RecordRunDuration(d time.Duration) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDispatchEvent(DispatchEvent) error    { return nil }
func (NopSink) RecordNotification(NotificationEvent) error { return nil }
func (NopSink) RecordBacklogSize(int) error                { return nil }
func (NopSink) RecordRunDuration(time.Duration) error      { return nil }

// Config defines settings for metrics sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    string `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusPort == "" {
		c.PrometheusPort = ":9090"
	}
}
