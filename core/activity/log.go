package activity

import (
	"sync"
	"time"
)

// Entry is one recorded dispatch lifecycle event.
type Entry struct {
	Time        time.Time `json:"time"`
	Kind        string    `json:"kind"`
	RequestID   int64     `json:"request_id,omitempty"`
	AmbulanceID int64     `json:"ambulance_id,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

// Entry kinds.
const (
	KindQueued        = "queued"
	KindAssigned      = "assigned"
	KindDrained       = "drained"
	KindCompleted     = "completed"
	KindStatusChanged = "status_changed"
)

// Query filters log entries.
type Query struct {
	Kind  string
	Since time.Time
	Limit int
}

// Log is a bounded in-memory activity log. When full, the oldest entries
// are discarded.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	cap     int
}

// NewLog creates a Log keeping at most capacity entries.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Log{cap: capacity}
}

// Append records an entry.
func (l *Log) Append(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
	l.mu.Unlock()
}

// Query returns matching entries in insertion order.
func (l *Log) Query(q Query) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		if q.Kind != "" && e.Kind != q.Kind {
			continue
		}
		if !q.Since.IsZero() && e.Time.Before(q.Since) {
			continue
		}
		out = append(out, e)
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[len(out)-q.Limit:]
	}
	return out
}

// Len returns the number of stored entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
