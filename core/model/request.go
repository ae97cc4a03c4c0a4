package model

import (
	"fmt"
	"time"
)

// RequestStatus defines the lifecycle state of an emergency request.
type RequestStatus int

const (
	RequestPending RequestStatus = iota
	RequestAssigned
	RequestCompleted
)

// Priority is recorded at intake for triage display. Assignment order is
// strictly FIFO regardless of priority.
type Priority int

const (
	PriorityMedium Priority = iota
	PriorityHigh
	PriorityLow
)

// EmergencyRequest represents one call for an ambulance.
//
// The request owns a one-directional reference to its unit: AmbulanceID is
// nil exactly while the request is PENDING. StartTime is stamped when a unit
// is dispatched, EndTime when the run completes.
type EmergencyRequest struct {
	ID             int64         `json:"id"`
	UserID         int64         `json:"user_id"`
	AmbulanceID    *int64        `json:"ambulance_id,omitempty"`
	Status         RequestStatus `json:"status"`
	Priority       Priority      `json:"priority"`
	PatientDetails string        `json:"patient_details"`
	Destination    string        `json:"destination"`
	RequestTime    time.Time     `json:"request_time"`
	StartTime      *time.Time    `json:"start_time,omitempty"`
	EndTime        *time.Time    `json:"end_time,omitempty"`
}

// Duration returns the run duration when both timestamps are set.
func (r EmergencyRequest) Duration() (time.Duration, bool) {
	if r.StartTime == nil || r.EndTime == nil {
		return 0, false
	}
	return r.EndTime.Sub(*r.StartTime), true
}

// String returns a human-readable representation of the status.
func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "PENDING"
	case RequestAssigned:
		return "ASSIGNED"
	case RequestCompleted:
		return "COMPLETED"
	default:
		return "unknown"
	}
}

// ParseRequestStatus converts the wire representation back to a status.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch s {
	case "PENDING":
		return RequestPending, nil
	case "ASSIGNED":
		return RequestAssigned, nil
	case "COMPLETED":
		return RequestCompleted, nil
	default:
		return 0, fmt.Errorf("unknown request status %q", s)
	}
}

// MarshalJSON encodes the status as its string form.
func (s RequestStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes the string form, rejecting unknown values.
func (s *RequestStatus) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("request status must be a string")
	}
	v, err := ParseRequestStatus(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// String returns a human-readable representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityLow:
		return "LOW"
	default:
		return "unknown"
	}
}

// ParsePriority converts the wire representation back to a priority.
// The empty string maps to MEDIUM.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "HIGH":
		return PriorityHigh, nil
	case "MEDIUM", "":
		return PriorityMedium, nil
	case "LOW":
		return PriorityLow, nil
	default:
		return 0, fmt.Errorf("unknown priority %q", s)
	}
}

// MarshalJSON encodes the priority as its string form.
func (p Priority) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// UnmarshalJSON decodes the string form, rejecting unknown values.
func (p *Priority) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("priority must be a string")
	}
	v, err := ParsePriority(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
