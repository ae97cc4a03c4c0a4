package notify

import (
	"errors"
	"time"
)

// ErrAckTimeout is returned when no driver acknowledgment arrives before the
// timeout.
var ErrAckTimeout = errors.New("notify: timeout waiting for ack")

// Order describes a dispatch order pushed to a unit's driver.
type Order struct {
	AmbulanceID    int64  `json:"ambulance_id"`
	VehicleNo      string `json:"vehicle_no"`
	RequestID      int64  `json:"request_id"`
	PatientDetails string `json:"patient_details"`
	Destination    string `json:"destination"`
}

// Notifier delivers dispatch orders to drivers and tracks acknowledgments.
// Delivery is best-effort: an undelivered or unacknowledged order never
// invalidates the assignment it describes.
type Notifier interface {
	// SendOrder publishes the order and returns the identifier used to
	// track the acknowledgment.
	SendOrder(o Order) (orderID string, err error)

	// WaitForAck waits for the driver acknowledgment of the given order or
	// until the timeout expires.
	WaitForAck(orderID string, timeout time.Duration) (bool, error)
}

// NopNotifier drops every order. Used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) SendOrder(Order) (string, error)                { return "", nil }
func (NopNotifier) WaitForAck(string, time.Duration) (bool, error) { return true, nil }
