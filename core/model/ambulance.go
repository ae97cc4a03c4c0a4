package model

import (
	"fmt"
	"time"
)

// AmbulanceStatus defines the operational state of a fleet unit.
type AmbulanceStatus int

const (
	StatusAvailable AmbulanceStatus = iota
	StatusEnRoute
	StatusOnScene
	StatusOutOfService
)

// Ambulance represents a fleet unit registered with the dispatch service.
type Ambulance struct {
	ID          int64           `json:"id"`
	VehicleNo   string          `json:"vehicle_no"` // unique plate identifier
	DriverName  string          `json:"driver_name"`
	ContactNo   string          `json:"contact_no"`
	Status      AmbulanceStatus `json:"status"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	LastUpdated time.Time       `json:"last_updated"`
}

// Validate checks that the unit configuration is sound.
func (a Ambulance) Validate() error {
	if a.VehicleNo == "" {
		return fmt.Errorf("vehicle number is required")
	}
	if a.DriverName == "" {
		return fmt.Errorf("driver name is required")
	}
	return nil
}

// String returns a human-readable representation of the status.
func (s AmbulanceStatus) String() string {
	switch s {
	case StatusAvailable:
		return "AVAILABLE"
	case StatusEnRoute:
		return "EN_ROUTE"
	case StatusOnScene:
		return "ON_SCENE"
	case StatusOutOfService:
		return "OUT_OF_SERVICE"
	default:
		return "unknown"
	}
}

// ParseAmbulanceStatus converts the wire representation back to a status.
func ParseAmbulanceStatus(s string) (AmbulanceStatus, error) {
	switch s {
	case "AVAILABLE":
		return StatusAvailable, nil
	case "EN_ROUTE":
		return StatusEnRoute, nil
	case "ON_SCENE":
		return StatusOnScene, nil
	case "OUT_OF_SERVICE":
		return StatusOutOfService, nil
	default:
		return 0, fmt.Errorf("unknown ambulance status %q", s)
	}
}

// MarshalJSON encodes the status as its string form.
func (s AmbulanceStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes the string form, rejecting unknown values.
func (s *AmbulanceStatus) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("ambulance status must be a string")
	}
	v, err := ParseAmbulanceStatus(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
