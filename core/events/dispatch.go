package events

import (
	"time"

	"github.com/campus-safety/dispatch/core/model"
)

// RequestQueued is published when a request is created with no unit free.
type RequestQueued struct {
	RequestID int64
	UserID    int64
}

// RequestAssigned is published when a unit is bound to a request, either at
// intake or through a backlog drain.
type RequestAssigned struct {
	RequestID   int64
	AmbulanceID int64
	// Drained is true when the assignment came from the backlog drain of a
	// freshly freed unit rather than from intake.
	Drained bool
}

// RequestCompleted is published when a run finishes.
type RequestCompleted struct {
	RequestID   int64
	AmbulanceID int64
	Duration    time.Duration
}

// StatusChanged is published for each ambulance status transition.
type StatusChanged struct {
	AmbulanceID int64
	From        model.AmbulanceStatus
	To          model.AmbulanceStatus
}
