package dispatch

import "errors"

// Error kinds surfaced at the engine boundary. Raw store errors never leak
// past the engine; callers match with errors.Is and map the kinds to their
// own protocol.
var (
	ErrUserNotFound      = errors.New("dispatch: user not found")
	ErrAmbulanceNotFound = errors.New("dispatch: ambulance not found")
	ErrRequestNotFound   = errors.New("dispatch: request not found")
	ErrInvalidTransition = errors.New("dispatch: invalid status transition")

	// ErrStateDiverged marks a failure partway through a multi-entity
	// mutation. It is fatal: retrying a half-applied dispatch could
	// double-assign the ambulance.
	ErrStateDiverged = errors.New("dispatch: ambulance and request state diverged")
)
