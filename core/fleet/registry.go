package fleet

import (
	"errors"
	"fmt"
	"time"

	"github.com/campus-safety/dispatch/core/model"
)

// ErrNotFound is returned when an ambulance id is unknown to the registry.
var ErrNotFound = errors.New("fleet: ambulance not found")

// Store abstracts the durable CRUD collaborator holding ambulance records.
type Store interface {
	// Add persists a new ambulance and assigns its identity.
	Add(model.Ambulance) (model.Ambulance, error)
	Get(id int64) (model.Ambulance, bool)
	// List returns all ambulances in ascending id order.
	List() []model.Ambulance
	ListByStatus(model.AmbulanceStatus) []model.Ambulance
	Save(model.Ambulance) error
}

// Registry owns ambulance records and funnels every status or position
// change through SetStatusAndLocation so state transitions stay observable
// in one place.
type Registry struct {
	store Store
	now   func() time.Time
}

// NewRegistry creates a Registry on top of the given store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store, now: time.Now}
}

// Onboard registers a new fleet unit. Identity fields are validated; the
// store assigns the id.
func (r *Registry) Onboard(a model.Ambulance) (model.Ambulance, error) {
	if err := a.Validate(); err != nil {
		return model.Ambulance{}, fmt.Errorf("fleet: %w", err)
	}
	if a.LastUpdated.IsZero() {
		a.LastUpdated = r.now()
	}
	return r.store.Add(a)
}

// Get returns the ambulance with the given id.
func (r *Registry) Get(id int64) (model.Ambulance, bool) {
	return r.store.Get(id)
}

// List returns every registered ambulance in ascending id order.
func (r *Registry) List() []model.Ambulance {
	return r.store.List()
}

// ListAvailable returns the units currently AVAILABLE, ascending id order.
// OUT_OF_SERVICE units are excluded by definition.
func (r *Registry) ListAvailable() []model.Ambulance {
	return r.store.ListByStatus(model.StatusAvailable)
}

// SetStatusAndLocation updates a unit's status and position as one logical
// operation and stamps LastUpdated. It is the only mutation path after
// onboarding.
func (r *Registry) SetStatusAndLocation(id int64, status model.AmbulanceStatus, lat, lng float64) (model.Ambulance, error) {
	a, ok := r.store.Get(id)
	if !ok {
		return model.Ambulance{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	a.Status = status
	a.Latitude = lat
	a.Longitude = lng
	a.LastUpdated = r.now()
	if err := r.store.Save(a); err != nil {
		return model.Ambulance{}, fmt.Errorf("fleet: save ambulance %d: %w", id, err)
	}
	return a, nil
}
