package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/campus-safety/dispatch/core/model"
)

// ErrNotFound is returned when a request id is unknown to the ledger.
var ErrNotFound = errors.New("ledger: request not found")

// Store abstracts the durable CRUD collaborator holding request records.
type Store interface {
	// Create persists a new request and assigns its identity.
	Create(model.EmergencyRequest) (model.EmergencyRequest, error)
	Get(id int64) (model.EmergencyRequest, bool)
	// List returns all requests in ascending id order.
	List() []model.EmergencyRequest
	Save(model.EmergencyRequest) error
}

// Ledger owns emergency-request records and the queries the dispatch engine
// and reporting need over them.
type Ledger struct {
	store Store
	now   func() time.Time
}

// NewLedger creates a Ledger on top of the given store.
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// Create persists the request, stamping RequestTime. The caller provides
// everything else, including StartTime when the request is created already
// assigned.
func (l *Ledger) Create(req model.EmergencyRequest) (model.EmergencyRequest, error) {
	req.RequestTime = l.now()
	return l.store.Create(req)
}

// Get returns the request with the given id.
func (l *Ledger) Get(id int64) (model.EmergencyRequest, bool) {
	return l.store.Get(id)
}

// Save overwrites an existing request record.
func (l *Ledger) Save(req model.EmergencyRequest) error {
	if err := l.store.Save(req); err != nil {
		return fmt.Errorf("ledger: save request %d: %w", req.ID, err)
	}
	return nil
}

// FindByStatus returns all requests with the given status, ascending id.
func (l *Ledger) FindByStatus(status model.RequestStatus) []model.EmergencyRequest {
	var res []model.EmergencyRequest
	for _, r := range l.store.List() {
		if r.Status == status {
			res = append(res, r)
		}
	}
	return res
}

// FindOldestByStatus returns the request with the given status having the
// minimum RequestTime. Ties break on the lowest id so the backlog drains in
// a total FIFO order.
func (l *Ledger) FindOldestByStatus(status model.RequestStatus) (model.EmergencyRequest, bool) {
	var oldest model.EmergencyRequest
	found := false
	for _, r := range l.store.List() {
		if r.Status != status {
			continue
		}
		if !found || r.RequestTime.Before(oldest.RequestTime) ||
			(r.RequestTime.Equal(oldest.RequestTime) && r.ID < oldest.ID) {
			oldest = r
			found = true
		}
	}
	return oldest, found
}

// CountByStatus returns the number of requests with the given status.
func (l *Ledger) CountByStatus(status model.RequestStatus) int {
	n := 0
	for _, r := range l.store.List() {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Count returns the total number of requests.
func (l *Ledger) Count() int {
	return len(l.store.List())
}

// CompletedWithDurations returns the COMPLETED requests carrying both a
// start and an end timestamp.
func (l *Ledger) CompletedWithDurations() []model.EmergencyRequest {
	var res []model.EmergencyRequest
	for _, r := range l.store.List() {
		if r.Status == model.RequestCompleted && r.StartTime != nil && r.EndTime != nil {
			res = append(res, r)
		}
	}
	return res
}

// FindByAmbulance returns the requests referencing the given unit, ascending
// id. This is the derived reverse index; the ambulance record itself holds
// no request list.
func (l *Ledger) FindByAmbulance(ambulanceID int64) []model.EmergencyRequest {
	var res []model.EmergencyRequest
	for _, r := range l.store.List() {
		if r.AmbulanceID != nil && *r.AmbulanceID == ambulanceID {
			res = append(res, r)
		}
	}
	return res
}

// BusiestAmbulance returns the ambulance id with the most COMPLETED
// requests and that count. Ties break on the lowest ambulance id. The
// boolean is false when no completed request references a unit.
func (l *Ledger) BusiestAmbulance() (int64, int, bool) {
	counts := map[int64]int{}
	for _, r := range l.store.List() {
		if r.Status == model.RequestCompleted && r.AmbulanceID != nil {
			counts[*r.AmbulanceID]++
		}
	}
	if len(counts) == 0 {
		return 0, 0, false
	}
	var bestID int64
	best := 0
	for id, n := range counts {
		if n > best || (n == best && id < bestID) {
			bestID = id
			best = n
		}
	}
	return bestID, best, true
}
