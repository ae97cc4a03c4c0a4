package fleet

import (
	"fmt"
	"sort"
	"sync"

	"github.com/campus-safety/dispatch/core/model"
)

// MemoryStore is an in-process Store used by the default assembly and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[int64]model.Ambulance
	nextID int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[int64]model.Ambulance{}}
}

func (s *MemoryStore) Add(a model.Ambulance) (model.Ambulance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.data {
		if existing.VehicleNo == a.VehicleNo {
			return model.Ambulance{}, fmt.Errorf("fleet: vehicle number %q already registered", a.VehicleNo)
		}
	}
	s.nextID++
	a.ID = s.nextID
	s.data[a.ID] = a
	return a, nil
}

func (s *MemoryStore) Get(id int64) (model.Ambulance, bool) {
	s.mu.RLock()
	a, ok := s.data[id]
	s.mu.RUnlock()
	return a, ok
}

func (s *MemoryStore) List() []model.Ambulance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Ambulance, 0, len(s.data))
	for _, a := range s.data {
		res = append(res, a)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (s *MemoryStore) ListByStatus(status model.AmbulanceStatus) []model.Ambulance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.Ambulance
	for _, a := range s.data {
		if a.Status == status {
			res = append(res, a)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (s *MemoryStore) Save(a model.Ambulance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[a.ID]; !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, a.ID)
	}
	s.data[a.ID] = a
	return nil
}
