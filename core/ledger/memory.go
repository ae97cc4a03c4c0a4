package ledger

import (
	"fmt"
	"sort"
	"sync"

	"github.com/campus-safety/dispatch/core/model"
)

// MemoryStore is an in-process Store used by the default assembly and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[int64]model.EmergencyRequest
	nextID int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[int64]model.EmergencyRequest{}}
}

func (s *MemoryStore) Create(r model.EmergencyRequest) (model.EmergencyRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	s.data[r.ID] = r
	return r, nil
}

func (s *MemoryStore) Get(id int64) (model.EmergencyRequest, bool) {
	s.mu.RLock()
	r, ok := s.data[id]
	s.mu.RUnlock()
	return r, ok
}

func (s *MemoryStore) List() []model.EmergencyRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.EmergencyRequest, 0, len(s.data))
	for _, r := range s.data {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

func (s *MemoryStore) Save(r model.EmergencyRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[r.ID]; !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, r.ID)
	}
	s.data[r.ID] = r
	return nil
}
