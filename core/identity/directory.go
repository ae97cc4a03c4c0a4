package identity

import (
	"sort"
	"sync"

	"github.com/campus-safety/dispatch/core/model"
)

// Directory resolves requester identities. Profile and credential management
// live with the auth collaborator; the dispatch engine only checks that a
// caller exists.
type Directory interface {
	FindUser(id int64) (model.User, bool)
}

// MemoryDirectory is an in-process Directory used by the default assembly
// and tests.
type MemoryDirectory struct {
	mu     sync.RWMutex
	users  map[int64]model.User
	nextID int64
}

// NewMemoryDirectory creates an empty MemoryDirectory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: map[int64]model.User{}}
}

// Add registers a user and assigns its identity.
func (d *MemoryDirectory) Add(u model.User) model.User {
	d.mu.Lock()
	d.nextID++
	u.ID = d.nextID
	d.users[u.ID] = u
	d.mu.Unlock()
	return u
}

func (d *MemoryDirectory) FindUser(id int64) (model.User, bool) {
	d.mu.RLock()
	u, ok := d.users[id]
	d.mu.RUnlock()
	return u, ok
}

// List returns all users in ascending id order.
func (d *MemoryDirectory) List() []model.User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	res := make([]model.User, 0, len(d.users))
	for _, u := range d.users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}
