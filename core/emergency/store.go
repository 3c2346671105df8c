// Package emergency holds the registry of active emergencies for one officer
// session.
package emergency

import (
	"errors"
	"sync"

	"github.com/safih1/policedispatch/core/model"
)

// ErrInvalidTransition is returned when a status update would move an
// emergency backwards in its lifecycle.
var ErrInvalidTransition = errors.New("emergency: invalid status transition")

// Store is the registry of live emergencies keyed by id.
type Store interface {
	Upsert(model.Emergency) bool
	UpdateStatus(model.Matcher, model.EmergencyStatus) (model.Emergency, error)
	Remove(model.Matcher) (model.Emergency, bool)
	Get(id string) (model.Emergency, bool)
	Find(model.Matcher) (model.Emergency, bool)
	List() []model.Emergency
	Len() int
}

// MemoryStore keeps emergencies in insertion order. Dedup is authoritative on
// the id regardless of how often the transport delivers the same event.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	data  map[string]model.Emergency
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]model.Emergency{}}
}

// Upsert inserts e unless a record with the same id exists. It reports whether
// an insert happened.
func (s *MemoryStore) Upsert(e model.Emergency) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[e.ID]; ok {
		return false
	}
	if e.Status == "" {
		e.Status = model.StatusPending
	}
	s.data[e.ID] = e
	s.order = append(s.order, e.ID)
	return true
}

// UpdateStatus applies status to the first record matching m. Moving a known
// status backwards (assigned to pending, resolved to anything) is rejected.
// ErrNotFound is returned when nothing matched.
func (s *MemoryStore) UpdateStatus(m model.Matcher, status model.EmergencyStatus) (model.Emergency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.lookup(m)
	if !ok {
		return model.Emergency{}, ErrNotFound
	}
	e := s.data[id]
	if e.Status == model.StatusResolved && status != model.StatusResolved {
		return e, ErrInvalidTransition
	}
	if status.Known() && status.Rank() < e.Status.Rank() {
		return e, ErrInvalidTransition
	}
	e.Status = status
	s.data[id] = e
	return e, nil
}

// Remove deletes the first record matching m.
func (s *MemoryStore) Remove(m model.Matcher) (model.Emergency, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.lookup(m)
	if !ok {
		return model.Emergency{}, false
	}
	e := s.data[id]
	delete(s.data, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return e, true
}

func (s *MemoryStore) Get(id string) (model.Emergency, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	return e, ok
}

func (s *MemoryStore) Find(m model.Matcher) (model.Emergency, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.lookup(m)
	if !ok {
		return model.Emergency{}, false
	}
	return s.data[id], true
}

// List returns a copy of the live emergencies in insertion order.
func (s *MemoryStore) List() []model.Emergency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Emergency, 0, len(s.order))
	for _, id := range s.order {
		res = append(res, s.data[id])
	}
	return res
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// lookup must be called with the lock held.
func (s *MemoryStore) lookup(m model.Matcher) (string, bool) {
	if m.Empty() {
		return "", false
	}
	if m.ID != "" {
		if _, ok := s.data[m.ID]; ok {
			return m.ID, true
		}
	}
	for _, id := range s.order {
		if m.Match(s.data[id]) {
			return id, true
		}
	}
	return "", false
}
