package defaults

import (
	"sync"

	"storefront/backend/internal/platform/errs"
)

// MemoryStore holds records of one type, newest first, and applies a Policy on every write.
// All mutations run under one lock, so clearing siblings and setting the new default are atomic.
type MemoryStore[T any] struct {
	mu     sync.RWMutex
	policy Policy[T]
	items  []T
}

// NewMemoryStore returns an empty store governed by policy.
func NewMemoryStore[T any](policy Policy[T]) *MemoryStore[T] {
	return &MemoryStore[T]{policy: policy}
}

// Insert adds rec at the front. When rec is default, conflicting siblings are cleared first.
// It returns the ids whose flag was cleared.
func (s *MemoryStore[T]) Insert(rec T) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cleared []string
	if s.policy.IsDefault(rec) {
		cleared = s.policy.clearConflicts(s.items, rec, -1)
	}
	s.items = append([]T{rec}, s.items...)
	return cleared
}

// Update applies apply to a copy of the record with id and commits the result. When the result is
// default, conflicting siblings of the patched record are cleared, so a change of partition cannot
// leave two defaults. An error from apply aborts without changes. A missing id is errs.ErrNotFound.
func (s *MemoryStore[T]) Update(id string, apply func(T) (T, error)) (T, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		var zero T
		return zero, nil, errs.ErrNotFound
	}
	patched, err := apply(s.items[idx])
	if err != nil {
		var zero T
		return zero, nil, err
	}
	var cleared []string
	if s.policy.IsDefault(patched) {
		cleared = s.policy.clearConflicts(s.items, patched, idx)
	}
	s.items[idx] = patched
	return patched, cleared, nil
}

// Delete removes the record with id. No other record is promoted to default.
func (s *MemoryStore[T]) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return errs.ErrNotFound
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return nil
}

// Get returns the record with id.
func (s *MemoryStore[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.items[idx], true
	}
	var zero T
	return zero, false
}

// List returns the records matching keep, newest first. A nil keep matches everything.
func (s *MemoryStore[T]) List(keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.items))
	for _, it := range s.items {
		if keep == nil || keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Find returns the newest record matching match.
func (s *MemoryStore[T]) Find(match func(T) bool) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if match(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of records.
func (s *MemoryStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryStore[T]) indexOf(id string) int {
	for i := range s.items {
		if s.policy.ID(s.items[i]) == id {
			return i
		}
	}
	return -1
}
