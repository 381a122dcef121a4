// Package store implements the client-resident resource collections the
// synchronization layer keeps consistent with the backend. One Store exists
// per resource kind for the lifetime of a session.
package store

import "sync"

// Entity is the minimal contract a synced entity must satisfy. Everything
// beyond the identifier is opaque to the store.
type Entity interface {
	EntityID() string
}

// entry wraps a stored entity together with its correlation key. The key is
// non-empty only while the entity is tentative, i.e. created optimistically
// and not yet confirmed by the backend.
type entry[E Entity] struct {
	correlation string
	value       E
}

// Store is an ordered, session-scoped collection of entities of one kind.
// All primitives are atomic: no caller can observe a state where Len and
// IsEmpty disagree. Ordering is newest-first for prepends; ReplaceAll keeps
// the server-provided order.
type Store[E Entity] struct {
	mu       sync.RWMutex
	items    []entry[E]
	inflight int
	lastErr  error
	writes   uint64
}

// New creates an empty store.
func New[E Entity]() *Store[E] {
	return &Store[E]{}
}

// List returns a copy of the collection in display order.
func (s *Store[E]) List() []E {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]E, len(s.items))
	for i, it := range s.items {
		out[i] = it.value
	}
	return out
}

// Len returns the number of entities in the collection.
func (s *Store[E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// IsEmpty reports whether the collection has no entities. It is derived
// from the list length under the same lock as every mutation, so it can
// never go stale relative to List.
func (s *Store[E]) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items) == 0
}

// IsLoading reports whether at least one mutation against this kind is in
// flight. The flag is reference-counted so overlapping mutations keep it
// true until the last one settles.
func (s *Store[E]) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// LastError returns the most recent resource-scoped failure, or nil. It is
// cleared by the next successful mutation or bulk load for this kind.
func (s *Store[E]) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Writes returns the number of mutating primitive calls applied so far.
// The bulk sync controller's tests use it to verify that an unchanged
// snapshot causes no store writes.
func (s *Store[E]) Writes() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Get returns the entity with the given id, if present.
func (s *Store[E]) Get(id string) (E, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, it := range s.items {
		if it.value.EntityID() == id {
			return it.value, true
		}
	}
	var zero E
	return zero, false
}

// ReplaceAll swaps the whole collection for the given list, preserving its
// order. Any tentative entities are superseded. The error slot is cleared.
func (s *Store[E]) ReplaceAll(entities []E) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]entry[E], len(entities))
	for i, e := range entities {
		items[i] = entry[E]{value: e}
	}
	s.items = items
	s.lastErr = nil
	s.writes++
}

// Prepend inserts a confirmed entity at the head of the collection.
func (s *Store[E]) Prepend(e E) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append([]entry[E]{{value: e}}, s.items...)
	s.writes++
}

// PrependTentative inserts an optimistic entity at the head of the
// collection, tagged with the correlation key that links it to the
// eventual authoritative replacement.
func (s *Store[E]) PrependTentative(correlation string, e E) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append([]entry[E]{{correlation: correlation, value: e}}, s.items...)
	s.writes++
}

// UpsertByID replaces the entity matching id in place; if no match exists
// the entity is appended. The append path covers restoring an entity after
// a failed optimistic delete, where the original position is not
// guaranteed.
func (s *Store[E]) UpsertByID(id string, e E) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.value.EntityID() == id {
			s.items[i] = entry[E]{value: e}
			s.writes++
			return
		}
	}
	s.items = append(s.items, entry[E]{value: e})
	s.writes++
}

// UpsertByCorrelation replaces the tentative entity inserted under the
// correlation key with the authoritative entity, keeping its list position
// and clearing the key. It reports whether a tentative entity was found;
// callers fall back to UpsertByID when a bulk load superseded it.
func (s *Store[E]) UpsertByCorrelation(correlation string, final E) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.correlation == correlation {
			s.items[i] = entry[E]{value: final}
			s.writes++
			return true
		}
	}
	return false
}

// RemoveByID filters out the entity matching id and reports whether one
// was removed.
func (s *Store[E]) RemoveByID(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.value.EntityID() == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.writes++
			return true
		}
	}
	return false
}

// RemoveByCorrelation filters out a tentative entity by its correlation key
// and reports whether one was removed. Used to roll back a rejected
// optimistic create.
func (s *Store[E]) RemoveByCorrelation(correlation string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, it := range s.items {
		if it.correlation == correlation {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.writes++
			return true
		}
	}
	return false
}

// BeginMutation marks one mutation against this kind as in flight.
func (s *Store[E]) BeginMutation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
}

// EndMutation marks one in-flight mutation as settled.
func (s *Store[E]) EndMutation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight > 0 {
		s.inflight--
	}
}

// SetError records a resource-scoped failure.
func (s *Store[E]) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// ClearError clears the error slot.
func (s *Store[E]) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}
