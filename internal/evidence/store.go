// Package evidence holds the shared, append-only evidence store for one
// research run.
package evidence

import (
	"sync"

	"github.com/kestrelab/inquest/internal/research"
)

// Store collects evidence discovered anywhere in the goal tree. It is the
// one place sibling and cousin branches share findings. Inserts are
// deduplicated by the evidence identity key; re-inserting a known item is
// a no-op, never an error.
type Store struct {
	mu    sync.Mutex
	items []research.Evidence
	keys  map[string]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{keys: make(map[string]struct{})}
}

// Insert adds the given items, skipping duplicates, and returns the items
// that were actually new. The returned slice preserves input order.
func (s *Store) Insert(items ...research.Evidence) []research.Evidence {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []research.Evidence
	for _, item := range items {
		key := item.Key()
		if _, ok := s.keys[key]; ok {
			continue
		}
		s.keys[key] = struct{}{}
		s.items = append(s.items, item)
		added = append(added, item)
	}
	return added
}

// Len returns the number of distinct items stored.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Items returns a copy of everything stored, in insertion order.
func (s *Store) Items() []research.Evidence {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]research.Evidence, len(s.items))
	copy(out, s.items)
	return out
}

// Sample returns up to n of the most recently inserted items. Used to
// give the oracle a capped view of what is already known.
func (s *Store) Sample(n int) []research.Evidence {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || len(s.items) == 0 {
		return nil
	}
	start := len(s.items) - n
	if start < 0 {
		start = 0
	}
	out := make([]research.Evidence, len(s.items)-start)
	copy(out, s.items[start:])
	return out
}

// SourceCount returns the number of distinct sources represented.
func (s *Store) SourceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, 4)
	for _, item := range s.items {
		seen[item.SourceID] = struct{}{}
	}
	return len(seen)
}
