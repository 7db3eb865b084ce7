// Package store holds the shared in-memory component arena and the
// snapshot overlays scheduled work executes against.
//
// The arena is single-writer: only the goroutine driving the scheduler
// mutates it. Out-of-order instruction effects write through private
// overlays that merge at completion; the in-order discipline writes
// through the direct view. Every write records its key in the change
// buffer, which the model drains after each completion to feed observers.
package store

import (
	"sort"

	"github.com/probst/tangle/internal/key"
)

// View is the read/write surface a task effect sees. Overlay implements it
// for out-of-order execution; the direct view implements it for in-order
// execution.
type View interface {
	// Get returns the component value for k, reporting absence.
	Get(k key.Key) (any, bool)
	// Set stores a component value. Overlays reject writes outside the
	// declared write set.
	Set(k key.Key, v any) error
}

// Store is the arena of named components plus the change buffer.
//
// Slots are append-only: a key's slot index never changes once allocated,
// so overlays hold indices instead of re-hashing keys on every access.
type Store struct {
	slots   []slot
	index   map[key.Key]int
	changed key.Set
}

type slot struct {
	key   key.Key
	value any
	set   bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		index:   make(map[key.Key]int),
		changed: key.NewSet(),
	}
}

// Get returns the value of component k. The second result is false when
// the component has never been written.
func (s *Store) Get(k key.Key) (any, bool) {
	i, ok := s.index[k]
	if !ok || !s.slots[i].set {
		return nil, false
	}
	return s.slots[i].value, true
}

// Has reports whether component k holds a value.
func (s *Store) Has(k key.Key) bool {
	_, ok := s.Get(k)
	return ok
}

// Set stores v as the value of component k and records k in the change
// buffer. Values are opaque, so writing an equal value again still records
// a change.
func (s *Store) Set(k key.Key, v any) {
	i := s.slot(k)
	s.slots[i].value = v
	s.slots[i].set = true
	s.changed.Add(k)
}

// slot returns the arena index for k, allocating one on first use.
func (s *Store) slot(k key.Key) int {
	if i, ok := s.index[k]; ok {
		return i
	}
	i := len(s.slots)
	s.slots = append(s.slots, slot{key: k})
	s.index[k] = i
	return i
}

// Seed populates the store from a map in sorted key order. Seeding records
// changes like any other write; callers wanting a clean buffer drain
// afterwards.
func (s *Store) Seed(values map[key.Key]any) {
	keys := make([]key.Key, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		s.Set(k, values[k])
	}
}

// DrainChanges returns the set of keys written since the previous drain
// and resets the buffer. Draining an untouched store yields an empty set.
func (s *Store) DrainChanges() key.Set {
	out := s.changed
	s.changed = key.NewSet()
	return out
}

// PendingChanges returns the number of buffered keys without draining.
func (s *Store) PendingChanges() int { return s.changed.Len() }

// Len returns the number of components holding a value.
func (s *Store) Len() int {
	n := 0
	for _, sl := range s.slots {
		if sl.set {
			n++
		}
	}
	return n
}

// Keys returns the keys of all set components in sorted order.
func (s *Store) Keys() []key.Key {
	ks := key.NewSet()
	for _, sl := range s.slots {
		if sl.set {
			ks.Add(sl.key)
		}
	}
	return ks.Sorted()
}

// Direct returns a view that reads and writes the store itself. In-order
// execution uses it: writes land immediately and record changes as they
// happen, and no declared-set contract applies.
func (s *Store) Direct() View { return directView{s} }

type directView struct{ s *Store }

func (d directView) Get(k key.Key) (any, bool) { return d.s.Get(k) }

func (d directView) Set(k key.Key, v any) error {
	d.s.Set(k, v)
	return nil
}
