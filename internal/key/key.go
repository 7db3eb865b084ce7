// Package key defines component keys and key sets.
//
// A key names one component in the shared data store. Keys are opaque
// identifiers: the scheduler compares them for equality and nothing else.
// Sets iterate in sorted order so logs, digests, and golden files stay
// stable across runs.
package key

import (
	"fmt"
	"sort"
	"strings"
)

// Key names a single component in the data store.
type Key string

// Validate rejects empty keys. Everything else is opaque to the scheduler.
func (k Key) Validate() error {
	if k == "" {
		return fmt.Errorf("component key must not be empty")
	}
	return nil
}

// Set is an unordered collection of component keys with deterministic
// (sorted) iteration.
type Set map[Key]struct{}

// NewSet builds a set from the given keys.
func NewSet(keys ...Key) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts k into the set.
func (s Set) Add(k Key) { s[k] = struct{}{} }

// Has reports whether k is in the set.
func (s Set) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Len returns the number of keys.
func (s Set) Len() int { return len(s) }

// Sorted returns the keys in lexicographic order.
func (s Set) Sorted() []Key {
	out := make([]Key, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted keys as plain strings.
func (s Set) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, k := range sorted {
		out[i] = string(k)
	}
	return out
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Union returns a new set containing the keys of both sets.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range other {
		out[k] = struct{}{}
	}
	return out
}

// Intersects reports whether the two sets share any key.
func (s Set) Intersects(other Set) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for k := range small {
		if _, ok := large[k]; ok {
			return true
		}
	}
	return false
}

// Equal reports whether both sets contain exactly the same keys.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// Validate checks every key in the set.
func (s Set) Validate() error {
	for k := range s {
		if err := k.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String renders the set as a comma-separated sorted list.
func (s Set) String() string {
	return strings.Join(s.Strings(), ",")
}
