// Package testutil provides deterministic stand-ins for the model's
// production dependencies.
package testutil

import (
	"fmt"
	"sync"
)

// FixedTokenSource returns the same cascade token every time.
//
// This enables deterministic test execution and golden snapshot
// comparison: the same scenario with the same FixedTokenSource produces
// byte-identical traces. Useful when every scheduled task should share
// one cascade.
//
// Thread-safety: FixedTokenSource is stateless and safe for concurrent use.
type FixedTokenSource struct {
	token string
}

// NewFixedTokenSource creates a source that always returns token.
//
// If token is empty, Generate() returns "test-cascade-default".
func NewFixedTokenSource(token string) *FixedTokenSource {
	if token == "" {
		token = "test-cascade-default"
	}
	return &FixedTokenSource{token: token}
}

// Generate returns the fixed cascade token.
//
// Implements model.TokenSource.
func (s *FixedTokenSource) Generate() string {
	return s.token
}

// SequenceSource returns numbered cascade tokens: prefix-1, prefix-2, and
// so on. Scenarios use it so each external schedule opens a predictably
// named cascade.
//
// Thread-safety: SequenceSource is safe for concurrent use via internal
// mutex.
type SequenceSource struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceSource creates a source with the given token prefix.
//
// If prefix is empty, "cascade" is used.
func NewSequenceSource(prefix string) *SequenceSource {
	if prefix == "" {
		prefix = "cascade"
	}
	return &SequenceSource{prefix: prefix}
}

// Generate returns the next numbered token.
//
// Implements model.TokenSource.
func (s *SequenceSource) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}
