package model

import (
	"errors"
	"fmt"
)

// CascadeLimitError is reported when a cascade exceeds the configured step
// quota. Observer evaluation stops for that cascade, so it cannot grow
// further; tasks it already scheduled still drain.
//
// The quota catches linear explosions, where observers keep scheduling
// fresh work step after step. An interactive session would otherwise hang
// inside one Settle call.
type CascadeLimitError struct {
	Token string // the cascade that exceeded the quota
	Steps int    // completions counted against it
	Limit int    // configured maximum
}

// Error implements the error interface.
func (e *CascadeLimitError) Error() string {
	return fmt.Sprintf("cascade %s exceeded step quota: %d steps > %d limit",
		e.Token, e.Steps, e.Limit)
}

// IsCascadeLimitError returns true if the error is a CascadeLimitError.
// Uses errors.As to handle wrapped errors.
func IsCascadeLimitError(err error) bool {
	var ce *CascadeLimitError
	return errors.As(err, &ce)
}

// chargeStep counts one completion against token's cascade. A non-nil
// return means the quota is exhausted and observers must not run for this
// completion. A zero or negative limit disables the quota.
func (m *Model) chargeStep(token string) *CascadeLimitError {
	if m.maxCascadeSteps <= 0 {
		return nil
	}
	m.cascades[token]++
	if steps := m.cascades[token]; steps > m.maxCascadeSteps {
		return &CascadeLimitError{Token: token, Steps: steps, Limit: m.maxCascadeSteps}
	}
	return nil
}

// CascadeSteps returns the completions counted against token since the
// backlog last drained. Used for diagnostics and tests.
func (m *Model) CascadeSteps(token string) int {
	return m.cascades[token]
}

// MaxCascadeSteps returns the configured quota, zero meaning unlimited.
func (m *Model) MaxCascadeSteps() int {
	return m.maxCascadeSteps
}
