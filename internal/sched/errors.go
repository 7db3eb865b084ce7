package sched

import (
	"errors"
	"fmt"
)

// InvariantError reports a scheduler invariant violation: the scheduler's
// own bookkeeping has been caught in a state that must be impossible.
//
// Invariant violations are fatal. They are returned as the error value of
// ProcessTask, the scheduler's state can no longer be trusted, and callers
// must not retry. Contrast with TaskError, which reports an application
// effect failing inside a healthy scheduler.
type InvariantError struct {
	// Code identifies the violated invariant.
	Code InvariantCode

	// Op names the operation that detected the violation.
	Op string

	// Seq identifies the instruction involved, when one is.
	Seq int64

	// Label is the involved task's label, when known.
	Label string

	// Message is a human-readable description.
	Message string
}

// InvariantCode categorizes scheduler invariant violations.
type InvariantCode string

const (
	// ErrCodeTransferWithoutDependency indicates output transfer to an
	// instruction that never depended on the producer.
	ErrCodeTransferWithoutDependency InvariantCode = "TRANSFER_WITHOUT_DEPENDENCY"

	// ErrCodeSchedulerStalled indicates a non-empty pending pool with an
	// empty ready pool. The dependency graph is acyclic by construction,
	// so a stall means bookkeeping has been corrupted.
	ErrCodeSchedulerStalled InvariantCode = "SCHEDULER_STALLED"

	// ErrCodeReentrantProcess indicates ProcessTask was entered from
	// inside a running effect, completion hook, or observer.
	ErrCodeReentrantProcess InvariantCode = "REENTRANT_PROCESS"

	// ErrCodeModelReentry indicates the model was driven from inside its
	// own notification pass.
	ErrCodeModelReentry InvariantCode = "MODEL_REENTRY"

	// ErrCodeUnknownDiscipline indicates construction with an execution
	// discipline this build does not define.
	ErrCodeUnknownDiscipline InvariantCode = "UNKNOWN_DISCIPLINE"
)

// Error implements the error interface.
func (e *InvariantError) Error() string {
	if e.Seq != 0 {
		return fmt.Sprintf("%s: %s (op=%s, seq=%d, task=%q)", e.Code, e.Message, e.Op, e.Seq, e.Label)
	}
	return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
}

// IsInvariantError reports whether err is a scheduler invariant violation.
// Uses errors.As to handle wrapped errors.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// TaskError tags an effect failure with the instruction it came from. The
// instruction still completed: its partial writes merged, its dependents
// unblocked, and scheduling continues.
type TaskError struct {
	Seq   int64
	Label string
	Token string
	Err   error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q (seq=%d, cascade=%s) failed: %v", e.Label, e.Seq, e.Token, e.Err)
}

// Unwrap exposes the effect's error to errors.Is/As.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsTaskError reports whether err is a tagged effect failure.
func IsTaskError(err error) bool {
	var te *TaskError
	return errors.As(err, &te)
}
