// Package task defines the unit of scheduled work: an effect plus its
// declared component footprint and priority.
package task

import (
	"fmt"

	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/store"
)

// Effect is the computation a task performs. It runs exactly once, on the
// scheduler's goroutine, against the view it is handed, and may only touch
// components its task declares: read-set membership to read, write-set
// membership to write, membership in both for read-modify-write.
type Effect func(v store.View) error

// Priority orders simultaneously-ready work; higher runs first. Any value
// is legal, the named levels are conventions.
type Priority int

const (
	Low    Priority = -10
	Normal Priority = 0
	High   Priority = 10
)

// Task describes one unit of work. Tasks are inert: only scheduling one
// produces execution, and the scheduler copies the key sets at that point,
// so mutating a Task after scheduling does not affect in-flight work.
type Task struct {
	Label    string
	Effect   Effect
	Reads    key.Set
	Writes   key.Set
	Priority Priority
}

// Option configures a Task under construction.
type Option func(*Task)

// WithLabel names the task for logs, traces, and failure reports.
func WithLabel(label string) Option {
	return func(t *Task) { t.Label = label }
}

// Reads declares component keys the effect may read.
func Reads(keys ...key.Key) Option {
	return func(t *Task) {
		for _, k := range keys {
			t.Reads.Add(k)
		}
	}
}

// Writes declares component keys the effect may write.
func Writes(keys ...key.Key) Option {
	return func(t *Task) {
		for _, k := range keys {
			t.Writes.Add(k)
		}
	}
}

// WithPriority sets the scheduling priority.
func WithPriority(p Priority) Option {
	return func(t *Task) { t.Priority = p }
}

// New builds a task around effect. Empty read and write sets are legal: a
// task declaring nothing is immediately eligible and hazard-free.
func New(effect Effect, opts ...Option) *Task {
	t := &Task{
		Effect: effect,
		Reads:  key.NewSet(),
		Writes: key.NewSet(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Validate reports whether the task can be scheduled.
func (t *Task) Validate() error {
	if t == nil {
		return fmt.Errorf("task is nil")
	}
	if t.Effect == nil {
		return fmt.Errorf("task %q has no effect", t.Label)
	}
	if err := t.Reads.Validate(); err != nil {
		return fmt.Errorf("task %q read set: %w", t.Label, err)
	}
	if err := t.Writes.Validate(); err != nil {
		return fmt.Errorf("task %q write set: %w", t.Label, err)
	}
	return nil
}
