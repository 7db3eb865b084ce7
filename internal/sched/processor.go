package sched

import (
	"log/slog"

	"github.com/probst/tangle/internal/task"
)

// Result reports what one ProcessTask call did.
type Result struct {
	// Ran is false when no instruction was ready to execute.
	Ran bool

	// Seq, Label, Token, and Priority identify the executed instruction.
	Seq      int64
	Label    string
	Token    string
	Priority task.Priority

	// TaskErr carries an effect failure as a *TaskError. The instruction
	// completed regardless: partial writes merged, dependents unblocked,
	// scheduling continues.
	TaskErr error
}

// CompletionFunc observes each completed instruction. The model installs
// its drain-and-notify routine here. Hooks may Schedule new work; they
// must not call ProcessTask.
type CompletionFunc func(Result)

// Processor is the single interface over both execution disciplines. The
// discipline is chosen at construction and fixed for the processor's
// lifetime.
//
// Processors are cooperative and single-threaded: all calls must come
// from one goroutine, and each ProcessTask call runs at most one effect
// to completion. There is no cancellation and no timeout; an effect that
// never returns stalls the scheduler, which callers must not let happen.
type Processor interface {
	// Schedule submits a task under the given cascade token.
	Schedule(t *task.Task, token string) error

	// ProcessTask executes at most one instruction. Ran=false with a nil
	// error means there was nothing to do. A non-nil error is a scheduler
	// invariant violation: fatal, never retried.
	ProcessTask() (Result, error)

	// Backlog returns the number of scheduled-but-unexecuted instructions.
	Backlog() int
}

// Option configures a processor at construction.
type Option func(*config)

type config struct {
	logger      *slog.Logger
	clock       *Clock
	hook        CompletionFunc
	strictReads bool
}

func newConfig(opts []Option) config {
	cfg := config{
		logger: slog.Default(),
		clock:  NewClock(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogger sets the processor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithClock substitutes the submission clock. Replays pin seq numbers
// with NewClockAt.
func WithClock(clock *Clock) Option {
	return func(c *config) { c.clock = clock }
}

// WithCompletionHook installs fn to run after every completion, failed
// effects included.
func WithCompletionHook(fn CompletionFunc) Option {
	return func(c *config) { c.hook = fn }
}

// WithStrictReads makes out-of-order snapshots treat reads outside the
// declared read set as contract breaches instead of undefined behavior.
// The in-order discipline ignores declared sets and with them this
// option.
func WithStrictReads() Option {
	return func(c *config) { c.strictReads = true }
}
