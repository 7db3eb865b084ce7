package sched

import (
	"fmt"
	"log/slog"

	"github.com/probst/tangle/internal/store"
	"github.com/probst/tangle/internal/task"
)

// InOrder executes tasks strictly in submission order and ignores
// declared read/write sets entirely: no hazard analysis, no snapshots,
// no contract enforcement. Effects run directly against the base store,
// so writes land and record changes as they happen.
//
// Exists for conservative or diagnostic use: deterministic replay,
// commutativity baselines, and ruling the out-of-order machinery out of
// a suspected bug.
type InOrder struct {
	base  *store.Store
	clock *Clock
	log   *slog.Logger
	hook  CompletionFunc
	queue fifo

	running bool
}

// NewInOrder builds an in-order processor over base.
func NewInOrder(base *store.Store, opts ...Option) *InOrder {
	cfg := newConfig(opts)
	return &InOrder{
		base:  base,
		clock: cfg.clock,
		log:   cfg.logger,
		hook:  cfg.hook,
	}
}

// Schedule appends t to the queue. Priority is recorded for traces but
// never reorders execution.
func (p *InOrder) Schedule(t *task.Task, token string) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	in := newInstruction(p.clock.Next(), token, t, nil, t.Reads.Clone(), t.Writes.Clone())
	p.queue.push(in)
	p.log.Debug("task scheduled",
		"seq", in.seq, "task", t.Label, "cascade", token, "discipline", "in-order")
	return nil
}

// ProcessTask pops and runs the oldest scheduled task unconditionally.
func (p *InOrder) ProcessTask() (Result, error) {
	if p.running {
		return Result{}, &InvariantError{
			Code:    ErrCodeReentrantProcess,
			Op:      "ProcessTask",
			Message: "ProcessTask called from inside a running effect or hook",
		}
	}

	in, ok := p.queue.pop()
	if !ok {
		return Result{}, nil
	}

	p.running = true
	effectErr := in.task.Effect(p.base.Direct())
	p.running = false
	in.done = true

	res := Result{
		Ran:      true,
		Seq:      in.seq,
		Label:    in.task.Label,
		Token:    in.token,
		Priority: in.task.Priority,
	}
	if effectErr != nil {
		res.TaskErr = &TaskError{Seq: in.seq, Label: in.task.Label, Token: in.token, Err: effectErr}
		p.log.Warn("task failed",
			"seq", in.seq, "task", in.task.Label, "cascade", in.token, "error", effectErr)
	} else {
		p.log.Debug("task executed",
			"seq", in.seq, "task", in.task.Label, "cascade", in.token)
	}

	if p.hook != nil {
		p.running = true
		p.hook(res)
		p.running = false
	}
	return res, nil
}

// Backlog returns the queue length.
func (p *InOrder) Backlog() int {
	return p.queue.len()
}
