package sched

import (
	"container/heap"
	"fmt"
	"log/slog"
	"sort"

	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/store"
	"github.com/probst/tangle/internal/task"
)

// OutOfOrder executes eligible instructions by priority while honoring
// data hazards through dependency tracking and snapshot transfer. It is
// the default discipline.
type OutOfOrder struct {
	base        *store.Store
	clock       *Clock
	log         *slog.Logger
	hook        CompletionFunc
	strictReads bool
	running     bool

	ready   readyPool
	pending map[*instruction]struct{}

	// lastWriter maps each key to the live instruction that will write it
	// last in submission order. Entries clear at completion unless a
	// newer writer has superseded them.
	lastWriter map[key.Key]*instruction

	// readers indexes live instructions by the keys they read lazily from
	// the base store. The freeze step consults it before a later writer
	// merges over such a key.
	readers map[key.Key]map[*instruction]struct{}
}

// NewOutOfOrder builds an out-of-order processor over base.
func NewOutOfOrder(base *store.Store, opts ...Option) *OutOfOrder {
	cfg := newConfig(opts)
	return &OutOfOrder{
		base:        base,
		clock:       cfg.clock,
		log:         cfg.logger,
		hook:        cfg.hook,
		strictReads: cfg.strictReads,
		pending:     make(map[*instruction]struct{}),
		lastWriter:  make(map[key.Key]*instruction),
		readers:     make(map[key.Key]map[*instruction]struct{}),
	}
}

// Schedule wraps t in an instruction, resolves hazards against the
// last-writer index, and files it as ready or pending.
func (p *OutOfOrder) Schedule(t *task.Task, token string) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	reads := t.Reads.Clone()
	writes := t.Writes.Clone()
	overlay := store.NewOverlay(p.base, reads, writes, p.strictReads)
	in := newInstruction(p.clock.Next(), token, t, overlay, reads, writes)

	// Read-after-write: a read of a key some live instruction will write
	// waits for that writer's output. Reads with no pending writer flow
	// lazily from the base store and are indexed for the freeze step.
	for _, k := range reads.Sorted() {
		if w := p.lastWriter[k]; w != nil {
			in.addDependency(w, k)
			continue
		}
		p.addReader(k, in)
	}

	// Write-after-write: a writer waits for the previous writer of the
	// same key, so same-key merges happen in submission order and a
	// conditional writer forwards its predecessor's value. Repointing the
	// index at the new instruction settles hazards for everything
	// scheduled later.
	for _, k := range writes.Sorted() {
		if w := p.lastWriter[k]; w != nil {
			in.addDependency(w, k)
		}
		p.lastWriter[k] = in
	}

	if in.eligible() {
		heap.Push(&p.ready, in)
	} else {
		p.pending[in] = struct{}{}
	}

	p.log.Debug("task scheduled",
		"seq", in.seq,
		"task", t.Label,
		"cascade", token,
		"priority", int(t.Priority),
		"reads", reads.String(),
		"writes", writes.String(),
		"deps", len(in.waits),
	)
	return nil
}

// ProcessTask pops the highest-priority ready instruction, runs its
// effect against its snapshot, and retires it. An effect error does not
// abort scheduling: the instruction completes, its writes merge, its
// dependents unblock, and the error rides Result.TaskErr.
func (p *OutOfOrder) ProcessTask() (Result, error) {
	if p.running {
		return Result{}, &InvariantError{
			Code:    ErrCodeReentrantProcess,
			Op:      "ProcessTask",
			Message: "ProcessTask called from inside a running effect or hook",
		}
	}

	if p.ready.Len() == 0 {
		if len(p.pending) > 0 {
			return Result{}, &InvariantError{
				Code:    ErrCodeSchedulerStalled,
				Op:      "ProcessTask",
				Message: fmt.Sprintf("%d pending instructions but none ready", len(p.pending)),
			}
		}
		return Result{}, nil
	}

	in := heap.Pop(&p.ready).(*instruction)

	p.running = true
	effectErr := in.task.Effect(in.overlay)
	p.running = false

	in.done = true
	if effectErr == nil {
		if v := in.overlay.Violation(); v != nil {
			effectErr = v
		}
	}

	if err := p.retire(in); err != nil {
		return Result{}, err
	}

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

// retire completes an executed instruction: freeze earlier lazy readers
// of the keys about to merge, merge the performed writes, transfer output
// to dependents, and release the index entries still pointing here.
func (p *OutOfOrder) retire(in *instruction) error {
	merged := in.overlay.Written()

	// Earlier-scheduled lazy readers keep observing the pre-merge value.
	for _, k := range merged.Sorted() {
		for r := range p.readers[k] {
			if r.seq < in.seq && !r.done {
				r.overlay.Freeze(k)
			}
		}
	}

	// Same-key writers complete in submission order, so merging every
	// performed write keeps the store on the sequential trajectory.
	in.overlay.Merge()

	deps := make([]*instruction, 0, len(in.dependents))
	for d := range in.dependents {
		deps = append(deps, d)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].seq < deps[j].seq })
	for _, dep := range deps {
		if err := dep.transferOutput(in); err != nil {
			return err
		}
		if dep.eligible() {
			delete(p.pending, dep)
			heap.Push(&p.ready, dep)
			p.log.Debug("dependent ready",
				"seq", dep.seq, "task", dep.task.Label, "producer", in.seq)
		}
	}

	for _, k := range in.writes.Sorted() {
		if p.lastWriter[k] == in {
			delete(p.lastWriter, k)
		}
	}
	p.dropReader(in)
	return nil
}

// Backlog returns the number of ready plus pending instructions.
func (p *OutOfOrder) Backlog() int {
	return p.ready.Len() + len(p.pending)
}

func (p *OutOfOrder) addReader(k key.Key, in *instruction) {
	set, ok := p.readers[k]
	if !ok {
		set = make(map[*instruction]struct{})
		p.readers[k] = set
	}
	set[in] = struct{}{}
}

func (p *OutOfOrder) dropReader(in *instruction) {
	for k := range in.reads {
		set, ok := p.readers[k]
		if !ok {
			continue
		}
		delete(set, in)
		if len(set) == 0 {
			delete(p.readers, k)
		}
	}
}
