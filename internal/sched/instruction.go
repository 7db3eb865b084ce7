package sched

import (
	"fmt"

	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/store"
	"github.com/probst/tangle/internal/task"
)

// instruction is the scheduler-side wrapper around one scheduled task:
// the task, its submission seq, its cascade token, a private snapshot
// overlay, and the dependency bookkeeping. Instruction state never leaves
// the scheduler; tasks and callers see only Results.
//
// The read/write sets are copies taken at schedule time, so callers may
// reuse or mutate the Task afterwards.
type instruction struct {
	seq     int64
	token   string
	task    *task.Task
	reads   key.Set
	writes  key.Set
	overlay *store.Overlay

	// waits maps each producer this instruction depends on to the keys
	// awaited from it.
	waits map[*instruction]key.Set

	// dependents is the inverted index: instructions awaiting this one's
	// output.
	dependents map[*instruction]struct{}

	done bool
}

func newInstruction(seq int64, token string, t *task.Task, overlay *store.Overlay, reads, writes key.Set) *instruction {
	return &instruction{
		seq:        seq,
		token:      token,
		task:       t,
		reads:      reads,
		writes:     writes,
		overlay:    overlay,
		waits:      make(map[*instruction]key.Set),
		dependents: make(map[*instruction]struct{}),
	}
}

// addDependency records that in awaits k from producer and registers in
// in the producer's dependent set.
func (in *instruction) addDependency(producer *instruction, k key.Key) {
	ks, ok := in.waits[producer]
	if !ok {
		ks = key.NewSet()
		in.waits[producer] = ks
	}
	ks.Add(k)
	producer.dependents[in] = struct{}{}
}

// eligible reports whether every dependency has delivered its output.
func (in *instruction) eligible() bool {
	return len(in.waits) == 0
}

// transferOutput copies the producer's post-execution values for the
// awaited keys into in's snapshot and drops the dependency edge. A
// transfer from a producer in does not wait on is a scheduler invariant
// violation.
func (in *instruction) transferOutput(producer *instruction) error {
	awaited, ok := in.waits[producer]
	if !ok {
		return &InvariantError{
			Code:    ErrCodeTransferWithoutDependency,
			Op:      "transferOutput",
			Seq:     in.seq,
			Label:   in.task.Label,
			Message: fmt.Sprintf("no dependency on producer seq=%d", producer.seq),
		}
	}
	for _, k := range awaited.Sorted() {
		v, present := producer.overlay.Peek(k)
		in.overlay.Receive(k, v, present)
	}
	delete(in.waits, producer)
	return nil
}
