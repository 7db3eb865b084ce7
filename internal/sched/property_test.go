package sched

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/store"
	"github.com/probst/tangle/internal/task"
)

// randomFootprintTask builds a task over a random subset of the key
// universe with a deterministic effect: every written key receives a
// string naming the task and everything it read. Identical inputs always
// produce identical outputs, so two executions agree exactly when the
// scheduler fed them the same values.
func randomFootprintTask(rng *rand.Rand, idx int, universe []key.Key) *task.Task {
	label := fmt.Sprintf("task-%03d", idx)

	reads := key.NewSet()
	writes := key.NewSet()
	for _, k := range universe {
		switch rng.Intn(4) {
		case 0:
			reads.Add(k)
		case 1:
			writes.Add(k)
		case 2:
			reads.Add(k)
			writes.Add(k)
		}
	}

	priorities := []task.Priority{task.Low, task.Normal, task.High}
	priority := priorities[rng.Intn(len(priorities))]

	readKeys := reads.Sorted()
	writeKeys := writes.Sorted()
	effect := func(v store.View) error {
		inputs := ""
		for _, k := range readKeys {
			if val, ok := v.Get(k); ok {
				inputs += fmt.Sprintf("%s=%v;", k, val)
			} else {
				inputs += fmt.Sprintf("%s=absent;", k)
			}
		}
		for _, k := range writeKeys {
			if err := v.Set(k, label+"("+inputs+")"); err != nil {
				return err
			}
		}
		return nil
	}

	return task.New(effect,
		task.WithLabel(label),
		task.Reads(readKeys...),
		task.Writes(writeKeys...),
		task.WithPriority(priority),
	)
}

func dumpStore(s *store.Store) map[key.Key]any {
	out := make(map[key.Key]any, s.Len())
	for _, k := range s.Keys() {
		v, _ := s.Get(k)
		out[k] = v
	}
	return out
}

func runAll(t *testing.T, p Processor, want int) {
	t.Helper()
	executed := 0
	for {
		res, err := p.ProcessTask()
		require.NoError(t, err, "no stalls, no invariant violations")
		if !res.Ran {
			break
		}
		require.NoError(t, res.TaskErr)
		executed++
		require.LessOrEqual(t, executed, want, "more completions than scheduled tasks")
	}
	require.Equal(t, want, executed, "every scheduled task must eventually run")
	require.Equal(t, 0, p.Backlog())
}

// Whatever the priorities do to execution order, the final store must be
// the one a strict submission-order run produces.
func TestOutOfOrder_RandomSchedulesMatchSubmissionOrder(t *testing.T) {
	universes := [][]key.Key{
		{"a", "b", "c", "d", "e", "f"},
		{"x", "y"}, // narrow universe forces dense hazard chains
	}

	for ui, universe := range universes {
		for round := 0; round < 25; round++ {
			rng := rand.New(rand.NewSource(int64(ui*1000 + round)))

			tasks := make([]*task.Task, 40)
			for i := range tasks {
				tasks[i] = randomFootprintTask(rng, i, universe)
			}

			reordered := store.New()
			ooo := NewOutOfOrder(reordered, WithLogger(quiet()))
			for _, tk := range tasks {
				require.NoError(t, ooo.Schedule(tk, "c"))
			}
			runAll(t, ooo, len(tasks))

			sequential := store.New()
			ino := NewInOrder(sequential, WithLogger(quiet()))
			for _, tk := range tasks {
				require.NoError(t, ino.Schedule(tk, "c"))
			}
			runAll(t, ino, len(tasks))

			assert.Equal(t, dumpStore(sequential), dumpStore(reordered),
				"universe %d round %d: reordered final state diverged", ui, round)
			assert.True(t, sequential.DrainChanges().Equal(reordered.DrainChanges()),
				"universe %d round %d: change buffers diverged", ui, round)
		}
	}
}

// A backlog must always yield an eligible instruction: dependencies point
// only at earlier submissions, so no schedule can deadlock.
func TestOutOfOrder_RandomSchedulesNeverStall(t *testing.T) {
	universe := []key.Key{"p", "q", "r", "s"}

	for round := 0; round < 50; round++ {
		rng := rand.New(rand.NewSource(int64(9000 + round)))

		p := NewOutOfOrder(store.New(), WithLogger(quiet()))

		// Interleave scheduling and processing so the pools are exercised
		// in mixed states, not just fully loaded.
		scheduled, executed := 0, 0
		for scheduled < 60 || executed < scheduled {
			if scheduled < 60 && (executed == scheduled || rng.Intn(2) == 0) {
				require.NoError(t, p.Schedule(randomFootprintTask(rng, scheduled, universe), "c"))
				scheduled++
				continue
			}
			res, err := p.ProcessTask()
			require.NoError(t, err, "round %d: backlog of %d stalled", round, p.Backlog())
			if res.Ran {
				require.NoError(t, res.TaskErr)
				executed++
			} else {
				require.Equal(t, scheduled, executed, "round %d: idle with work outstanding", round)
			}
		}
		require.Equal(t, 0, p.Backlog())
	}
}
