package sched

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probst/tangle/internal/store"
	"github.com/probst/tangle/internal/task"
)

func TestInOrder_IdleProcessTask(t *testing.T) {
	p := NewInOrder(store.New(), WithLogger(quiet()))

	res, err := p.ProcessTask()

	require.NoError(t, err)
	assert.False(t, res.Ran)
	assert.Equal(t, 0, p.Backlog())
}

func TestInOrder_ExecutesSingleTask(t *testing.T) {
	base := store.New()
	p := NewInOrder(base, WithLogger(quiet()))

	require.NoError(t, p.Schedule(setTask("set-title", "doc/title", "untitled", task.WithPriority(task.High)), "c-1"))
	require.Equal(t, 1, p.Backlog())

	res, err := p.ProcessTask()

	require.NoError(t, err)
	assert.True(t, res.Ran)
	assert.Equal(t, "set-title", res.Label)
	assert.Equal(t, "c-1", res.Token)
	assert.Equal(t, int64(1), res.Seq)
	assert.Equal(t, task.High, res.Priority)
	assert.NoError(t, res.TaskErr)

	v, ok := base.Get("doc/title")
	require.True(t, ok)
	assert.Equal(t, "untitled", v)
}

func TestInOrder_ScheduleRejectsInvalidTask(t *testing.T) {
	p := NewInOrder(store.New(), WithLogger(quiet()))

	err := p.Schedule(task.New(nil, task.WithLabel("broken")), "c-1")

	require.Error(t, err)
	assert.Equal(t, 0, p.Backlog())
}

func TestInOrder_PriorityNeverReorders(t *testing.T) {
	p := NewInOrder(store.New(), WithLogger(quiet()))

	require.NoError(t, p.Schedule(setTask("low", "a", 1, task.WithPriority(task.Low)), "c"))
	require.NoError(t, p.Schedule(setTask("high", "b", 2, task.WithPriority(task.High)), "c"))
	require.NoError(t, p.Schedule(setTask("normal", "c", 3), "c"))

	labels := drain(t, p)

	assert.Equal(t, []string{"low", "high", "normal"}, labels)
}

func TestInOrder_EffectsSeeEarlierWritesDirectly(t *testing.T) {
	base := store.New()
	p := NewInOrder(base, WithLogger(quiet()))

	require.NoError(t, p.Schedule(setTask("w", "k", "value"), "c"))
	require.NoError(t, p.Schedule(copyTask("r", "k", "out"), "c"))

	drain(t, p)

	out, ok := base.Get("out")
	require.True(t, ok)
	assert.Equal(t, "value", out)
}

func TestInOrder_DeclaredSetsAreNotEnforced(t *testing.T) {
	base := store.New()
	p := NewInOrder(base, WithLogger(quiet()))

	// Neither the read nor the write appears in the declared sets; the
	// in-order discipline runs the effect against the store regardless.
	rogue := task.New(func(v store.View) error {
		if _, ok := v.Get("unlisted-in"); ok {
			return v.Set("unlisted-out", "landed")
		}
		return v.Set("unlisted-out", "absent")
	}, task.WithLabel("rogue"), task.Writes("declared"))

	base.Set("unlisted-in", true)
	base.DrainChanges()

	require.NoError(t, p.Schedule(rogue, "c"))
	res, err := p.ProcessTask()

	require.NoError(t, err)
	assert.NoError(t, res.TaskErr)
	v, ok := base.Get("unlisted-out")
	require.True(t, ok)
	assert.Equal(t, "landed", v)
}

func TestInOrder_WritesRecordChangesImmediately(t *testing.T) {
	base := store.New()
	p := NewInOrder(base, WithLogger(quiet()))

	require.NoError(t, p.Schedule(setTask("w", "k", 1), "c"))
	_, err := p.ProcessTask()
	require.NoError(t, err)

	changed := base.DrainChanges()
	assert.True(t, changed.Has("k"))
}

func TestInOrder_FailedEffectDoesNotStopTheQueue(t *testing.T) {
	base := store.New()
	p := NewInOrder(base, WithLogger(quiet()))

	boom := errors.New("boom")
	failing := task.New(func(v store.View) error {
		if err := v.Set("partial", "landed"); err != nil {
			return err
		}
		return boom
	}, task.WithLabel("failing"), task.Writes("partial"))

	require.NoError(t, p.Schedule(failing, "c"))
	require.NoError(t, p.Schedule(setTask("after", "k", "ran"), "c"))

	res, err := p.ProcessTask()
	require.NoError(t, err)
	require.Error(t, res.TaskErr)
	assert.True(t, IsTaskError(res.TaskErr))
	assert.ErrorIs(t, res.TaskErr, boom)

	// Direct execution means the write before the failure already landed.
	v, ok := base.Get("partial")
	require.True(t, ok)
	assert.Equal(t, "landed", v)

	res, err = p.ProcessTask()
	require.NoError(t, err)
	assert.Equal(t, "after", res.Label)
	assert.NoError(t, res.TaskErr)
}

func TestInOrder_CompletionHook(t *testing.T) {
	base := store.New()

	var seen []string
	var p *InOrder
	p = NewInOrder(base, WithLogger(quiet()), WithCompletionHook(func(res Result) {
		seen = append(seen, res.Label)
		if res.Label == "first" {
			_ = p.Schedule(setTask("spawned", "s", 1), res.Token)
		}
	}))

	require.NoError(t, p.Schedule(setTask("first", "k", 1), "c"))

	drain(t, p)

	assert.Equal(t, []string{"first", "spawned"}, seen)
	assert.True(t, base.Has("s"))
}

func TestInOrder_ReentrantProcessTask(t *testing.T) {
	base := store.New()
	var p *InOrder

	var nestedErr error
	reentrant := task.New(func(v store.View) error {
		_, nestedErr = p.ProcessTask()
		return nil
	}, task.WithLabel("reentrant"), task.Writes("k"))

	p = NewInOrder(base, WithLogger(quiet()))
	require.NoError(t, p.Schedule(reentrant, "c"))

	res, err := p.ProcessTask()

	require.NoError(t, err)
	assert.True(t, res.Ran)
	require.Error(t, nestedErr)
	assert.True(t, IsInvariantError(nestedErr))
	var ie *InvariantError
	require.ErrorAs(t, nestedErr, &ie)
	assert.Equal(t, ErrCodeReentrantProcess, ie.Code)
}

func TestInOrder_ClockOption(t *testing.T) {
	p := NewInOrder(store.New(), WithLogger(quiet()), WithClock(NewClockAt(41)))

	require.NoError(t, p.Schedule(setTask("w", "k", 1), "c"))
	res, err := p.ProcessTask()

	require.NoError(t, err)
	assert.Equal(t, int64(42), res.Seq)
}
