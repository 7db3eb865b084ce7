package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/store"
	"github.com/probst/tangle/internal/task"
)

func noopEffect(store.View) error { return nil }

func testInstruction(t *testing.T, base *store.Store, seq int64, label string, reads, writes key.Set) *instruction {
	t.Helper()
	tk := task.New(noopEffect, task.WithLabel(label))
	overlay := store.NewOverlay(base, reads, writes, false)
	return newInstruction(seq, "cascade-test", tk, overlay, reads, writes)
}

func TestInstruction_AddDependency(t *testing.T) {
	base := store.New()
	producer := testInstruction(t, base, 1, "producer", key.NewSet(), key.NewSet("k"))
	consumer := testInstruction(t, base, 2, "consumer", key.NewSet("k"), key.NewSet())

	require.True(t, consumer.eligible(), "no dependencies yet")

	consumer.addDependency(producer, "k")

	assert.False(t, consumer.eligible())
	assert.Contains(t, producer.dependents, consumer, "inverted index updated")
	assert.True(t, consumer.waits[producer].Has("k"))
}

func TestInstruction_AddDependency_SameProducerTwoKeys(t *testing.T) {
	base := store.New()
	producer := testInstruction(t, base, 1, "producer", key.NewSet(), key.NewSet("a", "b"))
	consumer := testInstruction(t, base, 2, "consumer", key.NewSet("a", "b"), key.NewSet())

	consumer.addDependency(producer, "a")
	consumer.addDependency(producer, "b")

	assert.Len(t, consumer.waits, 1, "one edge per producer")
	assert.True(t, consumer.waits[producer].Equal(key.NewSet("a", "b")))
}

func TestInstruction_TransferOutput(t *testing.T) {
	base := store.New()
	producer := testInstruction(t, base, 1, "producer", key.NewSet(), key.NewSet("k"))
	consumer := testInstruction(t, base, 2, "consumer", key.NewSet("k"), key.NewSet())
	consumer.addDependency(producer, "k")

	require.NoError(t, producer.overlay.Set("k", "produced"))

	require.NoError(t, consumer.transferOutput(producer))

	assert.True(t, consumer.eligible(), "last dependency satisfied")
	v, ok := consumer.overlay.Get("k")
	require.True(t, ok)
	assert.Equal(t, "produced", v)
}

func TestInstruction_TransferOutput_EffectiveValueWhenUnwritten(t *testing.T) {
	base := store.New()
	base.Set("k", "original")

	producer := testInstruction(t, base, 1, "producer", key.NewSet(), key.NewSet("k"))
	consumer := testInstruction(t, base, 2, "consumer", key.NewSet("k"), key.NewSet())
	consumer.addDependency(producer, "k")

	// Producer declared the write but never performed it; the consumer
	// receives what the producer observed.
	require.NoError(t, consumer.transferOutput(producer))

	v, ok := consumer.overlay.Get("k")
	require.True(t, ok)
	assert.Equal(t, "original", v)
}

func TestInstruction_TransferOutput_Absence(t *testing.T) {
	base := store.New()
	producer := testInstruction(t, base, 1, "producer", key.NewSet(), key.NewSet("k"))
	consumer := testInstruction(t, base, 2, "consumer", key.NewSet("k"), key.NewSet())
	consumer.addDependency(producer, "k")

	require.NoError(t, consumer.transferOutput(producer))
	base.Set("k", "written-after-transfer")

	_, ok := consumer.overlay.Get("k")
	assert.False(t, ok, "transferred absence shadows later store writes")
}

func TestInstruction_TransferOutput_WithoutDependency(t *testing.T) {
	base := store.New()
	producer := testInstruction(t, base, 1, "producer", key.NewSet(), key.NewSet("k"))
	stranger := testInstruction(t, base, 2, "stranger", key.NewSet(), key.NewSet())

	err := stranger.transferOutput(producer)

	require.Error(t, err)
	assert.True(t, IsInvariantError(err))

	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrCodeTransferWithoutDependency, ie.Code)
	assert.Equal(t, int64(2), ie.Seq)
}

func TestInstruction_TransferOutput_Twice(t *testing.T) {
	base := store.New()
	producer := testInstruction(t, base, 1, "producer", key.NewSet(), key.NewSet("k"))
	consumer := testInstruction(t, base, 2, "consumer", key.NewSet("k"), key.NewSet())
	consumer.addDependency(producer, "k")

	require.NoError(t, consumer.transferOutput(producer))

	err := consumer.transferOutput(producer)
	assert.True(t, IsInvariantError(err), "edge already consumed")
}

func TestInstruction_EligibleAfterAllProducers(t *testing.T) {
	base := store.New()
	p1 := testInstruction(t, base, 1, "p1", key.NewSet(), key.NewSet("a"))
	p2 := testInstruction(t, base, 2, "p2", key.NewSet(), key.NewSet("b"))
	consumer := testInstruction(t, base, 3, "consumer", key.NewSet("a", "b"), key.NewSet())

	consumer.addDependency(p1, "a")
	consumer.addDependency(p2, "b")

	require.NoError(t, consumer.transferOutput(p1))
	assert.False(t, consumer.eligible(), "still waiting on p2")

	require.NoError(t, consumer.transferOutput(p2))
	assert.True(t, consumer.eligible())
}
