package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/store"
)

func noop(store.View) error { return nil }

func TestNewDefaults(t *testing.T) {
	tk := New(noop)

	require.NotNil(t, tk.Effect)
	assert.Equal(t, "", tk.Label)
	assert.Equal(t, Normal, tk.Priority)
	assert.Equal(t, 0, tk.Reads.Len())
	assert.Equal(t, 0, tk.Writes.Len())
	assert.NoError(t, tk.Validate())
}

func TestNewWithOptions(t *testing.T) {
	tk := New(noop,
		WithLabel("recount"),
		Reads("doc/graph", "doc/meta"),
		Writes("doc/stats"),
		WithPriority(High),
	)

	assert.Equal(t, "recount", tk.Label)
	assert.Equal(t, High, tk.Priority)
	assert.True(t, tk.Reads.Equal(key.NewSet("doc/graph", "doc/meta")))
	assert.True(t, tk.Writes.Equal(key.NewSet("doc/stats")))
}

func TestReadModifyWriteDeclaresBothSets(t *testing.T) {
	tk := New(noop, Reads("counter"), Writes("counter"))

	assert.True(t, tk.Reads.Has("counter"))
	assert.True(t, tk.Writes.Has("counter"))
	assert.NoError(t, tk.Validate())
}

func TestValidateRejectsNilEffect(t *testing.T) {
	tk := New(nil, WithLabel("broken"))

	err := tk.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestValidateRejectsNilTask(t *testing.T) {
	var tk *Task
	assert.Error(t, tk.Validate())
}

func TestValidateRejectsEmptyKey(t *testing.T) {
	assert.Error(t, New(noop, Reads("")).Validate())
	assert.Error(t, New(noop, Writes("")).Validate())
}

func TestPriorityOrdering(t *testing.T) {
	assert.Greater(t, int(High), int(Normal))
	assert.Greater(t, int(Normal), int(Low))
}
