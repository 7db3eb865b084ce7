package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay_DeterministicAndCommutative(t *testing.T) {
	path := writeScenario(t, validScenarioYAML)

	out, err := executeCommand(t, "replay", path)
	require.NoError(t, err)

	assert.Contains(t, out, "deterministic: yes")
	assert.Contains(t, out, "commutative:   yes")
}

func TestReplay_HazardScenarioCommutes(t *testing.T) {
	// Priorities favor the reader, but the read-after-write hazard forces
	// the writer first under both disciplines.
	path := writeScenario(t, `
name: hazard_replay
steps:
  - schedule:
      label: produce
      priority: low
      writes: [doc.graph]
      effect:
        set:
          doc.graph: { nodes: [1] }
  - schedule:
      label: consume
      priority: high
      reads: [doc.graph]
      writes: [doc.copy]
      effect:
        copy: { from: doc.graph, to: doc.copy }
  - settle: true
assertions: []
`)

	out, err := executeCommand(t, "replay", path, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "commutative:   yes")
	assert.Contains(t, out, "trace digest:")
}

func TestReplay_JSONOutput(t *testing.T) {
	path := writeScenario(t, validScenarioYAML)

	out, err := executeCommand(t, "replay", path, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Deterministic)
	assert.True(t, resp.Data.Commutative)
	assert.NotEmpty(t, resp.Data.TraceDigest)
	assert.Equal(t, resp.Data.OutOfOrderDigest, resp.Data.InOrderStateDigest)
}

func TestReplay_InOrderScenario(t *testing.T) {
	path := writeScenario(t, `
name: in_order_replay
discipline: in-order
steps:
  - schedule:
      label: a
      writes: [x]
      effect:
        set: { x: 1 }
  - schedule:
      label: b
      writes: [y]
      effect:
        set: { y: 2 }
  - settle: true
assertions: []
`)

	out, err := executeCommand(t, "replay", path)
	require.NoError(t, err)
	assert.Contains(t, out, "deterministic: yes")
	assert.Contains(t, out, "commutative:   yes")
}

func TestReplay_MissingFileExitsTwo(t *testing.T) {
	_, err := executeCommand(t, "replay", "/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
