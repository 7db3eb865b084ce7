package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args and captures its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// writeScenario writes scenario YAML to a temp file and returns its path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validScenarioYAML = `
name: cli_test
seed:
  doc.graph: { nodes: [] }
observers:
  - name: relayout
    watch: [doc.graph]
    emit:
      - label: layout
        reads: [doc.graph]
        writes: [doc.layout]
        effect:
          copy: { from: doc.graph, to: doc.layout }
steps:
  - schedule:
      label: edit
      writes: [doc.graph]
      effect:
        set:
          doc.graph: { nodes: [1] }
  - settle: true
assertions:
  - type: exec_order
    labels: [edit, layout]
  - type: backlog_empty
`

func TestRootCommand_HasSubcommands(t *testing.T) {
	out, err := executeCommand(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "check")
	assert.Contains(t, out, "trace")
	assert.Contains(t, out, "replay")
	assert.Contains(t, out, "archive")
}

func TestRootCommand_RejectsInvalidFormat(t *testing.T) {
	path := writeScenario(t, validScenarioYAML)

	_, err := executeCommand(t, "check", path, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCommand_AcceptsValidFormats(t *testing.T) {
	path := writeScenario(t, validScenarioYAML)

	for _, format := range ValidFormats {
		_, err := executeCommand(t, "check", path, "--format", format)
		assert.NoError(t, err, "format %q", format)
	}
}
