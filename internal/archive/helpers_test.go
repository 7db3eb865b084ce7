package archive

import (
	"path/filepath"
	"testing"

	"github.com/probst/tangle/internal/key"
	"github.com/probst/tangle/internal/payload"
)

// keyOf shortens key construction in table tests.
func keyOf(s string) key.Key { return key.Key(s) }

// createTestArchive creates an archive in a temp directory.
func createTestArchive(t *testing.T) *Archive {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// graphPayload builds a small document payload for tests.
func graphPayload(title string, nodes ...int64) payload.Value {
	list := make(payload.List, len(nodes))
	for i, n := range nodes {
		list[i] = payload.Map{"id": payload.Int(n)}
	}
	return payload.Map{
		"title": payload.String(title),
		"nodes": list,
	}
}
