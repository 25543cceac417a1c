package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/umicp/internal/envelope"
	"github.com/roach88/umicp/internal/testutil"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEnvelope creates a valid envelope with the given fields.
func createTestEnvelope(t *testing.T, from, to, id string, op envelope.Operation) *envelope.Envelope {
	t.Helper()
	return testutil.Envelope(t, from, to, id, op)
}
