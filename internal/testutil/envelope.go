package testutil

import (
	"testing"

	"github.com/roach88/umicp/internal/canonical"
	"github.com/roach88/umicp/internal/envelope"
)

// Envelope returns a valid envelope carrying the capability {"v": 1}.
// It fails the test if op is not a recognized operation.
func Envelope(t testing.TB, from, to, id string, op envelope.Operation) *envelope.Envelope {
	t.Helper()
	e := envelope.New().SetFrom(from).SetTo(to).SetMessageID(id)
	if err := e.SetOperation(op); err != nil {
		t.Fatalf("SetOperation(%v) failed: %v", op, err)
	}
	if err := e.SetCapability("v", canonical.Int(1)); err != nil {
		t.Fatalf("SetCapability() failed: %v", err)
	}
	return e
}
