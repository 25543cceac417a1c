package conformance

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/umicp/internal/canonical"
)

// Snapshot renders the observed outputs of every case as canonical JSON.
// Pass/fail status is left out so a snapshot records what the code does,
// not what the vectors expected.
func (r *Report) Snapshot() ([]byte, error) {
	cases := make([]any, len(r.Cases))
	for i, c := range r.Cases {
		cases[i] = map[string]any{
			"kind":   c.Kind,
			"name":   c.Name,
			"actual": c.Actual,
		}
	}
	v, err := canonical.FromGo(map[string]any{
		"suite": r.Suite,
		"cases": cases,
	})
	if err != nil {
		return nil, err
	}
	return canonical.Marshal(v)
}

// AssertGolden compares the report snapshot against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/conformance -update
func AssertGolden(t *testing.T, name string, report *Report) {
	t.Helper()

	data, err := report.Snapshot()
	if err != nil {
		t.Fatalf("snapshot %s: %v", name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
