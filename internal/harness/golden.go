package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/filescenario/internal/canonical"
	"github.com/roach88/filescenario/internal/scenario"
	"github.com/roach88/filescenario/internal/testutil"
)

// Snapshot captures the stored read of a scenario execution.
// Run IDs and emitted_at are excluded so snapshots are stable across runs.
type Snapshot struct {
	ScenarioName string       `json:"scenario_name"`
	SyncMode     string       `json:"sync_mode"`
	Messages     []TraceEvent `json:"messages"`
}

// Snapshot returns the canonical JSON snapshot of the result, terminated by
// a newline.
func (r *Result) Snapshot() ([]byte, error) {
	snap := Snapshot{
		ScenarioName: r.Scenario,
		SyncMode:     string(r.SyncMode),
		Messages:     r.Trace,
	}
	data, err := canonical.Marshal(snap)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its stored read against a
// golden file. The golden file is stored in testdata/golden/{name}.golden
//
// To regenerate golden files, run:
//
//	go test ./... -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the read doesn't match the golden file.
func RunWithGolden(t *testing.T, scn *scenario.TestScenario, opts ...Option) (*Result, error) {
	t.Helper()

	opts = append([]Option{WithRunIDGenerator(testutil.NewFixedRunIDGenerator("golden"))}, opts...)
	result, err := Run(context.Background(), scn, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scn.Name(), result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := result.Snapshot()
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
