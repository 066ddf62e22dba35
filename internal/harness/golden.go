package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sidefx/internal/analysis"
	"github.com/roach88/sidefx/internal/ir"
	"github.com/roach88/sidefx/internal/sideeffect"
)

// Snapshot is the golden-file view of a scenario result: verdicts and
// explanations per root. Fingerprints and hashes are left out so golden
// files stay readable and survive changes to the hashing scheme.
func Snapshot(scenario *Scenario, report *analysis.Report) map[string]any {
	roots := make([]any, len(report.Roots))
	for i, res := range report.Roots {
		roots[i] = map[string]any{
			"name":               res.Name,
			"op":                 res.Op,
			"op_count":           res.OpCount,
			"depth":              res.Depth,
			"memory_effect_free": res.MemoryEffectFree,
			"speculatable":       res.Speculatable,
			"memory":             explanationSnapshot(res.Memory),
			"speculation":        explanationSnapshot(res.Speculation),
		}
	}
	return map[string]any{
		"scenario": scenario.Name,
		"roots":    roots,
	}
}

func explanationSnapshot(e sideeffect.Explanation) map[string]any {
	if e.Verdict {
		return map[string]any{"verdict": true}
	}
	return map[string]any{
		"verdict": false,
		"reason":  string(e.Reason),
		"path":    append([]string{}, e.Path...),
	}
}

// SnapshotJSON renders Snapshot as canonical JSON.
func SnapshotJSON(scenario *Scenario, report *analysis.Report) ([]byte, error) {
	return ir.MarshalCanonical(Snapshot(scenario, report))
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario cannot be executed. Mismatches fail t via
// goldie; failed expectations fail t directly.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Errorf("%s: %s", scenario.Name, msg)
	}

	return AssertGolden(t, scenario, result)
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(scenario, result.Report)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}
