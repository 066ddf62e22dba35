package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sidefx/internal/analysis"
	"github.com/roach88/sidefx/internal/sideeffect"
)

// createTestStore creates a new file-backed store in a temp dir.
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

// createTestReport builds a two-root report without running an analysis.
func createTestReport(runID string) *analysis.Report {
	return &analysis.Report{
		RunID:   runID,
		Version: "0.1.0",
		Hash:    "hash-" + runID,
		Roots: []analysis.RootResult{
			{
				Name:             "guarded_add",
				Op:               "scf.if",
				Fingerprint:      "fp-guarded",
				OpCount:          3,
				Depth:            1,
				MemoryEffectFree: true,
				Speculatable:     true,
				Memory:           sideeffect.Explanation{Verdict: true},
				Speculation:      sideeffect.Explanation{Verdict: true},
			},
			{
				Name:             "store_in_loop",
				Op:               "scf.for",
				Fingerprint:      "fp-store",
				OpCount:          2,
				Depth:            1,
				MemoryEffectFree: false,
				Speculatable:     false,
				Memory: sideeffect.Explanation{
					Reason: sideeffect.ReasonEffectDeclared,
					Path:   []string{"scf.for", "memref.store"},
				},
				Speculation: sideeffect.Explanation{
					Reason: sideeffect.ReasonNotSpeculatable,
					Path:   []string{"scf.for"},
				},
			},
		},
		Summary: analysis.Summary{Roots: 2, Ops: 5, MemoryEffectFree: 1, Speculatable: 1},
	}
}
