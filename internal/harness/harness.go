package harness

import (
	"context"
	"fmt"

	"github.com/roach88/sidefx/internal/analysis"
	"github.com/roach88/sidefx/internal/compiler"
	"github.com/roach88/sidefx/internal/store"
	"github.com/roach88/sidefx/internal/testutil"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Errors contains one message per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Report is the full analysis report. Its run ID is the scenario name
	// so that repeated runs produce identical reports.
	Report *analysis.Report `json:"report"`
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build the dialect registry and validate each definition
//  2. Build every root tree
//  3. Analyse the roots
//  4. Record the report in a fresh in-memory store and read it back
//  5. Check each expectation against the stored verdicts
//
// A returned error means the scenario could not be executed at all;
// failed expectations are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	reg, err := scenario.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to build dialect: %w", err)
	}
	for _, name := range reg.Names() {
		def, _ := reg.Lookup(name)
		if errs := compiler.Validate(def); compiler.HasErrors(errs) {
			return nil, fmt.Errorf("invalid op %s: %s", name, errs[0].Error())
		}
	}

	roots := make([]analysis.Root, 0, len(scenario.Roots))
	for _, name := range sortedKeys(scenario.Roots) {
		roots = append(roots, analysis.Root{Name: name, Op: scenario.Roots[name].Build(reg)})
	}

	report, err := analysis.Run(ctx, roots, analysis.Options{
		RunID:       scenario.Name,
		Concurrency: 1,
		Logger:      testutil.DiscardLogger(), // Suppress logs in scenarios
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyse roots: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if _, err := st.WriteReport(ctx, report); err != nil {
		return nil, err
	}
	stored, err := st.ReadReport(ctx, report.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back report: %w", err)
	}

	result := &Result{Pass: true, Report: report}
	if stored.Run.ReportHash != report.Hash {
		result.AddError("stored report hash %s differs from computed %s", stored.Run.ReportHash, report.Hash)
	}

	verdicts := make(map[string]store.Verdict, len(stored.Verdicts))
	for _, v := range stored.Verdicts {
		verdicts[v.Root] = v
	}
	for _, name := range sortedKeys(scenario.Expect) {
		checkExpectation(result, name, scenario.Expect[name], verdicts[name])
	}

	return result, nil
}

func checkExpectation(result *Result, root string, exp Expectation, got store.Verdict) {
	if got.MemoryEffectFree != *exp.MemoryEffectFree {
		result.AddError("%s: memory_effect_free = %v, want %v (%s)",
			root, got.MemoryEffectFree, *exp.MemoryEffectFree, got.Memory)
	}
	if got.Speculatable != *exp.Speculatable {
		result.AddError("%s: speculatable = %v, want %v (%s)",
			root, got.Speculatable, *exp.Speculatable, got.Speculation)
	}
	if exp.MemoryBlocker != "" && got.Memory.Blocker() != exp.MemoryBlocker {
		result.AddError("%s: memory blocker = %q, want %q", root, got.Memory.Blocker(), exp.MemoryBlocker)
	}
	if exp.SpeculationBlocker != "" && got.Speculation.Blocker() != exp.SpeculationBlocker {
		result.AddError("%s: speculation blocker = %q, want %q", root, got.Speculation.Blocker(), exp.SpeculationBlocker)
	}
}
