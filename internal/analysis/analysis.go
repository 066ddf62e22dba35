package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/sidefx/internal/ir"
	"github.com/roach88/sidefx/internal/sideeffect"
)

// Defaults for Options.
const (
	DefaultConcurrency = 4
	DefaultMaxDepth    = 512
)

// Root is a named top-level operation to analyse.
type Root struct {
	Name string
	Op   ir.Operation
}

// Options configures Run.
type Options struct {
	// Concurrency bounds how many roots are analysed at once.
	// Zero means DefaultConcurrency.
	Concurrency int

	// MaxDepth is the nesting depth above which a DepthWarning is reported.
	// Zero means DefaultMaxDepth; negative disables the check.
	MaxDepth int

	// RunID overrides the generated UUIDv7 run identifier.
	RunID string

	// Logger receives progress logs. Nil means slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.RunID == "" {
		o.RunID = uuid.Must(uuid.NewV7()).String()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// RootResult holds both verdicts for one root.
type RootResult struct {
	Name             string                 `json:"name"`
	Op               string                 `json:"op"`
	Fingerprint      string                 `json:"fingerprint"`
	OpCount          int                    `json:"op_count"`
	Depth            int                    `json:"depth"`
	MemoryEffectFree bool                   `json:"memory_effect_free"`
	Speculatable     bool                   `json:"speculatable"`
	Memory           sideeffect.Explanation `json:"memory"`
	Speculation      sideeffect.Explanation `json:"speculation"`
}

// Summary aggregates a report.
type Summary struct {
	Roots            int `json:"roots"`
	Ops              int `json:"ops"`
	MemoryEffectFree int `json:"memory_effect_free"`
	Speculatable     int `json:"speculatable"`
}

// Report is the outcome of one Run.
type Report struct {
	RunID    string         `json:"run_id"`
	Version  string         `json:"analyzer_version"`
	Roots    []RootResult   `json:"roots"`
	Summary  Summary        `json:"summary"`
	Warnings []DepthWarning `json:"warnings,omitempty"`
	Hash     string         `json:"hash"`
}

// Root returns the result for the named root.
func (r *Report) Root(name string) (RootResult, bool) {
	for _, res := range r.Roots {
		if res.Name == name {
			return res, true
		}
	}
	return RootResult{}, false
}

// Run analyses every root and returns the assembled report.
// Root names must be unique and non-empty.
func Run(ctx context.Context, roots []Root, opts Options) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateRoots(roots); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	logger := opts.Logger.With("run_id", opts.RunID)

	logger.Info("analysis starting", "roots", len(roots), "concurrency", opts.Concurrency)

	results := make([]RootResult, len(roots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for i, root := range roots {
		i, root := i, root
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := analyzeRoot(root)
			if err != nil {
				return err
			}
			logger.Debug("root analysed",
				"root", res.Name,
				"op", res.Op,
				"memory_effect_free", res.MemoryEffectFree,
				"speculatable", res.Speculatable,
			)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Name < results[j].Name
	})

	report := &Report{
		RunID:    opts.RunID,
		Version:  ir.AnalyzerVersion,
		Roots:    results,
		Summary:  summarize(results),
		Warnings: CheckDepth(results, opts.MaxDepth),
	}
	for _, w := range report.Warnings {
		if w.Level == "warning" {
			logger.Warn("deep nesting", "root", w.Root, "depth", w.Depth, "limit", w.Limit)
		}
	}

	hash, err := report.ComputeHash()
	if err != nil {
		return nil, err
	}
	report.Hash = hash

	logger.Info("analysis finished",
		"memory_effect_free", report.Summary.MemoryEffectFree,
		"speculatable", report.Summary.Speculatable,
		"hash", report.Hash,
	)
	return report, nil
}

func validateRoots(roots []Root) error {
	seen := make(map[string]bool, len(roots))
	for i, root := range roots {
		if root.Name == "" {
			return fmt.Errorf("root %d: name is required", i)
		}
		if root.Op == nil {
			return fmt.Errorf("root %q: op is nil", root.Name)
		}
		if seen[root.Name] {
			return fmt.Errorf("root %q: duplicate name", root.Name)
		}
		seen[root.Name] = true
	}
	return nil
}

func analyzeRoot(root Root) (RootResult, error) {
	fp, err := ir.Fingerprint(root.Op)
	if err != nil {
		return RootResult{}, fmt.Errorf("root %q: %w", root.Name, err)
	}

	memory := sideeffect.ExplainMemoryEffects(root.Op)
	speculation := sideeffect.ExplainSpeculation(root.Op)

	return RootResult{
		Name:             root.Name,
		Op:               root.Op.Name(),
		Fingerprint:      fp,
		OpCount:          ir.Count(root.Op),
		Depth:            ir.Depth(root.Op),
		MemoryEffectFree: sideeffect.IsMemoryEffectFree(root.Op),
		Speculatable:     sideeffect.IsSpeculatable(root.Op),
		Memory:           memory,
		Speculation:      speculation,
	}, nil
}

func summarize(results []RootResult) Summary {
	s := Summary{Roots: len(results)}
	for _, res := range results {
		s.Ops += res.OpCount
		if res.MemoryEffectFree {
			s.MemoryEffectFree++
		}
		if res.Speculatable {
			s.Speculatable++
		}
	}
	return s
}

// CanonicalMap returns the report content that the hash covers: everything
// except the run ID.
func (r *Report) CanonicalMap() map[string]any {
	roots := make([]any, len(r.Roots))
	for i, res := range r.Roots {
		roots[i] = map[string]any{
			"name":               res.Name,
			"op":                 res.Op,
			"fingerprint":        res.Fingerprint,
			"op_count":           res.OpCount,
			"depth":              res.Depth,
			"memory_effect_free": res.MemoryEffectFree,
			"speculatable":       res.Speculatable,
			"memory":             explanationMap(res.Memory),
			"speculation":        explanationMap(res.Speculation),
		}
	}
	return map[string]any{
		"analyzer_version": r.Version,
		"roots":            roots,
	}
}

func explanationMap(e sideeffect.Explanation) map[string]any {
	m := map[string]any{"verdict": e.Verdict}
	if !e.Verdict {
		m["reason"] = string(e.Reason)
		m["path"] = append([]string{}, e.Path...)
	}
	return m
}

// ComputeHash hashes CanonicalMap.
func (r *Report) ComputeHash() (string, error) {
	data, err := ir.MarshalCanonical(r.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("report hash: %w", err)
	}
	return ir.HashWithDomain(ir.DomainReport, data), nil
}
