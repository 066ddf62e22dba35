package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sidefx/internal/analysis"
	"github.com/roach88/sidefx/internal/store"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	*RootOptions
	Roots       []string // restrict to these roots; empty means all
	Explain     bool     // print the decision path for negative verdicts
	DBPath      string   // persist the report when set
	Concurrency int
	MaxDepth    int
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <specs-dir>",
		Short: "Decide memory effect freedom and speculatability for each root",
		Long: `Analyze every root tree declared in the CUE specs.

Each root receives two verdicts: whether executing it has no memory
effects, and whether it may be executed speculatively. Negative verdicts
are not errors; the command exits 0 whenever the analysis itself ran.

With --db the report is written to a SQLite database for later
inspection with the history command.`,
		Example: `  # Analyze all roots
  sidefx analyze ./specs

  # Explain why two roots were rejected and keep the result
  sidefx analyze ./specs --root guarded_div --root region_store --explain --db sidefx.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Roots, "root", nil, "analyze only this root (repeatable)")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "show the op that decided each negative verdict")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database to record the report in")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", analysis.DefaultConcurrency, "roots analyzed in parallel")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", analysis.DefaultMaxDepth, "nesting depth that triggers a warning (negative disables)")

	return cmd
}

func runAnalyze(opts *AnalyzeOptions, specsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.fail(code, message, nil)
	}

	roots, err := selectRoots(loadResult, opts.Roots)
	if err != nil {
		return formatter.fail(ErrCodeUnknownRoot, err.Error(), nil)
	}
	if len(roots) == 0 {
		return formatter.fail(ErrCodeGeneric, fmt.Sprintf("no roots declared in %s", specsDir), nil)
	}

	report, err := analysis.Run(ctx, roots, analysis.Options{
		Concurrency: opts.Concurrency,
		MaxDepth:    opts.MaxDepth,
		Logger:      newLogger(cmd.ErrOrStderr(), opts.Verbose),
	})
	if err != nil {
		return formatter.fail(ErrCodeGeneric, "analysis failed", err)
	}

	if opts.DBPath != "" {
		if err := recordReport(ctx, opts.DBPath, report); err != nil {
			return formatter.fail(ErrCodeStore, "recording report", err)
		}
		formatter.VerboseLog("Recorded run %s in %s", report.RunID, opts.DBPath)
	}

	return outputAnalyzeReport(formatter, report, opts.Explain)
}

// selectRoots picks the requested roots in declaration order.
// An empty selection means every root.
func selectRoots(loaded *LoadResult, names []string) ([]analysis.Root, error) {
	want := make(map[string]bool, len(names))
	for _, name := range names {
		want[name] = true
	}

	var roots []analysis.Root
	for _, root := range loaded.Roots {
		if len(want) > 0 && !want[root.Name] {
			continue
		}
		delete(want, root.Name)
		roots = append(roots, analysis.Root{Name: root.Name, Op: root.Op})
	}

	for _, name := range names {
		if want[name] {
			return nil, fmt.Errorf("unknown root %q", name)
		}
	}
	return roots, nil
}

func recordReport(ctx context.Context, dbPath string, report *analysis.Report) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	_, err = st.WriteReport(ctx, report)
	return err
}

func outputAnalyzeReport(formatter *OutputFormatter, report *analysis.Report, explain bool) error {
	if formatter.IsJSON() {
		return formatter.Encode(CLIResponse{
			Status: "ok",
			Data:   report,
			RunID:  report.RunID,
		})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s\n\n", report.RunID)

	width := len("ROOT")
	for _, res := range report.Roots {
		width = max(width, len(res.Name))
	}

	fmt.Fprintf(w, "%-*s  %-18s  %-12s  %s\n", width, "ROOT", "MEMORY_EFFECT_FREE", "SPECULATABLE", "OP")
	for _, res := range report.Roots {
		fmt.Fprintf(w, "%-*s  %-18s  %-12s  %s\n", width, res.Name, yesNo(res.MemoryEffectFree), yesNo(res.Speculatable), res.Op)
		if !explain {
			continue
		}
		if !res.Memory.Verdict {
			fmt.Fprintf(w, "%s  memory: %s\n", strings.Repeat(" ", width), res.Memory)
		}
		if !res.Speculation.Verdict {
			fmt.Fprintf(w, "%s  speculation: %s\n", strings.Repeat(" ", width), res.Speculation)
		}
	}

	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "\n%s: %s", warning.Level, warning.Message)
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintln(w)
	}

	s := report.Summary
	fmt.Fprintf(w, "\n%d root(s), %d op(s): %d memory effect free, %d speculatable\n",
		s.Roots, s.Ops, s.MemoryEffectFree, s.Speculatable)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
