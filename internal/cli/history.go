package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sidefx/internal/store"
)

// latestRunID selects the most recent run.
const latestRunID = "latest"

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DBPath      string
	Fingerprint string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history --db <path> [run-id|latest]",
		Short: "Inspect reports recorded by analyze --db",
		Long: `Inspect analysis reports stored in a SQLite database.

Without arguments every recorded run is listed oldest first. Given a run ID
(or "latest") the verdicts of that run are shown. With --fingerprint the
verdicts of every structurally identical root across all runs are listed.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runHistory(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database written by analyze --db")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "list verdicts for this root fingerprint")

	return cmd
}

func runHistory(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.DBPath == "" {
		return formatter.fail(ErrCodeGeneric, "--db is required", nil)
	}
	if runID != "" && opts.Fingerprint != "" {
		return formatter.fail(ErrCodeGeneric, "a run ID and --fingerprint are mutually exclusive", nil)
	}
	// Opening would create an empty database; a typo should not.
	if _, err := os.Stat(opts.DBPath); err != nil {
		return formatter.fail(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.DBPath), nil)
	}

	st, err := store.Open(opts.DBPath)
	if err != nil {
		return formatter.fail(ErrCodeStore, "opening database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case opts.Fingerprint != "":
		return historyFingerprint(ctx, formatter, st, opts.Fingerprint)
	case runID != "":
		return historyRun(ctx, formatter, st, runID)
	default:
		return historyList(ctx, formatter, st)
	}
}

func historyList(ctx context.Context, formatter *OutputFormatter, st *store.Store) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return formatter.fail(ErrCodeStore, "listing runs", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(runs)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-36s  %-7s  %5s  %5s  %5s  %s\n", "SEQ", "RUN", "VERSION", "ROOTS", "FREE", "SPEC", "HASH")
	for _, run := range runs {
		fmt.Fprintf(w, "%-4d  %-36s  %-7s  %5d  %5d  %5d  %s\n",
			run.Seq, run.ID, run.AnalyzerVersion, run.Roots, run.MemoryEffectFree, run.Speculatable, shortHash(run.ReportHash))
	}
	return nil
}

func historyRun(ctx context.Context, formatter *OutputFormatter, st *store.Store, runID string) error {
	if runID == latestRunID {
		latest, err := st.LatestRun(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.fail(ErrCodeNotFound, "no runs recorded", nil)
		}
		if err != nil {
			return formatter.fail(ErrCodeStore, "reading latest run", err)
		}
		runID = latest.ID
	}

	report, err := st.ReadReport(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return formatter.fail(ErrCodeNotFound, fmt.Sprintf("run not found: %s", runID), nil)
	}
	if err != nil {
		return formatter.fail(ErrCodeStore, "reading run", err)
	}

	if formatter.IsJSON() {
		return formatter.Encode(CLIResponse{Status: "ok", Data: report, RunID: report.Run.ID})
	}

	w := formatter.Writer
	run := report.Run
	fmt.Fprintf(w, "Run %s (seq %d, analyzer %s)\n", run.ID, run.Seq, run.AnalyzerVersion)
	fmt.Fprintf(w, "Hash %s\n\n", run.ReportHash)
	for _, v := range report.Verdicts {
		fmt.Fprintf(w, "%s (%s, %d op(s))\n", v.Root, v.Op, v.OpCount)
		fmt.Fprintf(w, "  memory effect free: %s\n", v.Memory)
		fmt.Fprintf(w, "  speculatable:       %s\n", v.Speculation)
	}
	fmt.Fprintf(w, "\n%d root(s), %d op(s): %d memory effect free, %d speculatable\n",
		run.Roots, run.Ops, run.MemoryEffectFree, run.Speculatable)
	return nil
}

func historyFingerprint(ctx context.Context, formatter *OutputFormatter, st *store.Store, fingerprint string) error {
	verdicts, err := st.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return formatter.fail(ErrCodeStore, "querying fingerprint", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(verdicts)
	}

	w := formatter.Writer
	if len(verdicts) == 0 {
		fmt.Fprintf(w, "No verdicts for fingerprint %s.\n", shortHash(fingerprint))
		return nil
	}
	for _, v := range verdicts {
		fmt.Fprintf(w, "%s  %s  memory effect free: %s, speculatable: %s\n", v.RunID, v.Root, v.Memory, v.Speculation)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
