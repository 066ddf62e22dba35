package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/sidefx/internal/sideeffect"
)

// Run is the stored summary of one analysis run.
type Run struct {
	Seq              int64  `json:"seq"`
	ID               string `json:"id"`
	AnalyzerVersion  string `json:"analyzer_version"`
	ReportHash       string `json:"report_hash"`
	Roots            int    `json:"roots"`
	Ops              int    `json:"ops"`
	MemoryEffectFree int    `json:"memory_effect_free"`
	Speculatable     int    `json:"speculatable"`
}

// Verdict is the stored result for one root of one run.
type Verdict struct {
	RunID            string                 `json:"run_id"`
	Root             string                 `json:"root"`
	Op               string                 `json:"op"`
	Fingerprint      string                 `json:"fingerprint"`
	OpCount          int                    `json:"op_count"`
	Depth            int                    `json:"depth"`
	MemoryEffectFree bool                   `json:"memory_effect_free"`
	Speculatable     bool                   `json:"speculatable"`
	Memory           sideeffect.Explanation `json:"memory"`
	Speculation      sideeffect.Explanation `json:"speculation"`
}

// StoredReport is a run together with its verdicts.
type StoredReport struct {
	Run      Run       `json:"run"`
	Verdicts []Verdict `json:"verdicts"`
}

const verdictColumns = `
	run_id, root, op, fingerprint, op_count, depth,
	memory_effect_free, speculatable,
	memory_reason, memory_path, speculation_reason, speculation_path`

// ListRuns returns every run ordered by seq.
// Returns an empty slice (not nil) when nothing has been recorded.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, analyzer_version, report_hash, root_count, op_count,
		       memory_effect_free_count, speculatable_count
		FROM runs
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns the summary of a single run.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, analyzer_version, report_hash, root_count, op_count,
		       memory_effect_free_count, speculatable_count
		FROM runs
		WHERE id = ?
	`, runID)
	return scanRun(row)
}

// LatestRun returns the most recently written run.
// Returns sql.ErrNoRows if the store is empty.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, analyzer_version, report_hash, root_count, op_count,
		       memory_effect_free_count, speculatable_count
		FROM runs
		ORDER BY seq DESC
		LIMIT 1
	`)
	return scanRun(row)
}

// ReadReport returns a run and its verdicts ordered by root name.
// Returns sql.ErrNoRows if the run does not exist.
func (s *Store) ReadReport(ctx context.Context, runID string) (*StoredReport, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT`+verdictColumns+`
		FROM verdicts
		WHERE run_id = ?
		ORDER BY root COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	verdicts, err := scanVerdicts(rows)
	if err != nil {
		return nil, err
	}
	return &StoredReport{Run: run, Verdicts: verdicts}, nil
}

// FindByFingerprint returns every stored verdict for a structurally
// identical op tree, oldest run first.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) ([]Verdict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.run_id, v.root, v.op, v.fingerprint, v.op_count, v.depth,
		       v.memory_effect_free, v.speculatable,
		       v.memory_reason, v.memory_path, v.speculation_reason, v.speculation_path
		FROM verdicts v
		JOIN runs r ON r.id = v.run_id
		WHERE v.fingerprint = ?
		ORDER BY r.seq ASC, v.root COLLATE BINARY ASC
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query verdicts by fingerprint: %w", err)
	}
	defer rows.Close()

	return scanVerdicts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	err := row.Scan(
		&run.Seq,
		&run.ID,
		&run.AnalyzerVersion,
		&run.ReportHash,
		&run.Roots,
		&run.Ops,
		&run.MemoryEffectFree,
		&run.Speculatable,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

func scanVerdicts(rows *sql.Rows) ([]Verdict, error) {
	verdicts := []Verdict{}
	for rows.Next() {
		var (
			v                                   Verdict
			memoryReason, speculationReason     string
			memoryPathJSON, speculationPathJSON string
		)
		err := rows.Scan(
			&v.RunID,
			&v.Root,
			&v.Op,
			&v.Fingerprint,
			&v.OpCount,
			&v.Depth,
			&v.MemoryEffectFree,
			&v.Speculatable,
			&memoryReason,
			&memoryPathJSON,
			&speculationReason,
			&speculationPathJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}

		v.Memory, err = explanation(v.MemoryEffectFree, memoryReason, memoryPathJSON)
		if err != nil {
			return nil, fmt.Errorf("verdict %q memory: %w", v.Root, err)
		}
		v.Speculation, err = explanation(v.Speculatable, speculationReason, speculationPathJSON)
		if err != nil {
			return nil, fmt.Errorf("verdict %q speculation: %w", v.Root, err)
		}
		verdicts = append(verdicts, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return verdicts, nil
}

func explanation(verdict bool, reason, pathJSON string) (sideeffect.Explanation, error) {
	e := sideeffect.Explanation{Verdict: verdict, Reason: sideeffect.Reason(reason)}
	var path []string
	if err := json.Unmarshal([]byte(pathJSON), &path); err != nil {
		return e, fmt.Errorf("unmarshal path: %w", err)
	}
	if len(path) > 0 {
		e.Path = path
	}
	return e, nil
}
