package store

import (
	"context"
	"fmt"

	"github.com/roach88/sidefx/internal/analysis"
	"github.com/roach88/sidefx/internal/ir"
)

// WriteReport records a report and one verdict row per root in a single
// transaction. Uses ON CONFLICT(id) DO NOTHING on the run: writing the same
// run twice is a no-op and reports inserted=false.
func (s *Store) WriteReport(ctx context.Context, report *analysis.Report) (inserted bool, err error) {
	if report.RunID == "" {
		return false, fmt.Errorf("write report: run id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write report: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, analyzer_version, report_hash, root_count, op_count, memory_effect_free_count, speculatable_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		report.RunID,
		report.Version,
		report.Hash,
		report.Summary.Roots,
		report.Summary.Ops,
		report.Summary.MemoryEffectFree,
		report.Summary.Speculatable,
	)
	if err != nil {
		return false, fmt.Errorf("write report: insert run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write report: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	for _, res := range report.Roots {
		memoryPath, err := marshalPath(res.Memory.Path)
		if err != nil {
			return false, fmt.Errorf("write report: root %q: %w", res.Name, err)
		}
		speculationPath, err := marshalPath(res.Speculation.Path)
		if err != nil {
			return false, fmt.Errorf("write report: root %q: %w", res.Name, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO verdicts
			(run_id, root, op, fingerprint, op_count, depth,
			 memory_effect_free, speculatable,
			 memory_reason, memory_path, speculation_reason, speculation_path)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			report.RunID,
			res.Name,
			res.Op,
			res.Fingerprint,
			res.OpCount,
			res.Depth,
			res.MemoryEffectFree,
			res.Speculatable,
			string(res.Memory.Reason),
			memoryPath,
			string(res.Speculation.Reason),
			speculationPath,
		)
		if err != nil {
			return false, fmt.Errorf("write report: insert verdict %q: %w", res.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write report: commit: %w", err)
	}
	return true, nil
}

// marshalPath stores an explanation path as canonical JSON.
func marshalPath(path []string) (string, error) {
	if path == nil {
		path = []string{}
	}
	data, err := ir.MarshalCanonical(path)
	if err != nil {
		return "", fmt.Errorf("marshal path: %w", err)
	}
	return string(data), nil
}
