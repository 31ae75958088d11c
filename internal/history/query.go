package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow, conc_group, event_kind, ref, status, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.Workflow, &rec.Group, &rec.EventKind, &rec.Ref, &rec.Status, &started, &finished); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		rec.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			t := time.UnixMilli(finished.Int64)
			rec.FinishedAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListJobs returns every job record of a run, in instance ID order.
func (s *Store) ListJobs(ctx context.Context, runID string) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, instance_id, job_name, matrix_key, status, duration_ms, error
		FROM jobs WHERE run_id = ? ORDER BY instance_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		var rec JobRecord
		var durMs int64
		if err := rows.Scan(&rec.RunID, &rec.InstanceID, &rec.JobName, &rec.MatrixKey, &rec.Status, &durMs, &rec.Error); err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		rec.Duration = time.Duration(durMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
