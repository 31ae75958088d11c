package history

import (
	"context"
	"fmt"
	"time"
)

// RunRecord is the persisted summary of one workflow run.
type RunRecord struct {
	ID         string
	Workflow   string
	Group      string
	EventKind  string
	Ref        string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// JobRecord is the persisted outcome of one job instance.
type JobRecord struct {
	RunID      string
	InstanceID string
	JobName    string
	MatrixKey  string
	Status     string
	Duration   time.Duration
	Error      string
}

// WriteRunStarted inserts the initial record for a run. Duplicate IDs are an
// error: run IDs are generated per invocation.
func (s *Store) WriteRunStarted(ctx context.Context, rec RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, workflow, conc_group, event_kind, ref, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Workflow,
		rec.Group,
		rec.EventKind,
		rec.Ref,
		rec.Status,
		rec.StartedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteRunFinished records the terminal status of a run.
func (s *Store) WriteRunFinished(ctx context.Context, runID, status string, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ? WHERE id = ?
	`, status, finishedAt.UnixMilli(), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// WriteJob upserts the outcome of one job instance. The executor reports a
// job twice (started, then finished); the second write wins.
func (s *Store) WriteJob(ctx context.Context, rec JobRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (run_id, instance_id, job_name, matrix_key, status, duration_ms, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, instance_id) DO UPDATE SET
			status = excluded.status,
			duration_ms = excluded.duration_ms,
			error = excluded.error
	`,
		rec.RunID,
		rec.InstanceID,
		rec.JobName,
		rec.MatrixKey,
		rec.Status,
		rec.Duration.Milliseconds(),
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("write job: %w", err)
	}
	return nil
}
