package repository

import (
	"context"
	"database/sql"
	"time"

	"tessera/internal/database"
)

// JobRunRepository persists per-job watermarks so that a daily job restarted
// mid-day neither duplicates nor skips its run.
type JobRunRepository struct {
	db *database.DB
}

func NewJobRunRepository(db *database.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

// GetLastRun returns the last-run date of the named job, or ok=false when it
// has never run.
func (r *JobRunRepository) GetLastRun(ctx context.Context, jobName string) (time.Time, bool, error) {
	var lastRun time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT last_run_date FROM job_runs WHERE job_name = $1`, jobName).Scan(&lastRun)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return lastRun, true, nil
}

// SetLastRun records the watermark for the named job.
func (r *JobRunRepository) SetLastRun(ctx context.Context, jobName string, date time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO job_runs (job_name, last_run_date)
		VALUES ($1, $2)
		ON CONFLICT (job_name)
		DO UPDATE SET last_run_date = EXCLUDED.last_run_date, updated_at = NOW()`,
		jobName, date)
	return err
}
