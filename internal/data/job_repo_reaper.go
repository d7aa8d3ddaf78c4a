package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aikalab/scouter/internal/data/pgxutil"
)

// Advisory lock namespace for reaper operations, two-arg
// pg_try_advisory_xact_lock(major, minor). Major key 1000 is reserved for
// scouter reaper operations.
const (
	advisoryLockReaperMajor          = 1000
	advisoryLockReaperStale          = 1 // minor key for ReapStaleProcessing
	advisoryLockReaperDeleteTerminal = 2 // minor key for DeleteOldTerminalJobs
)

// ReapStaleProcessing reverts non-terminal jobs abandoned by a crashed worker
// back to pending so the next delivery can claim them. That covers processing
// rows and analysis_completed rows whose record has not been touched since
// maxAge ago; a worker can die between recording scores and completing, and
// without the sweep such a job would never reach a terminal state. Processes
// up to batchSize jobs per call. An advisory lock keeps concurrent reaper
// instances from overlapping.
func (r *JobRepo) ReapStaleProcessing(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if maxAge <= 0 {
		return 0, errors.New("max age must be greater than zero")
	}
	if batchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, advisoryLockReaperStale).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now()
			cutoffTime := currentTime.Add(-maxAge)

			res, err := tx.ExecContext(ctx, `
				UPDATE video_jobs
				SET status = 'pending',
					started_at = NULL,
					updated_at = $1
				WHERE id IN (
					SELECT id FROM video_jobs
					WHERE status IN ('processing', 'analysis_completed')
					  AND updated_at < $2
					ORDER BY updated_at
					LIMIT $3
				)
			`, currentTime.UTC(), cutoffTime.UTC(), batchSize)
			if err != nil {
				return fmt.Errorf("reap stale processing jobs: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// DeleteOldTerminalJobs deletes completed and errored jobs older than maxAge.
// Processes up to batchSize jobs per call to prevent long locks.
func (r *JobRepo) DeleteOldTerminalJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if maxAge <= 0 {
		return 0, errors.New("max age must be greater than zero")
	}
	if batchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, advisoryLockReaperDeleteTerminal).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			cutoffTime := r.timeProvider.Now().Add(-maxAge).UTC()

			res, err := tx.ExecContext(ctx, `
				DELETE FROM video_jobs
				WHERE id IN (
					SELECT id FROM video_jobs
					WHERE status IN ('completed', 'error')
					  AND (completed_at < $1 OR (completed_at IS NULL AND updated_at < $1))
					ORDER BY COALESCE(completed_at, updated_at)
					LIMIT $2
				)
			`, cutoffTime, batchSize)
			if err != nil {
				return fmt.Errorf("delete old terminal jobs: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}
