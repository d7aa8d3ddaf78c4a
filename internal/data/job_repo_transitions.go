package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aikalab/scouter/internal/domain/model"
	apperrors "github.com/aikalab/scouter/internal/errors"
)

// SQL used by Claim. The upsert succeeds for a new job, a pending job, or a
// non-terminal job abandoned past the stale cutoff (processing, or
// analysis_completed when the worker died before completing); every other
// state loses the claim and returns no row. A single statement keeps
// claim-or-skip atomic without an explicit lock.
const claimJobSQL = `
  INSERT INTO video_jobs (id, status, file_path, user_id, started_at, created_at, updated_at)
  VALUES ($1, 'processing', $2, $3, $4, $4, $4)
  ON CONFLICT (id) DO UPDATE
  SET status = 'processing',
      file_path = EXCLUDED.file_path,
      started_at = $4,
      error_message = NULL,
      updated_at = $4
  WHERE video_jobs.status = 'pending'
     OR (video_jobs.status IN ('processing', 'analysis_completed') AND video_jobs.updated_at < $5)
  RETURNING ` + jobColumns

// Claim atomically creates or takes ownership of a job for processing.
func (r *JobRepo) Claim(ctx context.Context, req *model.ClaimRequest) (*model.VideoJob, error) {
	if req == nil {
		return nil, errors.New("claim request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	staleCutoff := now.Add(-req.StaleAfter)

	row := r.DB.QueryRowContext(ctx, claimJobSQL, req.JobID, req.FilePath, req.UserID, now, staleCutoff)
	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrJobClaimLost
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("claim job: %w", err))
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "job claimed",
			"job_id", job.ID,
			"user_id", job.UserID,
		)
	}
	return job, nil
}

// MarkAnalysisCompleted records the score set for a processing job.
func (r *JobRepo) MarkAnalysisCompleted(ctx context.Context, jobID string, scores model.ScoreSet) (bool, error) {
	if err := scores.Validate(); err != nil {
		return false, err
	}
	payload, err := json.Marshal(scores)
	if err != nil {
		return false, fmt.Errorf("encode scores: %w", err)
	}

	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE video_jobs
		SET status = 'analysis_completed',
		    scores = $2,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`, jobID, payload, now)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("mark analysis completed: %w", err))
	}
	return oneRowAffected(res)
}

// Complete finishes a job from analysis_completed.
func (r *JobRepo) Complete(ctx context.Context, jobID string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE video_jobs
		SET status = 'completed',
		    completed_at = $2,
		    updated_at = $2,
		    error_message = NULL
		WHERE id = $1 AND status = 'analysis_completed'
	`, jobID, now)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("complete job: %w", err))
	}
	return oneRowAffected(res)
}

// MarkError moves a non-terminal job to error. Terminal rows never regress.
func (r *JobRepo) MarkError(ctx context.Context, jobID, errMsg string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE video_jobs
		SET status = 'error',
		    error_message = $2,
		    completed_at = $3,
		    updated_at = $3
		WHERE id = $1 AND status NOT IN ('completed', 'error')
	`, jobID, errMsg, now)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("mark job error: %w", err))
	}
	return oneRowAffected(res)
}

// SetNotificationSent flips notification_sent exactly once. The predicate on
// the current flag value is the idempotency guard: the second caller sees zero
// rows and must not send.
func (r *JobRepo) SetNotificationSent(ctx context.Context, jobID string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE video_jobs
		SET notification_sent = TRUE,
		    updated_at = $2
		WHERE id = $1 AND notification_sent = FALSE
	`, jobID, now)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("set notification sent: %w", err))
	}
	return oneRowAffected(res)
}

// SetNotificationFailed records that delivery gave up for this job.
func (r *JobRepo) SetNotificationFailed(ctx context.Context, jobID string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE video_jobs
		SET notification_failed = TRUE,
		    updated_at = $2
		WHERE id = $1 AND notification_failed = FALSE
	`, jobID, now)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("set notification failed: %w", err))
	}
	return oneRowAffected(res)
}

func oneRowAffected(res sql.Result) (bool, error) {
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
