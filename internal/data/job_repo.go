// Package data provides the Postgres and Redis backed repositories.
package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aikalab/scouter/internal/domain/model"
	apperrors "github.com/aikalab/scouter/internal/errors"
)

// JobRepoConfig holds configuration options for the job repository.
type JobRepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for video job management. All state
// transitions carry their status guard in the SQL predicate so a lost race
// shows up as zero affected rows, never as a double apply.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance.
func NewJobRepo(db *sql.DB, cfg JobRepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  status,
  file_path,
  user_id,
  scores,
  notification_sent,
  notification_failed,
  error_message,
  started_at,
  completed_at,
  created_at,
  updated_at
`

type jobRowScanner interface {
	Scan(dest ...any) error
}

func scanJobFromRow(scanner jobRowScanner) (*model.VideoJob, error) {
	job := &model.VideoJob{}
	var (
		scores       []byte
		errorMessage sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)
	if err := scanner.Scan(
		&job.ID,
		&job.Status,
		&job.FilePath,
		&job.UserID,
		&scores,
		&job.NotificationSent,
		&job.NotificationFailed,
		&errorMessage,
		&startedAt,
		&completedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(scores) > 0 {
		var s model.ScoreSet
		if err := json.Unmarshal(scores, &s); err != nil {
			return nil, fmt.Errorf("decode scores: %w", err)
		}
		job.Scores = &s
	}
	job.ErrorMessage = cloneNullableString(errorMessage)
	job.StartedAt = cloneNullableTime(startedAt)
	job.CompletedAt = cloneNullableTime(completedAt)
	return job, nil
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// GetByID fetches a job by its identifier.
func (r *JobRepo) GetByID(ctx context.Context, jobID string) (*model.VideoJob, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM video_jobs WHERE id = $1`, jobID)
	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("get job: %w", err))
	}
	return job, nil
}

// Stats returns counts of jobs in each state.
func (r *JobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'pending')             AS pending,
    count(*) FILTER (WHERE status = 'processing')          AS processing,
    count(*) FILTER (WHERE status = 'analysis_completed')  AS analysis_completed,
    count(*) FILTER (WHERE status = 'completed')           AS completed,
    count(*) FILTER (WHERE status = 'error')               AS errored,
    count(*) FILTER (WHERE notification_failed)            AS notification_failed
  FROM video_jobs
  `).Scan(
		&s.Pending,
		&s.Processing,
		&s.AnalysisCompleted,
		&s.Completed,
		&s.Errored,
		&s.NotificationFailed,
	)
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("job stats: %w", err))
	}
	return &s, nil
}
