// Package model defines the core data types used throughout the scouter video pipeline.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the lifecycle state of a video job.
type JobStatus string

const (
	// JobStatusPending indicates the job record exists but no worker owns it yet.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates a worker has claimed the job and is running the pipeline.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusAnalysisCompleted indicates the analysis result is persisted but the
	// notification has not been attempted yet.
	JobStatusAnalysisCompleted JobStatus = "analysis_completed"
	// JobStatusCompleted indicates the durable result is recorded. Terminal.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusError indicates the job failed and will not be retried. Terminal.
	JobStatusError JobStatus = "error"
)

// ErrJobClaimLost is returned when a claim transaction observes a job already
// owned by another worker or already finished.
var ErrJobClaimLost = errors.New("job claim lost")

// ErrJobNotFound is returned when a job lookup finds no record.
var ErrJobNotFound = errors.New("job not found")

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusAnalysisCompleted,
		JobStatusCompleted, JobStatusError:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status is a terminal state. Terminal states never
// regress to a non-terminal one.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

// VideoJob is one video-upload-to-notification unit of work, keyed by ID.
type VideoJob struct {
	ID                 string     `json:"id"                            db:"id"`
	Status             JobStatus  `json:"status"                        db:"status"`
	FilePath           string     `json:"file_path"                     db:"file_path"`
	UserID             string     `json:"user_id"                       db:"user_id"`
	Scores             *ScoreSet  `json:"scores,omitempty"              db:"scores"`
	NotificationSent   bool       `json:"notification_sent"             db:"notification_sent"`
	NotificationFailed bool       `json:"notification_failed"           db:"notification_failed"`
	ErrorMessage       *string    `json:"error_message,omitempty"       db:"error_message"`
	StartedAt          *time.Time `json:"started_at,omitempty"          db:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"        db:"completed_at"`
	CreatedAt          time.Time  `json:"created_at"                    db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"                    db:"updated_at"`
}

// Claimable reports whether a claim transaction may transition this job into
// processing. A processing or analysis_completed job whose record has not been
// touched since the stale cutoff belongs to a crashed worker and may be claimed
// again; without the analysis_completed case a crash between recording scores
// and completing would strand the job in a non-terminal state forever.
func (j *VideoJob) Claimable(staleCutoff time.Time) bool {
	switch j.Status {
	case JobStatusPending:
		return true
	case JobStatusProcessing, JobStatusAnalysisCompleted:
		return j.UpdatedAt.Before(staleCutoff)
	default:
		return false
	}
}

// userIDAllowed matches the allowed user identifier character set.
func userIDAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	default:
		return false
	}
}

// ValidUserID reports whether the user identifier contains only letters, digits,
// '-' and '_'. Every store access keyed by user id must pass this check first.
func ValidUserID(userID string) bool {
	if userID == "" {
		return false
	}
	for _, r := range userID {
		if !userIDAllowed(r) {
			return false
		}
	}
	return true
}

// ClaimRequest carries the fields written when a job record is created (or first
// claimed) by the pipeline.
type ClaimRequest struct {
	JobID    string
	FilePath string
	UserID   string
	// StaleAfter bounds how long a processing claim is honoured before the job is
	// treated as abandoned by a crashed worker.
	StaleAfter time.Duration
}

// Validate validates the ClaimRequest fields.
func (r *ClaimRequest) Validate() error {
	if strings.TrimSpace(r.JobID) == "" {
		return errors.New("job id is required")
	}
	if strings.TrimSpace(r.FilePath) == "" {
		return errors.New("file path is required")
	}
	if !ValidUserID(r.UserID) {
		return fmt.Errorf("invalid user id: %q", r.UserID)
	}
	if r.StaleAfter <= 0 {
		return errors.New("stale after must be positive")
	}
	return nil
}

// JobStats represents counts of jobs in each state.
type JobStats struct {
	Pending            int `json:"pending"`
	Processing         int `json:"processing"`
	AnalysisCompleted  int `json:"analysis_completed"`
	Completed          int `json:"completed"`
	Errored            int `json:"errored"`
	NotificationFailed int `json:"notification_failed"`
}
