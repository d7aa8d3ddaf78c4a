// Package core defines the contracts between the service layer and the data,
// storage, analysis, and delivery adapters.
package core

import (
	"context"
	"time"

	"github.com/aikalab/scouter/internal/domain/model"
)

// This file contains the port interfaces. Service implementations depend on
// these, not on concrete adapters.

// JobRepository defines the interface for job row operations. Every mutation
// carries its status guard in the SQL predicate so concurrent workers cannot
// double-apply a transition.
type JobRepository interface {
	// Claim atomically creates or takes ownership of a job for processing.
	// It returns model.ErrJobClaimLost when another worker holds the job and
	// its claim is not stale.
	Claim(ctx context.Context, req *model.ClaimRequest) (*model.VideoJob, error)

	// MarkAnalysisCompleted records the score set. Only a job currently in
	// processing transitions; returns false otherwise.
	MarkAnalysisCompleted(ctx context.Context, jobID string, scores model.ScoreSet) (bool, error)

	// Complete finishes a job from analysis_completed. Returns false when the
	// job is not in that stage.
	Complete(ctx context.Context, jobID string) (bool, error)

	// MarkError moves a non-terminal job to error with a message. Terminal
	// rows are left untouched and false is returned.
	MarkError(ctx context.Context, jobID, errMsg string) (bool, error)

	// SetNotificationSent flips notification_sent exactly once. Returns false
	// when the flag was already set, which callers treat as a duplicate send
	// averted.
	SetNotificationSent(ctx context.Context, jobID string) (bool, error)

	// SetNotificationFailed records that delivery gave up for this job.
	SetNotificationFailed(ctx context.Context, jobID string) (bool, error)

	GetByID(ctx context.Context, jobID string) (*model.VideoJob, error)
	Stats(ctx context.Context) (*model.JobStats, error)
}

// ReaperRepository defines the interface for stale job cleanup.
type ReaperRepository interface {
	// ReapStaleProcessing reverts processing jobs whose last update is older
	// than maxAge back to pending. Returns the number of jobs reaped.
	ReapStaleProcessing(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)

	// DeleteOldTerminalJobs deletes terminal jobs older than maxAge.
	DeleteOldTerminalJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

// RateLimitRepository defines the interface for the sliding window store.
type RateLimitRepository interface {
	// Reserve appends now to the key's window and prunes entries older than
	// window, all inside one transaction. The returned count includes the new
	// entry. When the count would exceed limit nothing is appended and the
	// oldest surviving timestamp is returned for retry-after math.
	Reserve(ctx context.Context, req *model.RateLimitReservation) (*model.RateLimitResult, error)

	// Purge removes rate limit rows untouched for longer than maxAge.
	Purge(ctx context.Context, maxAge time.Duration) (int64, error)
}

// CacheRepository defines the interface for caching operations.
type CacheRepository interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
	// SetIfNotExists atomically sets a key only if it doesn't already exist.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Health(ctx context.Context) error
}

// ObjectStore defines the interface for video object access.
type ObjectStore interface {
	// Head returns the object's size in bytes without fetching the body.
	Head(ctx context.Context, bucket, key string) (int64, error)

	// Download fetches the object into a temporary file and returns its local
	// path. The caller owns the file and must remove it.
	Download(ctx context.Context, bucket, key string) (string, error)

	Delete(ctx context.Context, bucket, key string) error

	// ListOlderThan returns objects under prefix whose last modification is
	// before cutoff.
	ListOlderThan(ctx context.Context, params ListOlderThanParams) ([]model.StoredObject, error)
}

// ListOlderThanParams groups parameters for ObjectStore.ListOlderThan.
type ListOlderThanParams struct {
	Bucket string
	Prefix string
	Cutoff time.Time
	Limit  int
}

// PoseAnalyzer defines the interface for the pose estimation routine. The
// adapter in internal/analysis validates inputs before this is ever invoked.
type PoseAnalyzer interface {
	Analyze(ctx context.Context, localPath string) (*model.ScoreSet, error)
}

// Pusher defines the interface for sending a push message to a user.
type Pusher interface {
	Push(ctx context.Context, userID, text string) error
}

// TimeProvider abstracts the clock for deterministic tests.
type TimeProvider interface {
	Now() time.Time
}
