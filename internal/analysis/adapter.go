// Package analysis validates a downloaded video against the local bounds and
// runs the opaque pose estimation routine, folding every outcome into one
// uniform result shape.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/aikalab/scouter/internal/core"
	"github.com/aikalab/scouter/internal/domain/model"
	apperrors "github.com/aikalab/scouter/internal/errors"
)

// Status classifies an analysis run.
type Status string

const (
	// StatusSuccess means the routine produced a valid score set.
	StatusSuccess Status = "success"
	// StatusRejected means a local bound check failed and the routine was
	// never invoked.
	StatusRejected Status = "rejected"
	// StatusFailed means the routine ran and reported failure.
	StatusFailed Status = "failed"
)

// Bound-violation messages. The rejection push embeds these verbatim.
const (
	MsgFileTooLarge = "file size too large"
	MsgVideoTooLong = "video too long"
)

// Defaults for the local bounds.
const (
	DefaultMaxVideoBytes    = int64(100 << 20)
	DefaultMaxVideoDuration = 20 * time.Second
)

// Result is the uniform outcome of one analysis run.
type Result struct {
	Status Status
	Scores *model.ScoreSet
	// Message carries the human-readable failure reason for rejected and
	// failed runs.
	Message string
}

// AdapterConfig holds the bounds and the analyzer.
type AdapterConfig struct {
	Analyzer core.PoseAnalyzer
	// MaxVideoBytes rejects larger files before analysis. Zero uses the default.
	MaxVideoBytes int64
	// MaxVideoDuration rejects longer videos; unknown duration passes. Zero
	// uses the default.
	MaxVideoDuration time.Duration
	Logger           *slog.Logger
}

// Adapter runs bound checks then the pose routine.
type Adapter struct {
	analyzer    core.PoseAnalyzer
	maxBytes    int64
	maxDuration time.Duration
	logger      *slog.Logger
	// probeDuration is swapped in tests.
	probeDuration func(path string) (time.Duration, error)
}

// NewAdapter creates an Adapter.
func NewAdapter(cfg AdapterConfig) *Adapter {
	maxBytes := cfg.MaxVideoBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxVideoBytes
	}
	maxDuration := cfg.MaxVideoDuration
	if maxDuration <= 0 {
		maxDuration = DefaultMaxVideoDuration
	}
	return &Adapter{
		analyzer:      cfg.Analyzer,
		maxBytes:      maxBytes,
		maxDuration:   maxDuration,
		logger:        cfg.Logger,
		probeDuration: ProbeDuration,
	}
}

// Run analyzes the local video file. Bound violations reject without invoking
// the routine; routine failures come back as StatusFailed. The returned error
// is reserved for local I/O problems.
func (a *Adapter) Run(ctx context.Context, localPath string) (Result, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return Result{}, err
	}

	if info.Size() > a.maxBytes {
		return Result{Status: StatusRejected, Message: MsgFileTooLarge}, nil
	}

	duration, err := a.probeDuration(localPath)
	switch {
	case errors.Is(err, ErrDurationUnknown):
		// unknown duration passes the bound
	case err != nil:
		return Result{}, err
	case duration > a.maxDuration:
		return Result{Status: StatusRejected, Message: MsgVideoTooLong}, nil
	}

	scores, err := a.analyzer.Analyze(ctx, localPath)
	if err != nil {
		if a.logger != nil {
			a.logger.WarnContext(ctx, "pose analysis failed", "error", err)
		}
		msg := "analysis failed"
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Message != "" {
			msg = appErr.Message
		}
		return Result{Status: StatusFailed, Message: msg}, nil
	}

	return Result{Status: StatusSuccess, Scores: scores}, nil
}
