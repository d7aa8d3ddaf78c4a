package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aikalab/scouter/internal/analysis"
	"github.com/aikalab/scouter/internal/core"
	"github.com/aikalab/scouter/internal/domain/model"
	"github.com/aikalab/scouter/internal/entry"
	apperrors "github.com/aikalab/scouter/internal/errors"
	"github.com/aikalab/scouter/internal/observability/metrics"
	"github.com/aikalab/scouter/internal/observability/notify"
	"github.com/aikalab/scouter/internal/observability/statsd"
	"github.com/aikalab/scouter/internal/service/failurenotifier"
	"github.com/aikalab/scouter/internal/storage"
)

// Pipeline defaults.
const (
	DefaultStaleAfter       = 10 * time.Minute
	DefaultResponseCacheTTL = 7 * 24 * time.Hour

	rateLimitAction = "video_analysis"
)

// OutcomeKind classifies how a pipeline run ended.
type OutcomeKind string

const (
	// OutcomeSkipped means the event was dropped without work: unusable
	// payload, path outside the contract, or a claim lost to another worker.
	OutcomeSkipped OutcomeKind = "skipped"
	// OutcomeRateLimited means the user's upload budget is exhausted. No job
	// record is created.
	OutcomeRateLimited OutcomeKind = "rate_limited"
	// OutcomeTerminal means the job reached error: rejected by a bound check
	// or failed in the analysis routine. The user was told.
	OutcomeTerminal OutcomeKind = "terminal"
	// OutcomeCompleted means the durable result is recorded.
	OutcomeCompleted OutcomeKind = "completed"
)

// Outcome is the result of one pipeline run for a storage event.
type Outcome struct {
	Kind       OutcomeKind     `json:"kind"`
	JobID      string          `json:"job_id,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	RetryAfter time.Duration   `json:"retry_after,omitempty"`
	Scores     *model.ScoreSet `json:"scores,omitempty"`
}

// PipelineOptions groups dependencies for Pipeline.
type PipelineOptions struct {
	Decoder  *entry.Decoder       // Required: trigger payload decoding
	Resolver *entry.Resolver      // Required: path contract resolution
	Jobs     core.JobRepository   // Required: job state store
	Limiter  *RateLimiter         // Required: upload admission
	Store    core.ObjectStore     // Required: video object access
	Analyzer *analysis.Adapter    // Required: bound checks + pose routine
	Delivery *DeliveryService     // Required: push notifications

	// Cache holds analysis results keyed by object identity so a redelivered
	// event for an already analyzed object skips the routine. Optional.
	Cache    core.CacheRepository
	CacheTTL time.Duration

	// StaleAfter bounds how long another worker's processing claim is honoured.
	StaleAfter time.Duration

	// NotifyRateLimited sends the user a wait hint when an upload is rejected
	// by the rate limiter.
	NotifyRateLimited bool

	Logger   *slog.Logger             // Optional: structured logger
	Notifier *failurenotifier.Service // Optional: operator alerts
	Metrics  statsd.Sink              // Optional: metric sink
}

// Pipeline runs a storage event through rate limiting, claim, download,
// analysis, and delivery. Every run ends in exactly one Outcome.
type Pipeline struct {
	decoder  *entry.Decoder
	resolver *entry.Resolver
	jobs     core.JobRepository
	limiter  *RateLimiter
	store    core.ObjectStore
	analyzer *analysis.Adapter
	delivery *DeliveryService

	cache    core.CacheRepository
	cacheTTL time.Duration

	staleAfter        time.Duration
	notifyRateLimited bool

	logger   *slog.Logger
	notifier *failurenotifier.Service
	metrics  statsd.Sink
	now      func() time.Time
}

// NewPipeline constructs a Pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "pipeline")
	}
	staleAfter := opts.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = DefaultResponseCacheTTL
	}

	return &Pipeline{
		decoder:           opts.Decoder,
		resolver:          opts.Resolver,
		jobs:              opts.Jobs,
		limiter:           opts.Limiter,
		store:             opts.Store,
		analyzer:          opts.Analyzer,
		delivery:          opts.Delivery,
		cache:             opts.Cache,
		cacheTTL:          cacheTTL,
		staleAfter:        staleAfter,
		notifyRateLimited: opts.NotifyRateLimited,
		logger:            logger,
		notifier:          opts.Notifier,
		metrics:           opts.Metrics,
		now:               time.Now,
	}
}

// Process runs one raw trigger event through the pipeline. The returned error
// is reserved for retryable infrastructure failures (a store that could not be
// reached); every handled condition comes back as an Outcome with a nil error
// so the trigger source does not redeliver it.
func (p *Pipeline) Process(ctx context.Context, raw []byte) (out Outcome, err error) {
	start := p.now()
	var ref model.ObjectRef

	defer func() {
		if r := recover(); r != nil {
			err = nil
			out = p.recoverPanic(ctx, ref, r)
		}
		if err == nil {
			metrics.EmitPipelineRun(p.metrics, metrics.PipelineMetric{
				Outcome:  string(out.Kind),
				Duration: p.now().Sub(start),
			})
		}
	}()

	event, derr := p.decoder.Decode(raw)
	if derr != nil {
		p.logger.WarnContext(ctx, "dropping undecodable event", "error", derr)
		return Outcome{Kind: OutcomeSkipped, Reason: derr.Error()}, nil
	}

	ref, rerr := p.resolver.Resolve(event)
	if rerr != nil {
		p.logger.WarnContext(ctx, "dropping event outside path contract",
			"object_path", event.ObjectPath,
			"error", rerr,
		)
		return Outcome{Kind: OutcomeSkipped, Reason: rerr.Error()}, nil
	}

	logger := p.logger.With("job_id", ref.JobID, "user_id", ref.UserID)

	decision := p.limiter.Admit(ctx, ref.UserID, rateLimitAction)
	if !decision.Allowed {
		logger.InfoContext(ctx, "upload rate limited", "retry_after", decision.RetryAfter)
		if p.notifyRateLimited {
			if serr := p.delivery.SendInfo(ctx, ref.UserID, ComposeRateLimited(decision.RetryAfter)); serr != nil {
				logger.WarnContext(ctx, "rate limit notice not delivered", "error", serr)
			}
		}
		return Outcome{
			Kind:       OutcomeRateLimited,
			JobID:      ref.JobID,
			UserID:     ref.UserID,
			RetryAfter: decision.RetryAfter,
		}, nil
	}

	job, cerr := p.jobs.Claim(ctx, &model.ClaimRequest{
		JobID:      ref.JobID,
		FilePath:   ref.ObjectPath,
		UserID:     ref.UserID,
		StaleAfter: p.staleAfter,
	})
	if errors.Is(cerr, model.ErrJobClaimLost) {
		logger.InfoContext(ctx, "claim lost, another worker owns the job")
		return Outcome{Kind: OutcomeSkipped, JobID: ref.JobID, UserID: ref.UserID, Reason: "claim lost"}, nil
	}
	if cerr != nil {
		return Outcome{}, apperrors.Wrap(cerr, apperrors.ErrCodeUnavailable, "claim job")
	}

	return p.runClaimed(ctx, logger, ref, job)
}

// runClaimed drives a claimed job through analysis and delivery.
func (p *Pipeline) runClaimed(ctx context.Context, logger *slog.Logger, ref model.ObjectRef, job *model.VideoJob) (Outcome, error) {
	if scores, ok := p.cachedScores(ctx, ref); ok {
		logger.InfoContext(ctx, "analysis result served from cache")
		return p.finish(ctx, logger, job, *scores)
	}

	localPath, derr := p.store.Download(ctx, ref.Bucket, ref.ObjectPath)
	if derr != nil {
		if errors.Is(derr, storage.ErrObjectNotFound) {
			// The object was deleted between the trigger and the download.
			// Redelivery cannot bring it back.
			return p.fail(ctx, logger, job, "video object not found", "")
		}
		return Outcome{}, apperrors.Wrap(derr, apperrors.ErrCodeUnavailable, "download video")
	}
	defer func() {
		if rmErr := os.Remove(localPath); rmErr != nil {
			logger.WarnContext(ctx, "temp video not removed", "path", localPath, "error", rmErr)
		}
	}()

	result, aerr := p.analyzer.Run(ctx, localPath)
	if aerr != nil {
		logger.ErrorContext(ctx, "analysis adapter failed", "error", aerr)
		return p.fail(ctx, logger, job, fmt.Sprintf("analysis error: %v", aerr), ComposeApology())
	}

	switch result.Status {
	case analysis.StatusRejected:
		logger.InfoContext(ctx, "video rejected", "reason", result.Message)
		return p.fail(ctx, logger, job, result.Message, ComposeRejection(result.Message))
	case analysis.StatusFailed:
		logger.WarnContext(ctx, "analysis routine failed", "reason", result.Message)
		return p.fail(ctx, logger, job, result.Message, ComposeApology())
	}

	p.storeScores(ctx, ref, result.Scores)
	return p.finish(ctx, logger, job, *result.Scores)
}

// finish persists the scores, notifies the user, and completes the job.
func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, job *model.VideoJob, scores model.ScoreSet) (Outcome, error) {
	moved, err := p.jobs.MarkAnalysisCompleted(ctx, job.ID, scores)
	if err != nil {
		return Outcome{}, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "persist analysis result")
	}
	if !moved {
		logger.WarnContext(ctx, "job left processing under us, skipping")
		return Outcome{Kind: OutcomeSkipped, JobID: job.ID, UserID: job.UserID, Reason: "job state changed"}, nil
	}

	if derr := p.delivery.DeliverResult(ctx, job, ComposeResult(scores)); derr != nil {
		if apperrors.IsDeliveryExhausted(derr) {
			// The durable result exists; the job completes with the failed
			// notification recorded on the row.
			logger.ErrorContext(ctx, "result notification not delivered", "error", derr)
		} else {
			return Outcome{}, derr
		}
	}

	moved, err = p.jobs.Complete(ctx, job.ID)
	if err != nil {
		return Outcome{}, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "complete job")
	}
	if !moved {
		logger.WarnContext(ctx, "job already left analysis_completed")
	}

	return Outcome{Kind: OutcomeCompleted, JobID: job.ID, UserID: job.UserID, Scores: &scores}, nil
}

// fail moves the job to error and best-effort tells the user why.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, job *model.VideoJob, reason, userText string) (Outcome, error) {
	moved, err := p.jobs.MarkError(ctx, job.ID, reason)
	if err != nil {
		return Outcome{}, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "mark job error")
	}
	if !moved {
		logger.WarnContext(ctx, "job already terminal, error not recorded", "reason", reason)
	}

	if userText != "" {
		if serr := p.delivery.SendInfo(ctx, job.UserID, userText); serr != nil {
			logger.WarnContext(ctx, "failure notice not delivered", "error", serr)
		}
	}

	return Outcome{Kind: OutcomeTerminal, JobID: job.ID, UserID: job.UserID, Reason: reason}, nil
}

// recoverPanic turns a panic inside the pipeline into a terminal job error so
// the claim does not sit in processing until the reaper finds it.
func (p *Pipeline) recoverPanic(ctx context.Context, ref model.ObjectRef, r any) Outcome {
	reason := fmt.Sprintf("pipeline panic: %v", r)
	p.logger.ErrorContext(ctx, "pipeline panicked",
		"job_id", ref.JobID,
		"user_id", ref.UserID,
		"panic", r,
	)

	if ref.JobID != "" {
		if _, err := p.jobs.MarkError(ctx, ref.JobID, reason); err != nil {
			p.logger.ErrorContext(ctx, "panic not recorded on job", "job_id", ref.JobID, "error", err)
		}
	}

	if p.notifier != nil {
		p.notifier.NotifyPipelineFailure(ctx, notify.PipelineFailurePayload{
			JobID:      ref.JobID,
			UserID:     ref.UserID,
			Stage:      notify.StageAnalysis,
			Error:      reason,
			Severity:   notify.SeverityCritical,
			OccurredAt: p.now().UTC(),
		})
	}

	return Outcome{Kind: OutcomeTerminal, JobID: ref.JobID, UserID: ref.UserID, Reason: reason}
}

// responseCacheKey builds the cache key for an object's analysis result. The
// hash keeps bucket names and user paths out of the cache keyspace.
func responseCacheKey(bucket, objectPath string) string {
	sum := sha256.Sum256([]byte(bucket + "/" + objectPath))
	return "analysis:" + hex.EncodeToString(sum[:])
}

// cachedScores looks up a prior analysis result for the object. Cache problems
// only cost the shortcut.
func (p *Pipeline) cachedScores(ctx context.Context, ref model.ObjectRef) (*model.ScoreSet, bool) {
	if p.cache == nil {
		return nil, false
	}

	raw, err := p.cache.Get(ctx, responseCacheKey(ref.Bucket, ref.ObjectPath))
	if err != nil {
		p.logger.WarnContext(ctx, "analysis cache read failed", "error", err)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}

	var scores model.ScoreSet
	if err := json.Unmarshal(raw, &scores); err != nil {
		p.logger.WarnContext(ctx, "analysis cache entry corrupt, ignoring", "error", err)
		return nil, false
	}
	if err := scores.Validate(); err != nil {
		p.logger.WarnContext(ctx, "analysis cache entry out of range, ignoring", "error", err)
		return nil, false
	}
	return &scores, true
}

func (p *Pipeline) storeScores(ctx context.Context, ref model.ObjectRef, scores *model.ScoreSet) {
	if p.cache == nil || scores == nil {
		return
	}

	raw, err := json.Marshal(scores)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, responseCacheKey(ref.Bucket, ref.ObjectPath), raw, p.cacheTTL); err != nil {
		p.logger.WarnContext(ctx, "analysis cache write failed", "error", err)
	}
}
