package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aikalab/scouter/internal/core"
	"github.com/aikalab/scouter/internal/domain/model"
	apperrors "github.com/aikalab/scouter/internal/errors"
	"github.com/aikalab/scouter/internal/observability/metrics"
	"github.com/aikalab/scouter/internal/observability/notify"
	"github.com/aikalab/scouter/internal/observability/statsd"
	"github.com/aikalab/scouter/internal/retry"
	"github.com/aikalab/scouter/internal/service/failurenotifier"
)

// Delivery defaults.
const (
	DefaultDeliveryAttempts  = 3
	DefaultDeliveryBaseDelay = time.Second
	DefaultDeliveryMaxDelay  = 30 * time.Second
)

// DeliveryConfig holds the retry and ordering settings for push delivery.
type DeliveryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// MarkBeforeSend flips notification_sent before the first attempt
	// (at-most-once) instead of after a confirmed send (at-least-once,
	// the default).
	MarkBeforeSend bool
}

// Sanitize applies defaults to unset fields.
func (c *DeliveryConfig) Sanitize() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultDeliveryAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultDeliveryBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultDeliveryMaxDelay
	}
}

// DeliveryServiceOptions groups dependencies for DeliveryService.
type DeliveryServiceOptions struct {
	Jobs   core.JobRepository // Required: notification flag store
	Pusher core.Pusher        // Required: push transport
	Config DeliveryConfig
	// Retryable classifies push errors; nil retries everything.
	Retryable func(error) bool
	Logger    *slog.Logger             // Optional: structured logger
	Notifier  *failurenotifier.Service // Optional: operator alerts on exhaustion
	Metrics   statsd.Sink              // Optional: metric sink
}

// DeliveryService sends the per-job user notification exactly once per job
// record, with bounded retry around the push transport.
type DeliveryService struct {
	jobs      core.JobRepository
	pusher    core.Pusher
	cfg       DeliveryConfig
	retryable func(error) bool
	logger    *slog.Logger
	notifier  *failurenotifier.Service
	metrics   statsd.Sink
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewDeliveryService constructs a DeliveryService.
func NewDeliveryService(opts DeliveryServiceOptions) *DeliveryService {
	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "delivery")
	}

	return &DeliveryService{
		jobs:      opts.Jobs,
		pusher:    opts.Pusher,
		cfg:       cfg,
		retryable: opts.Retryable,
		logger:    logger,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
	}
}

// DeliverResult sends the job's result notification, guarded by the
// notification_sent flag so redeliveries cannot push twice.
func (s *DeliveryService) DeliverResult(ctx context.Context, job *model.VideoJob, text string) error {
	if job.NotificationSent {
		s.logger.InfoContext(ctx, "notification already sent, skipping",
			"job_id", job.ID,
		)
		metrics.EmitDelivery(s.metrics, "duplicate_averted", 0)
		return nil
	}

	if s.cfg.MarkBeforeSend {
		flipped, err := s.jobs.SetNotificationSent(ctx, job.ID)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "mark notification sent")
		}
		if !flipped {
			// Another worker owns the send.
			metrics.EmitDelivery(s.metrics, "duplicate_averted", 0)
			return nil
		}
	}

	attempts, err := s.pushWithRetry(ctx, job.UserID, text)
	if err != nil {
		metrics.EmitDelivery(s.metrics, "exhausted", attempts)
		s.logger.ErrorContext(ctx, "push delivery gave up",
			"job_id", job.ID,
			"attempts", attempts,
			"error", err,
		)

		if _, ferr := s.jobs.SetNotificationFailed(ctx, job.ID); ferr != nil {
			s.logger.ErrorContext(ctx, "record notification failure",
				"job_id", job.ID,
				"error", ferr,
			)
		}

		if s.notifier != nil {
			s.notifier.NotifyPipelineFailure(ctx, notify.PipelineFailurePayload{
				JobID:      job.ID,
				UserID:     job.UserID,
				Stage:      notify.StageDelivery,
				Error:      err.Error(),
				Severity:   notify.SeverityCritical,
				OccurredAt: time.Now().UTC(),
			})
		}

		return apperrors.Wrapf(err, apperrors.ErrCodeDeliveryExhausted,
			"push delivery failed after %d attempts", attempts)
	}
	metrics.EmitDelivery(s.metrics, "success", attempts)

	if !s.cfg.MarkBeforeSend {
		flipped, err := s.jobs.SetNotificationSent(ctx, job.ID)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "mark notification sent")
		}
		if !flipped {
			s.logger.WarnContext(ctx, "notification flag already set after send",
				"job_id", job.ID,
			)
		}
	}
	return nil
}

// SendInfo sends a one-off message (rejection, apology, rate limit notice)
// without touching the notification flag or the job record.
func (s *DeliveryService) SendInfo(ctx context.Context, userID, text string) error {
	attempts, err := s.pushWithRetry(ctx, userID, text)
	if err != nil {
		metrics.EmitDelivery(s.metrics, "exhausted", attempts)
		return apperrors.Wrapf(err, apperrors.ErrCodeDeliveryExhausted,
			"push delivery failed after %d attempts", attempts)
	}
	metrics.EmitDelivery(s.metrics, "success", attempts)
	return nil
}

func (s *DeliveryService) pushWithRetry(ctx context.Context, userID, text string) (int, error) {
	attempts := 0
	policy := retry.Policy{
		MaxAttempts: s.cfg.MaxAttempts,
		BaseDelay:   s.cfg.BaseDelay,
		MaxDelay:    s.cfg.MaxDelay,
		Retryable:   s.retryable,
		Sleep:       s.sleep,
	}

	err := policy.Do(ctx, func(ctx context.Context) error {
		attempts++
		return s.pusher.Push(ctx, userID, text)
	})
	return attempts, err
}
