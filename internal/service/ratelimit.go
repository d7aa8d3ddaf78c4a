package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aikalab/scouter/internal/core"
	"github.com/aikalab/scouter/internal/domain/model"
	"github.com/aikalab/scouter/internal/observability/metrics"
	"github.com/aikalab/scouter/internal/observability/statsd"
)

// Rate limit defaults.
const (
	DefaultRateLimitWindow = time.Hour
	DefaultRateLimitMax    = 5
)

// RateLimitConfig holds the window settings. A zero BurstWindow disables the
// secondary short window.
type RateLimitConfig struct {
	Window time.Duration
	Limit  int
	// BurstWindow and BurstLimit form an optional second, shorter window.
	// When configured, both windows must admit.
	BurstWindow time.Duration
	BurstLimit  int
}

// Sanitize applies defaults to unset fields.
func (c *RateLimitConfig) Sanitize() {
	if c.Window <= 0 {
		c.Window = DefaultRateLimitWindow
	}
	if c.Limit <= 0 {
		c.Limit = DefaultRateLimitMax
	}
}

// RateLimiterOptions groups dependencies for RateLimiter.
type RateLimiterOptions struct {
	Repo    core.RateLimitRepository // Required: sliding window store
	Config  RateLimitConfig
	Logger  *slog.Logger // Optional: structured logger
	Metrics statsd.Sink  // Optional: metric sink
}

// RateLimiter decides whether an upload is admitted for a user. The check
// never fails the caller: an unreachable store admits the request (fail open)
// so a counter outage cannot block analyses.
type RateLimiter struct {
	repo    core.RateLimitRepository
	cfg     RateLimitConfig
	logger  *slog.Logger
	metrics statsd.Sink
	now     func() time.Time
}

// NewRateLimiter constructs a RateLimiter.
func NewRateLimiter(opts RateLimiterOptions) *RateLimiter {
	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "rate_limiter")
	}

	return &RateLimiter{
		repo:    opts.Repo,
		cfg:     cfg,
		logger:  logger,
		metrics: opts.Metrics,
		now:     time.Now,
	}
}

// Admit records one attempt for (userID, action) and reports the decision.
func (s *RateLimiter) Admit(ctx context.Context, userID, action string) model.RateLimitDecision {
	now := s.now().UTC()

	if s.cfg.BurstWindow > 0 && s.cfg.BurstLimit > 0 {
		decision := s.reserve(ctx, reserveParams{
			key:    userID + ":" + action + ":burst",
			window: s.cfg.BurstWindow,
			limit:  s.cfg.BurstLimit,
			now:    now,
		})
		if !decision.Allowed {
			metrics.EmitRateLimit(s.metrics, false, decision.FailedOpen)
			return decision
		}
	}

	decision := s.reserve(ctx, reserveParams{
		key:    userID + ":" + action,
		window: s.cfg.Window,
		limit:  s.cfg.Limit,
		now:    now,
	})
	metrics.EmitRateLimit(s.metrics, decision.Allowed, decision.FailedOpen)
	return decision
}

type reserveParams struct {
	key    string
	window time.Duration
	limit  int
	now    time.Time
}

func (s *RateLimiter) reserve(ctx context.Context, p reserveParams) model.RateLimitDecision {
	result, err := s.repo.Reserve(ctx, &model.RateLimitReservation{
		Key:    p.key,
		Window: p.window,
		Limit:  p.limit,
		Now:    p.now,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "rate limit store unreachable, admitting",
			"key", p.key,
			"error", err,
		)
		return model.RateLimitDecision{Allowed: true, FailedOpen: true, Remaining: p.limit}
	}

	decision := model.RateLimitDecision{
		Allowed:   result.Reserved,
		Remaining: p.limit - result.Count,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if !result.Reserved && !result.OldestEntry.IsZero() {
		retryAfter := result.OldestEntry.Add(p.window).Sub(p.now)
		if retryAfter > 0 {
			decision.RetryAfter = retryAfter
		}
	}
	return decision
}
