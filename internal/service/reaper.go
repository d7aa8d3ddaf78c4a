package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aikalab/scouter/internal/core"
	"github.com/aikalab/scouter/internal/observability/statsd"
)

// Reaper defaults.
const (
	DefaultReaperInterval     = time.Minute
	DefaultReaperStaleAfter   = 10 * time.Minute
	DefaultReaperBatchSize    = 100
	DefaultTerminalRetention  = 30 * 24 * time.Hour
	DefaultRateLimitRetention = 48 * time.Hour
)

// ReaperConfig holds the sweep settings.
type ReaperConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
	BatchSize  int
	// TerminalRetention bounds how long completed and errored rows are kept.
	TerminalRetention time.Duration
	// RateLimitRetention bounds how long idle rate limit rows are kept.
	RateLimitRetention time.Duration
}

// Sanitize applies defaults to unset fields.
func (c *ReaperConfig) Sanitize() {
	if c.Interval <= 0 {
		c.Interval = DefaultReaperInterval
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultReaperStaleAfter
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultReaperBatchSize
	}
	if c.TerminalRetention <= 0 {
		c.TerminalRetention = DefaultTerminalRetention
	}
	if c.RateLimitRetention <= 0 {
		c.RateLimitRetention = DefaultRateLimitRetention
	}
}

// ReaperOptions groups dependencies for Reaper.
type ReaperOptions struct {
	Jobs       core.ReaperRepository    // Required: stale job sweeps
	RateLimits core.RateLimitRepository // Optional: idle rate limit row purge
	Config     ReaperConfig
	Logger     *slog.Logger // Optional: structured logger
	Metrics    statsd.Sink  // Optional: metric sink
}

// Reaper periodically requeues jobs abandoned by crashed workers and prunes
// aged-out rows. Database-level advisory locks in the repository keep multiple
// replicas from sweeping at once.
type Reaper struct {
	jobs       core.ReaperRepository
	rateLimits core.RateLimitRepository
	cfg        ReaperConfig
	logger     *slog.Logger
	metrics    statsd.Sink
}

// NewReaper constructs a Reaper.
func NewReaper(opts ReaperOptions) *Reaper {
	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "reaper")
	}

	return &Reaper{
		jobs:       opts.Jobs,
		rateLimits: opts.RateLimits,
		cfg:        cfg,
		logger:     logger,
		metrics:    opts.Metrics,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "reaper started",
		"interval", r.cfg.Interval,
		"stale_after", r.cfg.StaleAfter,
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "reaper stopped")
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one pass of all cleanup steps. Each step logs its own failure and
// the pass continues; a broken purge must not stop stale claim recovery.
func (r *Reaper) Sweep(ctx context.Context) {
	requeued, err := r.jobs.ReapStaleProcessing(ctx, r.cfg.StaleAfter, r.cfg.BatchSize)
	if err != nil {
		r.logger.ErrorContext(ctx, "stale job sweep failed", "error", err)
	} else if requeued > 0 {
		r.logger.InfoContext(ctx, "requeued stale jobs", "count", requeued)
		r.count("reaper.requeued", requeued)
	}

	deleted, err := r.jobs.DeleteOldTerminalJobs(ctx, r.cfg.TerminalRetention, r.cfg.BatchSize)
	if err != nil {
		r.logger.ErrorContext(ctx, "terminal job purge failed", "error", err)
	} else if deleted > 0 {
		r.logger.InfoContext(ctx, "purged terminal jobs", "count", deleted)
		r.count("reaper.jobs_purged", deleted)
	}

	if r.rateLimits != nil {
		purged, err := r.rateLimits.Purge(ctx, r.cfg.RateLimitRetention)
		if err != nil {
			r.logger.ErrorContext(ctx, "rate limit purge failed", "error", err)
		} else if purged > 0 {
			r.logger.InfoContext(ctx, "purged idle rate limit rows", "count", purged)
			r.count("reaper.ratelimits_purged", purged)
		}
	}
}

func (r *Reaper) count(name string, n int64) {
	if r.metrics == nil {
		return
	}
	r.metrics.Count(name, n, nil)
}
