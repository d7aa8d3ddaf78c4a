package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/aikalab/scouter/internal/core"
	apperrors "github.com/aikalab/scouter/internal/errors"
	"github.com/aikalab/scouter/internal/observability/statsd"
)

// Cleanup defaults. The byte budget sits just under the 5GB bucket quota so a
// burst of uploads cannot tip the bucket over before the next sweep.
const (
	DefaultCleanupMaxAge        = 24 * time.Hour
	DefaultCleanupMaxTotalBytes = int64(49 * (1 << 30) / 10)
	DefaultCleanupBatchSize     = 500
)

// CleanupConfig holds the bucket cleanup settings.
type CleanupConfig struct {
	Bucket string
	Prefix string
	// MaxAge deletes objects older than this regardless of the byte budget.
	MaxAge time.Duration
	// MaxTotalBytes deletes oldest objects first until the bucket fits the
	// budget. Zero disables the budget sweep.
	MaxTotalBytes int64
	BatchSize     int
	// DryRun logs what would be deleted without deleting.
	DryRun bool
}

// Sanitize applies defaults to unset fields.
func (c *CleanupConfig) Sanitize() {
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultCleanupMaxAge
	}
	if c.MaxTotalBytes < 0 {
		c.MaxTotalBytes = DefaultCleanupMaxTotalBytes
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultCleanupBatchSize
	}
}

// CleanupOptions groups dependencies for Cleaner.
type CleanupOptions struct {
	Store   core.ObjectStore // Required: bucket access
	Config  CleanupConfig
	Logger  *slog.Logger // Optional: structured logger
	Metrics statsd.Sink  // Optional: metric sink
}

// CleanupReport summarises one cleanup run.
type CleanupReport struct {
	Scanned    int   `json:"scanned"`
	Deleted    int   `json:"deleted"`
	FreedBytes int64 `json:"freed_bytes"`
	DryRun     bool  `json:"dry_run"`
}

// Cleaner removes analyzed videos from the bucket: everything past the age
// limit goes, then oldest-first until the remainder fits the byte budget.
type Cleaner struct {
	store   core.ObjectStore
	cfg     CleanupConfig
	logger  *slog.Logger
	metrics statsd.Sink
	now     func() time.Time
}

// NewCleaner constructs a Cleaner.
func NewCleaner(opts CleanupOptions) *Cleaner {
	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "cleanup")
	}

	return &Cleaner{
		store:   opts.Store,
		cfg:     cfg,
		logger:  logger,
		metrics: opts.Metrics,
		now:     time.Now,
	}
}

// Run executes one cleanup pass over the bucket.
func (c *Cleaner) Run(ctx context.Context) (*CleanupReport, error) {
	now := c.now().UTC()

	// Cutoff at now lists the whole prefix; the age and budget rules are
	// applied locally so one listing serves both.
	objects, err := c.store.ListOlderThan(ctx, core.ListOlderThanParams{
		Bucket: c.cfg.Bucket,
		Prefix: c.cfg.Prefix,
		Cutoff: now,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "list bucket")
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.Before(objects[j].LastModified)
	})

	var totalBytes int64
	for _, obj := range objects {
		totalBytes += obj.Size
	}

	ageCutoff := now.Add(-c.cfg.MaxAge)
	report := &CleanupReport{Scanned: len(objects), DryRun: c.cfg.DryRun}

	for _, obj := range objects {
		if report.Deleted >= c.cfg.BatchSize {
			break
		}

		overAge := obj.LastModified.Before(ageCutoff)
		overBudget := c.cfg.MaxTotalBytes > 0 && totalBytes-report.FreedBytes > c.cfg.MaxTotalBytes
		if !overAge && !overBudget {
			// Objects are oldest first, so nothing further matches either rule.
			break
		}

		if c.cfg.DryRun {
			c.logger.InfoContext(ctx, "would delete object",
				"key", obj.Key,
				"size", obj.Size,
				"last_modified", obj.LastModified,
			)
		} else if err := c.store.Delete(ctx, c.cfg.Bucket, obj.Key); err != nil {
			c.logger.ErrorContext(ctx, "object not deleted", "key", obj.Key, "error", err)
			continue
		}

		report.Deleted++
		report.FreedBytes += obj.Size
	}

	c.logger.InfoContext(ctx, "cleanup pass finished",
		"scanned", report.Scanned,
		"deleted", report.Deleted,
		"freed_bytes", report.FreedBytes,
		"dry_run", report.DryRun,
	)
	if c.metrics != nil && !c.cfg.DryRun {
		c.metrics.Count("cleanup.deleted", int64(report.Deleted), nil)
		c.metrics.Gauge("cleanup.freed_bytes", float64(report.FreedBytes), nil)
	}
	return report, nil
}
