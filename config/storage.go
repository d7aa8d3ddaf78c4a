package config

import "time"

// StorageConfig contains S3 object storage configuration.
type StorageConfig struct {
	Region string `env:"REGION" envDefault:"ap-northeast-1"`

	// Endpoint is only set for S3-compatible services (MinIO and friends).
	Endpoint string `env:"ENDPOINT"`

	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`

	// Bucket is the video upload bucket.
	Bucket string `env:"BUCKET" envDefault:"scouter-videos"`

	// TempDir is where downloaded videos land. Empty uses the OS default.
	TempDir string `env:"TEMP_DIR"`
}

// CleanupConfig contains storage cleanup configuration.
type CleanupConfig struct {
	// Interval is the cleanup tick interval.
	Interval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`

	// Prefix limits the sweep to the pipeline's object root.
	Prefix string `env:"CLEANUP_PREFIX" envDefault:"videos/"`

	// MaxAge deletes objects older than this regardless of bucket usage.
	MaxAge time.Duration `env:"CLEANUP_MAX_AGE" envDefault:"24h"`

	// MaxTotalBytes deletes oldest objects first until the bucket fits the
	// budget. Zero disables the budget sweep.
	MaxTotalBytes int64 `env:"CLEANUP_MAX_TOTAL_BYTES" envDefault:"5261334937"` // 4.9GB

	// BatchSize caps deletions per pass.
	BatchSize int `env:"CLEANUP_BATCH_SIZE" envDefault:"500"`

	// DryRun logs what would be deleted without deleting.
	DryRun bool `env:"CLEANUP_DRY_RUN" envDefault:"false"`
}

// Sanitize applies guardrails to cleanup configuration values.
func (c *CleanupConfig) Sanitize() {
	if c.Interval < time.Minute {
		c.Interval = time.Minute
	}
	if c.MaxAge < time.Hour {
		c.MaxAge = time.Hour
	}
	if c.MaxTotalBytes < 0 {
		c.MaxTotalBytes = 0
	}
	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
}
