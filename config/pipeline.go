package config

import (
	"strings"
	"time"
)

// PipelineConfig contains the event entry and job claim configuration.
type PipelineConfig struct {
	// DefaultBucket is assumed when a trigger payload carries no bucket field.
	DefaultBucket string `env:"PIPELINE_DEFAULT_BUCKET"`

	// RootPrefix is the only object prefix the pipeline processes.
	RootPrefix string `env:"PIPELINE_ROOT_PREFIX" envDefault:"videos/"`

	// StaleAfter bounds how long another worker's processing claim is honoured
	// before a redelivered event may take the job over.
	StaleAfter time.Duration `env:"PIPELINE_STALE_AFTER" envDefault:"10m"`

	// NotifyRateLimited sends the user a wait hint when an upload is rejected
	// by the rate limiter.
	NotifyRateLimited bool `env:"PIPELINE_NOTIFY_RATE_LIMITED" envDefault:"false"`
}

// Sanitize applies guardrails to pipeline configuration values.
func (p *PipelineConfig) Sanitize() {
	p.RootPrefix = strings.TrimSpace(p.RootPrefix)
	if p.StaleAfter < time.Minute {
		p.StaleAfter = time.Minute
	}
}

// RateLimitConfig contains the per-user upload rate limit configuration.
type RateLimitConfig struct {
	// Window is the sliding window length.
	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1h"`

	// Limit is the number of uploads admitted per window.
	Limit int `env:"RATE_LIMIT_MAX" envDefault:"5"`

	// BurstWindow and BurstLimit form an optional second, shorter window.
	// A zero BurstWindow disables it.
	BurstWindow time.Duration `env:"RATE_LIMIT_BURST_WINDOW" envDefault:"0"`
	BurstLimit  int           `env:"RATE_LIMIT_BURST_MAX"    envDefault:"0"`
}

// Sanitize applies guardrails to rate limit configuration values.
func (r *RateLimitConfig) Sanitize() {
	if r.Window <= 0 {
		r.Window = time.Hour
	}
	if r.Limit < 1 {
		r.Limit = 5
	}
	if r.BurstWindow < 0 {
		r.BurstWindow = 0
	}
	if r.BurstLimit < 0 {
		r.BurstLimit = 0
	}
}

// DeliveryConfig contains the push notification delivery configuration.
type DeliveryConfig struct {
	// LineEndpoint overrides the LINE push API endpoint. Empty uses the
	// production endpoint.
	LineEndpoint string `env:"LINE_PUSH_ENDPOINT"`

	// LineChannelToken authenticates against the LINE Messaging API.
	LineChannelToken string `env:"LINE_CHANNEL_TOKEN"`

	// Timeout bounds one push request.
	Timeout time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"30s"`

	// MaxAttempts is the total number of send attempts, including the first.
	MaxAttempts int `env:"DELIVERY_MAX_ATTEMPTS" envDefault:"3"`

	// BaseDelay is the backoff before the second attempt; it doubles per
	// attempt up to MaxDelay.
	BaseDelay time.Duration `env:"DELIVERY_BASE_DELAY" envDefault:"1s"`
	MaxDelay  time.Duration `env:"DELIVERY_MAX_DELAY"  envDefault:"30s"`

	// MarkBeforeSend flips the notification flag before the first attempt
	// (at-most-once) instead of after a confirmed send (at-least-once).
	MarkBeforeSend bool `env:"DELIVERY_MARK_BEFORE_SEND" envDefault:"false"`
}

// Sanitize applies guardrails to delivery configuration values.
func (d *DeliveryConfig) Sanitize() {
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}
	if d.MaxAttempts < 1 {
		d.MaxAttempts = 1
	}
	if d.BaseDelay < 0 {
		d.BaseDelay = 0
	}
	if d.MaxDelay < d.BaseDelay {
		d.MaxDelay = d.BaseDelay
	}
}

// AnalysisConfig contains the pose analysis configuration.
type AnalysisConfig struct {
	// PoseAPIURL is the base URL of the pose estimation service.
	PoseAPIURL string `env:"POSE_API_URL" envDefault:"http://localhost:9000"`

	// PoseAPIToken authenticates against the pose estimation service.
	PoseAPIToken string `env:"POSE_API_TOKEN"`

	// Timeout bounds one analysis request end to end.
	Timeout time.Duration `env:"POSE_API_TIMEOUT" envDefault:"120s"`

	// MaxVideoBytes rejects larger uploads before the analyzer runs.
	MaxVideoBytes int64 `env:"ANALYSIS_MAX_VIDEO_BYTES" envDefault:"104857600"` // 100MB

	// MaxVideoDuration rejects longer uploads; unknown duration passes.
	MaxVideoDuration time.Duration `env:"ANALYSIS_MAX_VIDEO_DURATION" envDefault:"20s"`
}

// Sanitize applies guardrails to analysis configuration values.
func (a *AnalysisConfig) Sanitize() {
	a.PoseAPIURL = strings.TrimRight(strings.TrimSpace(a.PoseAPIURL), "/")
	if a.Timeout <= 0 {
		a.Timeout = 120 * time.Second
	}
	if a.MaxVideoBytes <= 0 {
		a.MaxVideoBytes = 100 << 20
	}
	if a.MaxVideoDuration <= 0 {
		a.MaxVideoDuration = 20 * time.Second
	}
}
