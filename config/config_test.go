package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:  "single service - http",
			input: "http",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP: true,
			},
		},
		{
			name:  "single service - reaper",
			input: "reaper",
			expected: map[ServiceMode]bool{
				ServiceModeReaper: true,
			},
		},
		{
			name:  "all services",
			input: "http,reaper,cleanup",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:    true,
				ServiceModeReaper:  true,
				ServiceModeCleanup: true,
			},
		},
		{
			name:  "services with spaces",
			input: " http , reaper ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:   true,
				ServiceModeReaper: true,
			},
		},
		{
			name:  "duplicate services",
			input: "http,http,reaper",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:   true,
				ServiceModeReaper: true,
			},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "invalid service",
			input:       "http,scheduler",
			expectError: true,
		},
		{
			name:        "only commas",
			input:       ",,,",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error for input %q, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppConfigDefaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	cfg.Sanitize()

	if cfg.Services != "http" {
		t.Errorf("Services = %q, want http", cfg.Services)
	}
	if cfg.RateLimit.Window != time.Hour {
		t.Errorf("RateLimit.Window = %v, want 1h", cfg.RateLimit.Window)
	}
	if cfg.RateLimit.Limit != 5 {
		t.Errorf("RateLimit.Limit = %d, want 5", cfg.RateLimit.Limit)
	}
	if cfg.Delivery.MaxAttempts != 3 {
		t.Errorf("Delivery.MaxAttempts = %d, want 3", cfg.Delivery.MaxAttempts)
	}
	if cfg.Delivery.MarkBeforeSend {
		t.Error("Delivery.MarkBeforeSend should default to false")
	}
	if cfg.Analysis.MaxVideoBytes != 100<<20 {
		t.Errorf("Analysis.MaxVideoBytes = %d, want 100MB", cfg.Analysis.MaxVideoBytes)
	}
	if cfg.Analysis.MaxVideoDuration != 20*time.Second {
		t.Errorf("Analysis.MaxVideoDuration = %v, want 20s", cfg.Analysis.MaxVideoDuration)
	}
	if cfg.Reaper.StaleAfter != 10*time.Minute {
		t.Errorf("Reaper.StaleAfter = %v, want 10m", cfg.Reaper.StaleAfter)
	}
	if cfg.Cleanup.MaxAge != 24*time.Hour {
		t.Errorf("Cleanup.MaxAge = %v, want 24h", cfg.Cleanup.MaxAge)
	}
	if cfg.Cache.ResultTTL != 168*time.Hour {
		t.Errorf("Cache.ResultTTL = %v, want 168h", cfg.Cache.ResultTTL)
	}
}

func TestSanitizeClampsBadValues(t *testing.T) {
	cfg := AppConfig{
		Services: "http",
		RateLimit: RateLimitConfig{
			Window: -time.Hour,
			Limit:  0,
		},
		Delivery: DeliveryConfig{
			MaxAttempts: -1,
			BaseDelay:   2 * time.Second,
			MaxDelay:    time.Second,
		},
		Reaper: ReaperConfig{
			Interval:   time.Second,
			StaleAfter: time.Second,
		},
	}
	cfg.Sanitize()

	if cfg.RateLimit.Window != time.Hour {
		t.Errorf("RateLimit.Window = %v, want 1h", cfg.RateLimit.Window)
	}
	if cfg.RateLimit.Limit != 5 {
		t.Errorf("RateLimit.Limit = %d, want 5", cfg.RateLimit.Limit)
	}
	if cfg.Delivery.MaxAttempts != 1 {
		t.Errorf("Delivery.MaxAttempts = %d, want 1", cfg.Delivery.MaxAttempts)
	}
	if cfg.Delivery.MaxDelay != 2*time.Second {
		t.Errorf("Delivery.MaxDelay = %v, want BaseDelay", cfg.Delivery.MaxDelay)
	}
	if cfg.Reaper.Interval != 10*time.Second {
		t.Errorf("Reaper.Interval = %v, want 10s floor", cfg.Reaper.Interval)
	}
	if cfg.Reaper.StaleAfter != time.Minute {
		t.Errorf("Reaper.StaleAfter = %v, want 1m floor", cfg.Reaper.StaleAfter)
	}
}

func TestServiceModeHelpers(t *testing.T) {
	cfg := AppConfig{Services: "http,cleanup"}
	if !cfg.IsHTTPServerEnabled() {
		t.Error("http should be enabled")
	}
	if cfg.IsReaperEnabled() {
		t.Error("reaper should not be enabled")
	}
	if !cfg.IsCleanupEnabled() {
		t.Error("cleanup should be enabled")
	}
}
