package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"scouter"`
	Password string `env:"PASSWORD" envDefault:"scouter"`
	Name     string `env:"NAME"     envDefault:"scouter"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// CacheConfig contains the analysis result cache configuration (Redis-based).
type CacheConfig struct {
	// Enabled turns the analysis result cache on. A disabled cache just means
	// every redelivered event runs the analysis again.
	Enabled bool `env:"CACHE_ENABLED" envDefault:"true"`

	// ResultTTL is the TTL for cached analysis results.
	ResultTTL time.Duration `env:"CACHE_RESULT_TTL" envDefault:"168h"` // 7 days
}
