package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/aikalab/scouter/config"
	"github.com/aikalab/scouter/internal/analysis"
	"github.com/aikalab/scouter/internal/data"
	"github.com/aikalab/scouter/internal/delivery/line"
	"github.com/aikalab/scouter/internal/entry"
	"github.com/aikalab/scouter/internal/observability/notify/slack"
	"github.com/aikalab/scouter/internal/observability/statsd"
	"github.com/aikalab/scouter/internal/secrets"
	"github.com/aikalab/scouter/internal/service"
	"github.com/aikalab/scouter/internal/service/failurenotifier"
	"github.com/aikalab/scouter/internal/storage"
)

// secretEnvPrefix namespaces the env variables read by the fallback secret
// resolver, keeping them apart from the regular config surface.
const secretEnvPrefix = "SCOUTER_SECRET"

// ServiceContainer holds all application services.
type ServiceContainer struct {
	// Pipeline is nil when the HTTP service is not enabled.
	Pipeline *service.Pipeline
	Delivery *service.DeliveryService
	Limiter  *service.RateLimiter

	Reaper  *service.Reaper
	Cleaner *service.Cleaner

	Jobs  *data.JobRepo
	Cache *data.RedisCacheRepo
	Store *storage.Store

	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB            *sql.DB
	Redis         redis.UniversalClient
	JobRepo       *data.JobRepo
	RateLimitRepo *data.RateLimitRepo
	CacheRepo     *data.RedisCacheRepo
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "scouter",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	failureNotifier := buildFailureNotifier(obsLogger, cfg.Notifications)

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: failureNotifier,
		NotifierConfig:  cfg.Notifications,
	}
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{
			Logger: baseLogger.With("component", "failure_notifier"),
		})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 1)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger: baseLogger.With("component", "failure_notifier"),
		Sinks:  sinks,
	})
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient, logger *slog.Logger) *serviceRepositories {
	return &serviceRepositories{
		DB:            db,
		Redis:         redisClient,
		JobRepo:       data.NewJobRepo(db, data.JobRepoConfig{Logger: logger}),
		RateLimitRepo: data.NewRateLimitRepo(db, data.RateLimitRepoConfig{Logger: logger}),
		CacheRepo:     data.NewRedisCacheRepo(redisClient),
	}
}

// resolveToken prefers the plain config value and falls back to the process
// secret resolver, so tokens can come from either surface.
func resolveToken(cfgValue string, resolver secrets.Resolver, name string) string {
	if cfgValue != "" {
		return cfgValue
	}
	v, err := resolver.Resolve(name)
	if err != nil {
		return ""
	}
	return v
}

func newDeliveryService(
	repos *serviceRepositories,
	cfg *config.AppConfig,
	token string,
	observability ObservabilityContainer,
	logger *slog.Logger,
) (*service.DeliveryService, error) {
	pusher, err := line.NewClient(line.Config{
		Endpoint:     cfg.Delivery.LineEndpoint,
		ChannelToken: token,
		Timeout:      cfg.Delivery.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build line client: %w", err)
	}

	return service.NewDeliveryService(service.DeliveryServiceOptions{
		Jobs:   repos.JobRepo,
		Pusher: pusher,
		Config: service.DeliveryConfig{
			MaxAttempts:    cfg.Delivery.MaxAttempts,
			BaseDelay:      cfg.Delivery.BaseDelay,
			MaxDelay:       cfg.Delivery.MaxDelay,
			MarkBeforeSend: cfg.Delivery.MarkBeforeSend,
		},
		Retryable: line.IsRetryable,
		Logger:    logger,
		Notifier:  observability.FailureNotifier,
		Metrics:   observability.MetricsSink,
	}), nil
}

func newRateLimiter(repos *serviceRepositories, cfg config.RateLimitConfig, observability ObservabilityContainer, logger *slog.Logger) *service.RateLimiter {
	return service.NewRateLimiter(service.RateLimiterOptions{
		Repo: repos.RateLimitRepo,
		Config: service.RateLimitConfig{
			Window:      cfg.Window,
			Limit:       cfg.Limit,
			BurstWindow: cfg.BurstWindow,
			BurstLimit:  cfg.BurstLimit,
		},
		Logger:  logger,
		Metrics: observability.MetricsSink,
	})
}

func newAnalysisAdapter(cfg config.AnalysisConfig, poseToken string, logger *slog.Logger) *analysis.Adapter {
	poseClient := analysis.NewPoseClient(analysis.PoseClientConfig{
		BaseURL: cfg.PoseAPIURL,
		Token:   poseToken,
		Timeout: cfg.Timeout,
	})
	return analysis.NewAdapter(analysis.AdapterConfig{
		Analyzer:         poseClient,
		MaxVideoBytes:    cfg.MaxVideoBytes,
		MaxVideoDuration: cfg.MaxVideoDuration,
		Logger:           logger,
	})
}

type pipelineDeps struct {
	Repos         *serviceRepositories
	Config        *config.AppConfig
	Store         *storage.Store
	Delivery      *service.DeliveryService
	Limiter       *service.RateLimiter
	Analyzer      *analysis.Adapter
	Observability ObservabilityContainer
	Logger        *slog.Logger
}

func newPipeline(deps pipelineDeps) *service.Pipeline {
	cfg := deps.Config

	opts := service.PipelineOptions{
		Decoder:           entry.NewDecoder(entry.DecoderOptions{DefaultBucket: defaultBucket(cfg)}),
		Resolver:          entry.NewResolver(cfg.Pipeline.RootPrefix),
		Jobs:              deps.Repos.JobRepo,
		Limiter:           deps.Limiter,
		Store:             deps.Store,
		Analyzer:          deps.Analyzer,
		Delivery:          deps.Delivery,
		StaleAfter:        cfg.Pipeline.StaleAfter,
		NotifyRateLimited: cfg.Pipeline.NotifyRateLimited,
		Logger:            deps.Logger,
		Notifier:          deps.Observability.FailureNotifier,
		Metrics:           deps.Observability.MetricsSink,
	}
	if cfg.Cache.Enabled {
		opts.Cache = deps.Repos.CacheRepo
		opts.CacheTTL = cfg.Cache.ResultTTL
	}

	return service.NewPipeline(opts)
}

func defaultBucket(cfg *config.AppConfig) string {
	if cfg.Pipeline.DefaultBucket != "" {
		return cfg.Pipeline.DefaultBucket
	}
	return cfg.Storage.Bucket
}

func newReaper(repos *serviceRepositories, cfg config.ReaperConfig, observability ObservabilityContainer, logger *slog.Logger) *service.Reaper {
	return service.NewReaper(service.ReaperOptions{
		Jobs:       repos.JobRepo,
		RateLimits: repos.RateLimitRepo,
		Config: service.ReaperConfig{
			Interval:           cfg.Interval,
			StaleAfter:         cfg.StaleAfter,
			BatchSize:          cfg.BatchSize,
			TerminalRetention:  cfg.TerminalMaxAge,
			RateLimitRetention: cfg.RateLimitMaxAge,
		},
		Logger:  logger,
		Metrics: observability.MetricsSink,
	})
}

func newCleaner(store *storage.Store, cfg *config.AppConfig, observability ObservabilityContainer, logger *slog.Logger) *service.Cleaner {
	return service.NewCleaner(service.CleanupOptions{
		Store: store,
		Config: service.CleanupConfig{
			Bucket:        cfg.Storage.Bucket,
			Prefix:        cfg.Cleanup.Prefix,
			MaxAge:        cfg.Cleanup.MaxAge,
			MaxTotalBytes: cfg.Cleanup.MaxTotalBytes,
			BatchSize:     cfg.Cleanup.BatchSize,
			DryRun:        cfg.Cleanup.DryRun,
		},
		Logger:  logger,
		Metrics: observability.MetricsSink,
	})
}

// NewServices wires the application services from shared infrastructure. The
// delivery and pipeline stack is only built when the HTTP service is enabled,
// since only event intake needs a push transport.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil {
		return ServiceContainer{}, errors.New("service dependencies are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg == nil {
		return ServiceContainer{}, errors.New("app config is required")
	}

	observability := buildObservability(logger, cfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient, logger)

	store, err := storage.New(storage.Config{
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		TempDir:         cfg.Storage.TempDir,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build object store: %w", err)
	}

	container := ServiceContainer{
		Jobs:          repos.JobRepo,
		Cache:         repos.CacheRepo,
		Store:         store,
		Reaper:        newReaper(repos, cfg.Reaper, observability, logger),
		Cleaner:       newCleaner(store, cfg, observability, logger),
		Observability: observability,
	}

	if !cfg.IsHTTPServerEnabled() {
		return container, nil
	}

	resolver := secrets.NewEnvResolver(secretEnvPrefix)

	lineToken := resolveToken(cfg.Delivery.LineChannelToken, resolver, "line-channel-token")
	if lineToken == "" {
		return ServiceContainer{}, errors.New("line channel token is not configured")
	}

	delivery, err := newDeliveryService(repos, cfg, lineToken, observability, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	limiter := newRateLimiter(repos, cfg.RateLimit, observability, logger)
	analyzer := newAnalysisAdapter(cfg.Analysis, resolveToken(cfg.Analysis.PoseAPIToken, resolver, "pose-api-token"), logger)

	container.Delivery = delivery
	container.Limiter = limiter
	container.Pipeline = newPipeline(pipelineDeps{
		Repos:         repos,
		Config:        cfg,
		Store:         store,
		Delivery:      delivery,
		Limiter:       limiter,
		Analyzer:      analyzer,
		Observability: observability,
		Logger:        logger,
	})

	return container, nil
}
