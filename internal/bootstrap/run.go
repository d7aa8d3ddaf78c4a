package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aikalab/scouter/config"
)

// shutdownTimeout is the maximum time to wait for in-flight requests to drain.
const shutdownTimeout = 15 * time.Second

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// RunServicesWithShutdown starts all enabled services and manages their
// lifecycle. It blocks until a shutdown signal arrives or a service fails;
// either way every service is stopped before it returns.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if enabled[config.ServiceModeHTTP] {
		runHTTPServer(gctx, g, cfg, logger)
	}

	if enabled[config.ServiceModeReaper] {
		g.Go(func() error {
			logger.InfoContext(gctx, "background service started", "service", "reaper")
			if runErr := cfg.Services.Reaper.Run(gctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				return fmt.Errorf("reaper failed: %w", runErr)
			}
			return nil
		})
	}

	if enabled[config.ServiceModeCleanup] {
		g.Go(func() error {
			logger.InfoContext(gctx, "background service started", "service", "cleanup")
			return runCleanupLoop(gctx, cfg, logger)
		})
	}

	if waitErr := g.Wait(); waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}

	logger.Info("all services stopped")
	return nil
}

// runHTTPServer starts the listener and a companion goroutine that drains it
// once the group context is cancelled.
func runHTTPServer(gctx context.Context, g *errgroup.Group, cfg *ServiceOrchestrationConfig, logger *slog.Logger) {
	server := BuildHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		DB:       cfg.DB,
		Logger:   logger,
	})
	if server == nil {
		return
	}

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if serveErr := server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", serveErr)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("http server shutdown: %w", shutdownErr)
		}
		logger.Info("HTTP server stopped")
		return nil
	})
}

// runCleanupLoop runs a cleanup pass on the configured interval. A failed pass
// is logged and retried on the next tick; only context cancellation stops it.
func runCleanupLoop(ctx context.Context, cfg *ServiceOrchestrationConfig, logger *slog.Logger) error {
	interval := cfg.Config.Cleanup.Interval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.InfoContext(ctx, "cleanup loop started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report, err := cfg.Services.Cleaner.Run(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "cleanup pass failed", "error", err)
				continue
			}
			logger.InfoContext(ctx, "cleanup pass finished",
				"scanned", report.Scanned,
				"deleted", report.Deleted,
				"freed_bytes", report.FreedBytes,
				"dry_run", report.DryRun,
			)
		}
	}
}
