package bootstrap

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/aikalab/scouter/config"
	httpx "github.com/aikalab/scouter/internal/http"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// BuildHTTPServer creates the HTTP server without starting it. The caller
// owns ListenAndServe and Shutdown.
func BuildHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil || cfg.Config == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Pipeline:     cfg.Services.Pipeline,
		Jobs:         cfg.Services.Jobs,
		DB:           cfg.DB,
		Cache:        cfg.Services.Cache,
		MaxBodyBytes: cfg.Config.HTTP.MaxBodyBytes,
		Logger:       logger,
	})

	addr := cfg.Config.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Config.HTTP.ReadTimeout,
		WriteTimeout: cfg.Config.HTTP.WriteTimeout,
		IdleTimeout:  2 * cfg.Config.HTTP.ReadTimeout,
	}
}
