package httpx

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/aikalab/scouter/internal/core"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Pipeline EventProcessor
	Jobs     core.JobRepository
	DB       *sql.DB
	Cache    core.CacheRepository
	// MaxBodyBytes caps the trigger event payload size.
	MaxBodyBytes int64
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	eventHandlers := &EventHandlers{
		Pipeline:     services.Pipeline,
		MaxBodyBytes: services.MaxBodyBytes,
		Logger:       logger,
	}
	jobHandlers := &JobHandlers{Jobs: services.Jobs}
	healthHandlers := &HealthHandlers{DB: services.DB, Cache: services.Cache}

	mux.Handle("POST /v1/events/storage", http.HandlerFunc(eventHandlers.HandleStorageEvent))
	mux.Handle("GET /v1/jobs/stats", http.HandlerFunc(jobHandlers.Stats))
	mux.Handle("GET /v1/jobs/{id}", http.HandlerFunc(jobHandlers.GetByID))
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandlers.Health))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandlers.Health))

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = RequestID(handler)
	handler = Recover(logger)(handler)
	return handler
}
