package httpx

import (
	"database/sql"
	"net/http"

	"github.com/aikalab/scouter/internal/core"
)

// HealthHandlers answers readiness checks against the backing stores.
type HealthHandlers struct {
	DB    *sql.DB
	Cache core.CacheRepository
}

// Health answers GET /healthz. A store that cannot be reached flips the
// response to 503 so the platform stops routing events here.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{}
	healthy := true

	if h.DB != nil {
		checks["postgres"] = "ok"
		if err := h.DB.PingContext(ctx); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		}
	}

	if h.Cache != nil {
		checks["redis"] = "ok"
		if err := h.Cache.Health(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		}
	}

	code := http.StatusOK
	status := "ok"
	if !healthy {
		code = http.StatusServiceUnavailable
		status = "degraded"
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(code)
		return
	}
	WriteJSON(w, code, map[string]any{"status": status, "checks": checks})
}
