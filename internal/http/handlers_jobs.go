package httpx

import (
	"errors"
	"net/http"

	"github.com/aikalab/scouter/internal/core"
	"github.com/aikalab/scouter/internal/domain/model"
)

// JobHandlers provides read-only job inspection endpoints.
type JobHandlers struct {
	Jobs core.JobRepository
}

// GetByID answers GET /v1/jobs/{id}.
func (h *JobHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_job_id", Err: errors.New("job id is required")})
		return
	}

	job, err := h.Jobs.GetByID(r.Context(), jobID)
	if errors.Is(err, model.ErrJobNotFound) {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: err})
		return
	}
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "job_lookup_failed", Err: errors.New("job lookup failed")})
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// Stats answers GET /v1/jobs/stats.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Jobs.Stats(r.Context())
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "stats_failed", Err: errors.New("job stats failed")})
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
