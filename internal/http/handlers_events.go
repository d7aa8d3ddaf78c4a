// Package httpx provides the HTTP surface of the scouter video pipeline.
package httpx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/aikalab/scouter/internal/errors"
	"github.com/aikalab/scouter/internal/service"
)

// EventProcessor runs one raw storage trigger event through the pipeline.
type EventProcessor interface {
	Process(ctx context.Context, raw []byte) (service.Outcome, error)
}

// EventHandlers provides the storage trigger ingestion endpoint.
type EventHandlers struct {
	Pipeline     EventProcessor
	MaxBodyBytes int64
	Logger       *slog.Logger
}

func (h *EventHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// HandleStorageEvent ingests one storage trigger event. Every handled
// condition answers 200 so the trigger source does not redeliver; only an
// unreachable backing store earns a retryable 5xx.
func (h *EventHandlers) HandleStorageEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	maxBytes := h.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "unreadable_body", Err: err})
		return
	}

	outcome, err := h.Pipeline.Process(ctx, raw)
	if err != nil {
		h.logger().ErrorContext(ctx, "pipeline run failed",
			"request_id", RequestIDFromContext(ctx),
			"error", err,
		)
		code := http.StatusInternalServerError
		if apperrors.IsUnavailable(err) {
			code = http.StatusServiceUnavailable
		}
		WriteError(w, ErrorParams{Code: code, ErrCode: "pipeline_failed", Err: errors.New("event processing failed")})
		return
	}

	WriteJSON(w, http.StatusOK, outcome)
}
