package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aikalab/scouter/internal/errors"
	"github.com/aikalab/scouter/internal/service"
)

type stubProcessor struct {
	outcome service.Outcome
	err     error
	lastRaw []byte
}

func (s *stubProcessor) Process(ctx context.Context, raw []byte) (service.Outcome, error) {
	s.lastRaw = raw
	return s.outcome, s.err
}

func postEvent(t *testing.T, h *EventHandlers, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/events/storage", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleStorageEvent(rec, req)
	return rec
}

func TestHandleStorageEventCompleted(t *testing.T) {
	proc := &stubProcessor{outcome: service.Outcome{Kind: service.OutcomeCompleted, JobID: "job1"}}
	h := &EventHandlers{Pipeline: proc}

	rec := postEvent(t, h, `{"bucket":"b","name":"videos/u1/job1/clip.mp4"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"completed"`)
	assert.Contains(t, string(proc.lastRaw), "clip.mp4")
}

func TestHandleStorageEventSkippedStillOK(t *testing.T) {
	proc := &stubProcessor{outcome: service.Outcome{Kind: service.OutcomeSkipped, Reason: "claim lost"}}
	h := &EventHandlers{Pipeline: proc}

	rec := postEvent(t, h, `{}`)
	// A handled skip must not trigger a redelivery.
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"skipped"`)
}

func TestHandleStorageEventStoreUnavailable(t *testing.T) {
	proc := &stubProcessor{err: apperrors.New(apperrors.ErrCodeUnavailable, "db down")}
	h := &EventHandlers{Pipeline: proc}

	rec := postEvent(t, h, `{}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "pipeline_failed")
}

func TestHandleStorageEventInternalError(t *testing.T) {
	proc := &stubProcessor{err: assert.AnError}
	h := &EventHandlers{Pipeline: proc}

	rec := postEvent(t, h, `{}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleStorageEventBodyCapped(t *testing.T) {
	proc := &stubProcessor{outcome: service.Outcome{Kind: service.OutcomeSkipped}}
	h := &EventHandlers{Pipeline: proc, MaxBodyBytes: 8}

	postEvent(t, h, strings.Repeat("a", 100))
	assert.Len(t, proc.lastRaw, 8)
}
