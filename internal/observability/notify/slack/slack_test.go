package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aikalab/scouter/internal/observability/notify"
)

func samplePayload() notify.PipelineFailurePayload {
	return notify.PipelineFailurePayload{
		JobID:      "job-1",
		UserID:     "user123",
		Stage:      notify.StageAnalysis,
		Error:      "pose service unreachable",
		Severity:   notify.SeverityCritical,
		OccurredAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSendPipelineFailure(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(Config{WebhookURL: srv.URL, Channel: "#alerts"})
	require.NoError(t, err)

	require.NoError(t, c.SendPipelineFailure(context.Background(), samplePayload()))

	text, _ := got["text"].(string)
	assert.Contains(t, text, "job-1")
	assert.Contains(t, text, "Stage: analysis")
	assert.Contains(t, text, "pose service unreachable")
	assert.Contains(t, text, "2026-08-01T12:00:00Z")
	assert.Equal(t, "#alerts", got["channel"])
	assert.Equal(t, "scouter", got["username"])
}

func TestSendPipelineFailureRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(Config{WebhookURL: srv.URL, RetryLimit: 2})
	require.NoError(t, err)

	require.NoError(t, c.SendPipelineFailure(context.Background(), samplePayload()))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendPipelineFailureExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(Config{WebhookURL: srv.URL, RetryLimit: 1})
	require.NoError(t, err)

	err = c.SendPipelineFailure(context.Background(), samplePayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}
