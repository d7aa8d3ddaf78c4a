package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCache struct {
	healthErr error
}

func (s *stubCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}
func (s *stubCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }
func (s *stubCache) Delete(ctx context.Context, key string) (bool, error) {
	return false, nil
}
func (s *stubCache) SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return false, nil
}
func (s *stubCache) Health(ctx context.Context) error { return s.healthErr }

func TestHealthOK(t *testing.T) {
	h := &HealthHandlers{Cache: &stubCache{}}
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealthDegradedWhenCacheDown(t *testing.T) {
	h := &HealthHandlers{Cache: &stubCache{healthErr: errors.New("connection refused")}}
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestHealthHeadHasNoBody(t *testing.T) {
	h := &HealthHandlers{Cache: &stubCache{}}
	req := httptest.NewRequest(http.MethodHead, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
