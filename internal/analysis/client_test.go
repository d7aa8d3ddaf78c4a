package analysis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aikalab/scouter/internal/errors"
)

func uploadFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video bytes"), 0o600))
	return path
}

func TestAnalyzeSuccess(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("video")
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","scores":{"punch_speed":70,"guard_stability":55,"kick_height":80,"core_rotation":62}}`))
	}))
	defer srv.Close()

	c := NewPoseClient(PoseClientConfig{BaseURL: srv.URL, Token: "secret"})
	scores, err := c.Analyze(context.Background(), uploadFixture(t))
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.InDelta(t, 70.0, scores.PunchSpeed, 0.001)
	assert.InDelta(t, 62.0, scores.CoreRotation, 0.001)
}

func TestAnalyzeReportedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"failed","error_message":"no person detected"}`))
	}))
	defer srv.Close()

	c := NewPoseClient(PoseClientConfig{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background(), uploadFixture(t))
	require.Error(t, err)
	assert.True(t, apperrors.IsAnalysis(err))
	assert.Contains(t, err.Error(), "no person detected")
}

func TestAnalyzeHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewPoseClient(PoseClientConfig{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background(), uploadFixture(t))
	require.Error(t, err)
	assert.True(t, apperrors.IsAnalysis(err))
}

func TestAnalyzeOutOfRangeScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","scores":{"punch_speed":140,"guard_stability":55,"kick_height":80,"core_rotation":62}}`))
	}))
	defer srv.Close()

	c := NewPoseClient(PoseClientConfig{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background(), uploadFixture(t))
	require.Error(t, err)
	assert.True(t, apperrors.IsAnalysis(err))
}

func TestAnalyzeUnreachable(t *testing.T) {
	c := NewPoseClient(PoseClientConfig{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Analyze(context.Background(), uploadFixture(t))
	require.Error(t, err)
	assert.True(t, apperrors.IsAnalysis(err))
}
