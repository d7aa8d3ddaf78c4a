package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aikalab/scouter/internal/domain/model"
	apperrors "github.com/aikalab/scouter/internal/errors"
)

type stubAnalyzer struct {
	scores *model.ScoreSet
	err    error
	calls  int
}

func (s *stubAnalyzer) Analyze(ctx context.Context, localPath string) (*model.ScoreSet, error) {
	s.calls++
	return s.scores, s.err
}

func writeVideoFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
	return path
}

func validScores() *model.ScoreSet {
	return &model.ScoreSet{PunchSpeed: 70, GuardStability: 55, KickHeight: 80, CoreRotation: 62}
}

func TestRunSuccess(t *testing.T) {
	analyzer := &stubAnalyzer{scores: validScores()}
	a := NewAdapter(AdapterConfig{Analyzer: analyzer})
	a.probeDuration = func(string) (time.Duration, error) { return 10 * time.Second, nil }

	res, err := a.Run(context.Background(), writeVideoFile(t, 1024))
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, validScores(), res.Scores)
	assert.Equal(t, 1, analyzer.calls)
}

func TestRunOversizeNeverInvokesAnalyzer(t *testing.T) {
	analyzer := &stubAnalyzer{scores: validScores()}
	a := NewAdapter(AdapterConfig{Analyzer: analyzer, MaxVideoBytes: 512})

	res, err := a.Run(context.Background(), writeVideoFile(t, 1024))
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Equal(t, MsgFileTooLarge, res.Message)
	assert.Zero(t, analyzer.calls)
}

func TestRunOverlongRejected(t *testing.T) {
	analyzer := &stubAnalyzer{scores: validScores()}
	a := NewAdapter(AdapterConfig{Analyzer: analyzer, MaxVideoDuration: 20 * time.Second})
	a.probeDuration = func(string) (time.Duration, error) { return 25 * time.Second, nil }

	res, err := a.Run(context.Background(), writeVideoFile(t, 1024))
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, res.Status)
	assert.Equal(t, MsgVideoTooLong, res.Message)
	assert.Zero(t, analyzer.calls)
}

func TestRunUnknownDurationPasses(t *testing.T) {
	analyzer := &stubAnalyzer{scores: validScores()}
	a := NewAdapter(AdapterConfig{Analyzer: analyzer})
	a.probeDuration = func(string) (time.Duration, error) { return 0, ErrDurationUnknown }

	res, err := a.Run(context.Background(), writeVideoFile(t, 1024))
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 1, analyzer.calls)
}

func TestRunAnalyzerFailure(t *testing.T) {
	analyzer := &stubAnalyzer{err: apperrors.New(apperrors.ErrCodeAnalysis, "no person detected")}
	a := NewAdapter(AdapterConfig{Analyzer: analyzer})
	a.probeDuration = func(string) (time.Duration, error) { return 5 * time.Second, nil }

	res, err := a.Run(context.Background(), writeVideoFile(t, 1024))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "no person detected", res.Message)
}

func TestRunMissingFile(t *testing.T) {
	a := NewAdapter(AdapterConfig{Analyzer: &stubAnalyzer{}})
	_, err := a.Run(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	require.Error(t, err)
}
