package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memReaperRepo struct {
	mu          sync.Mutex
	stale       int64
	terminal    int64
	reapCalls   int
	deleteCalls int
	reapErr     error
}

func (m *memReaperRepo) ReapStaleProcessing(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reapCalls++
	if m.reapErr != nil {
		return 0, m.reapErr
	}
	n := m.stale
	m.stale = 0
	return n, nil
}

func (m *memReaperRepo) DeleteOldTerminalJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	n := m.terminal
	m.terminal = 0
	return n, nil
}

func (m *memReaperRepo) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reapCalls, m.deleteCalls
}

func TestSweepRunsAllSteps(t *testing.T) {
	jobs := &memReaperRepo{stale: 3, terminal: 7}
	rl := newMemRateLimitRepo()
	r := NewReaper(ReaperOptions{Jobs: jobs, RateLimits: rl})

	r.Sweep(context.Background())

	reaps, deletes := jobs.calls()
	assert.Equal(t, 1, reaps)
	assert.Equal(t, 1, deletes)
}

func TestSweepContinuesPastFailure(t *testing.T) {
	jobs := &memReaperRepo{reapErr: errors.New("connection refused"), terminal: 2}
	r := NewReaper(ReaperOptions{Jobs: jobs})

	r.Sweep(context.Background())

	_, deletes := jobs.calls()
	assert.Equal(t, 1, deletes, "terminal purge must run even when the stale sweep fails")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	jobs := &memReaperRepo{}
	r := NewReaper(ReaperOptions{Jobs: jobs, Config: ReaperConfig{Interval: time.Millisecond}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := r.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	reaps, _ := jobs.calls()
	assert.Greater(t, reaps, 0, "at least one sweep before shutdown")
}
