package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aikalab/scouter/internal/core"
	"github.com/aikalab/scouter/internal/domain/model"
)

// listStore serves a fixed object listing and records deletions.
type listStore struct {
	mu      sync.Mutex
	objects []model.StoredObject
	deleted []string
}

func (s *listStore) Head(ctx context.Context, bucket, key string) (int64, error) { return 0, nil }

func (s *listStore) Download(ctx context.Context, bucket, key string) (string, error) {
	return "", nil
}

func (s *listStore) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *listStore) ListOlderThan(ctx context.Context, params core.ListOlderThanParams) ([]model.StoredObject, error) {
	out := make([]model.StoredObject, len(s.objects))
	copy(out, s.objects)
	return out, nil
}

func (s *listStore) deletedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

func newTestCleaner(store *listStore, cfg CleanupConfig, at time.Time) *Cleaner {
	c := NewCleaner(CleanupOptions{Store: store, Config: cfg})
	c.now = func() time.Time { return at }
	return c
}

func TestCleanupDeletesExpiredObjects(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := &listStore{objects: []model.StoredObject{
		{Key: "videos/u1/old.mp4", Size: 100, LastModified: now.Add(-48 * time.Hour)},
		{Key: "videos/u2/fresh.mp4", Size: 100, LastModified: now.Add(-time.Hour)},
	}}
	c := newTestCleaner(store, CleanupConfig{Bucket: "b", MaxAge: 24 * time.Hour}, now)

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Deleted)
	assert.Equal(t, []string{"videos/u1/old.mp4"}, store.deletedKeys())
}

func TestCleanupEnforcesByteBudgetOldestFirst(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := &listStore{objects: []model.StoredObject{
		{Key: "c.mp4", Size: 400, LastModified: now.Add(-3 * time.Hour)},
		{Key: "a.mp4", Size: 400, LastModified: now.Add(-5 * time.Hour)},
		{Key: "b.mp4", Size: 400, LastModified: now.Add(-4 * time.Hour)},
	}}
	c := newTestCleaner(store, CleanupConfig{
		Bucket: "b", MaxAge: 24 * time.Hour, MaxTotalBytes: 500,
	}, now)

	// 1200 bytes total; dropping the two oldest brings it to 400.
	report, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Deleted)
	assert.Equal(t, int64(800), report.FreedBytes)
	assert.Equal(t, []string{"a.mp4", "b.mp4"}, store.deletedKeys())
}

func TestCleanupDryRunDeletesNothing(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := &listStore{objects: []model.StoredObject{
		{Key: "old.mp4", Size: 100, LastModified: now.Add(-48 * time.Hour)},
	}}
	c := newTestCleaner(store, CleanupConfig{Bucket: "b", DryRun: true}, now)

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted, "dry run still reports what would go")
	assert.True(t, report.DryRun)
	assert.Empty(t, store.deletedKeys())
}

func TestCleanupHonorsBatchSize(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	var objects []model.StoredObject
	for i := 0; i < 10; i++ {
		objects = append(objects, model.StoredObject{
			Key:          string(rune('a'+i)) + ".mp4",
			Size:         10,
			LastModified: now.Add(-time.Duration(48+i) * time.Hour),
		})
	}
	store := &listStore{objects: objects}
	c := newTestCleaner(store, CleanupConfig{Bucket: "b", MaxAge: 24 * time.Hour, BatchSize: 3}, now)

	report, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Deleted)
}
