package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPruneWindowDropsExpired(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	windowStart := now.Add(-time.Hour)

	times := []time.Time{
		now.Add(-2 * time.Hour),
		now.Add(-90 * time.Minute),
		now.Add(-30 * time.Minute),
		now.Add(-5 * time.Minute),
	}

	kept := pruneWindow(times, windowStart)
	require.Len(t, kept, 2)
	assert.Equal(t, now.Add(-30*time.Minute), kept[0])
	assert.Equal(t, now.Add(-5*time.Minute), kept[1])
}

func TestPruneWindowBoundaryExcluded(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	windowStart := now.Add(-time.Hour)

	// An entry exactly at the window start has aged out.
	kept := pruneWindow([]time.Time{windowStart}, windowStart)
	assert.Empty(t, kept)
}

func TestPruneWindowSortsEntries(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	windowStart := now.Add(-time.Hour)

	times := []time.Time{
		now.Add(-5 * time.Minute),
		now.Add(-45 * time.Minute),
		now.Add(-20 * time.Minute),
	}

	kept := pruneWindow(times, windowStart)
	require.Len(t, kept, 3)
	assert.True(t, kept[0].Before(kept[1]))
	assert.True(t, kept[1].Before(kept[2]))
}

func TestDecodeWindow(t *testing.T) {
	times, err := decodeWindow([]byte(`["2026-08-01T11:30:00Z"]`))
	require.NoError(t, err)
	require.Len(t, times, 1)
	assert.Equal(t, time.Date(2026, 8, 1, 11, 30, 0, 0, time.UTC), times[0].UTC())
}

func TestDecodeWindowEmpty(t *testing.T) {
	times, err := decodeWindow(nil)
	require.NoError(t, err)
	assert.Empty(t, times)
}

func TestDecodeWindowCorrupt(t *testing.T) {
	_, err := decodeWindow([]byte(`{"not":"a list"}`))
	require.Error(t, err)
}
