package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedTimeProvider(t *testing.T) {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	tp := NewFixedTimeProvider(base)
	assert.Equal(t, base, tp.Now())

	tp.AddTime(10 * time.Minute)
	assert.Equal(t, base.Add(10*time.Minute), tp.Now())

	later := base.Add(time.Hour)
	tp.SetTime(later)
	assert.Equal(t, later, tp.Now())
}

func TestRealTimeProviderAdvances(t *testing.T) {
	tp := &RealTimeProvider{}
	a := tp.Now()
	b := tp.Now()
	assert.False(t, b.Before(a))
}
