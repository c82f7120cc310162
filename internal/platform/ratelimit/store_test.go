package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	for i := range 3 {
		res, err := s.Allow(ctx, "caller:alice", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := s.Allow(ctx, "caller:alice", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, now.Add(time.Minute), res.ResetAt)
	assert.Equal(t, time.Minute, res.RetryAfter(now))

	t.Run("keys are independent", func(t *testing.T) {
		res, err := s.Allow(ctx, "caller:bob", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		now = now.Add(time.Minute + time.Second)
		res, err := s.Allow(ctx, "caller:alice", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2, res.Remaining)
	})
}

func TestResultRetryAfter(t *testing.T) {
	now := time.Now()
	assert.Zero(t, Result{Allowed: true, ResetAt: now.Add(time.Hour)}.RetryAfter(now))
	assert.Zero(t, Result{ResetAt: now.Add(-time.Second)}.RetryAfter(now))
}
