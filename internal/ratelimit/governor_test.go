package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireGrantsImmediatelyWithinBurst(t *testing.T) {
	g := New()
	defer g.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < burstSize; i++ {
		require.NoError(t, g.Acquire(ctx))
	}

	status := g.Status()
	assert.Equal(t, burstSize, status.BurstWindowUsage)
	assert.False(t, status.ThrottleActive)
}

func TestAcquireRespectsSteadyRateAfterBurst(t *testing.T) {
	g := New()
	defer g.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < burstSize; i++ {
		require.NoError(t, g.Acquire(ctx))
	}

	start := time.Now()
	require.NoError(t, g.Acquire(ctx))
	elapsed := time.Since(start)

	// Burst pool is spent; the next token must wait roughly a full second
	// for the steady refill.
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
}

func TestThrottledOpensBackoffWindow(t *testing.T) {
	g := New()
	defer g.Stop()

	g.Throttled()

	status := g.Status()
	assert.True(t, status.ThrottleActive)
	assert.LessOrEqual(t, status.ThrottleRemaining, throttleBackoff)
	assert.Greater(t, status.ThrottleRemaining, 59*time.Second)
}

func TestAcquireReturnsCtxErrOnCancellation(t *testing.T) {
	g := New()
	defer g.Stop()

	g.Throttled()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := g.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquireAfterStopReturnsGovernorStopped(t *testing.T) {
	g := New()
	g.Stop()

	err := g.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrGovernorStopped)
}
