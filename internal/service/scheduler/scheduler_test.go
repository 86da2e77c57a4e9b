package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mandimonitor/core/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRealtimeThenDeregisterStopsFutureTicks(t *testing.T) {
	var calls int32
	run := func(ctx context.Context, w models.Watch) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}

	s := New(run, WithRealtimeInterval(20*time.Millisecond), WithQuietHours(0, 0))
	require.NoError(t, s.Register(models.Watch{ID: "w1", Mode: models.ModeRealtime}))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	time.Sleep(60 * time.Millisecond)
	s.Deregister("w1")
	seenAfterDeregister := atomic.LoadInt32(&calls)
	time.Sleep(60 * time.Millisecond)

	cancel()
	s.Stop()

	assert.Equal(t, seenAfterDeregister, atomic.LoadInt32(&calls))
	assert.Greater(t, seenAfterDeregister, int32(0))
}

func TestTickSkippedDuringQuietHours(t *testing.T) {
	var calls int32
	run := func(ctx context.Context, w models.Watch) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}

	// quietStartHour == quietEndHour == current hour's complement makes
	// every hour quiet: start=0, end=24 is invalid, so instead assert the
	// pure function directly rather than racing the wall clock.
	s := New(run, WithQuietHours(23, 8))
	assert.True(t, s.inQuietHours(time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)))
	assert.True(t, s.inQuietHours(time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC)))
	assert.False(t, s.inQuietHours(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)))
}

func TestExecuteSkipsOverlappingRunForSameWatch(t *testing.T) {
	var running int32
	var maxConcurrent int32
	release := make(chan struct{})

	run := func(ctx context.Context, w models.Watch) error {
		n := atomic.AddInt32(&running, 1)
		if n > atomic.LoadInt32(&maxConcurrent) {
			atomic.StoreInt32(&maxConcurrent, n)
		}
		<-release
		atomic.AddInt32(&running, -1)
		return nil
	}

	s := New(run, WithRealtimeInterval(time.Hour))
	require.NoError(t, s.Register(models.Watch{ID: "w1", Mode: models.ModeRealtime}))

	s.mu.Lock()
	entry := s.realtimeWatches["w1"]
	s.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.execute(entry) }()
	time.Sleep(10 * time.Millisecond)
	go func() { defer wg.Done(); s.execute(entry) }()

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxConcurrent))
}

func TestWorkerPoolBoundsConcurrentExecutions(t *testing.T) {
	var running int32
	var maxConcurrent int32
	release := make(chan struct{})

	run := func(ctx context.Context, w models.Watch) error {
		n := atomic.AddInt32(&running, 1)
		if n > atomic.LoadInt32(&maxConcurrent) {
			atomic.StoreInt32(&maxConcurrent, n)
		}
		<-release
		atomic.AddInt32(&running, -1)
		return nil
	}

	s := New(run, WithRealtimeInterval(time.Hour), WithWorkerPoolSize(2))
	entries := make([]*jobEntry, 0, 5)
	for _, id := range []string{"w1", "w2", "w3", "w4", "w5"} {
		require.NoError(t, s.Register(models.Watch{ID: id, Mode: models.ModeRealtime}))
		s.mu.Lock()
		entries = append(entries, s.realtimeWatches[id])
		s.mu.Unlock()
	}

	var wg sync.WaitGroup
	for _, entry := range entries {
		wg.Add(1)
		go func(e *jobEntry) { defer wg.Done(); s.execute(e) }(entry)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&maxConcurrent), int32(2))
	assert.Greater(t, atomic.LoadInt32(&maxConcurrent), int32(0))
}

func TestExecuteRecordsFailureStatusThenReturnsToScheduled(t *testing.T) {
	run := func(ctx context.Context, w models.Watch) error {
		return errors.New("boom")
	}
	s := New(run)
	require.NoError(t, s.Register(models.Watch{ID: "w1", Mode: models.ModeRealtime}))

	s.mu.Lock()
	entry := s.realtimeWatches["w1"]
	s.mu.Unlock()

	s.execute(entry)

	status, ok := s.Status("w1", models.ModeRealtime)
	require.True(t, ok)
	assert.Equal(t, StatusScheduled, status)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	assert.Error(t, entry.lastErr)
}

func TestRegisterDailyBuildsCronSpecFromDigestTime(t *testing.T) {
	run := func(ctx context.Context, w models.Watch) error { return nil }
	s := New(run, WithDigestTime("21:15"))
	require.NoError(t, s.Register(models.Watch{ID: "w2", Mode: models.ModeDaily}))

	assert.Equal(t, 21, s.digestHour)
	assert.Equal(t, 15, s.digestMinute)

	entries := s.cronEngine.Entries()
	require.Len(t, entries, 1)
}

func TestRegisterModeChangeIsAtomicDeregisterThenRegister(t *testing.T) {
	run := func(ctx context.Context, w models.Watch) error { return nil }
	s := New(run)

	require.NoError(t, s.Register(models.Watch{ID: "w3", Mode: models.ModeDaily}))
	require.NoError(t, s.Register(models.Watch{ID: "w3", Mode: models.ModeRealtime}))

	s.mu.Lock()
	_, hasDaily := s.cronEntries["w3"]
	_, hasRealtime := s.realtimeWatches["w3"]
	s.mu.Unlock()

	assert.False(t, hasDaily)
	assert.True(t, hasRealtime)
}
