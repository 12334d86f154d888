package papersources

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter(t *testing.T) {
	t.Run("allows the configured burst", func(t *testing.T) {
		rl := NewRateLimiter(10, 3)

		require.NotNil(t, rl)
		for i := 0; i < 3; i++ {
			assert.True(t, rl.Allow(), "should allow request %d within burst", i+1)
		}
		assert.False(t, rl.Allow())
	})

	t.Run("scholar rate allows one request", func(t *testing.T) {
		rl := NewRateLimiter(0.2, 1)

		assert.True(t, rl.Allow())
		assert.False(t, rl.Allow())
	})

	t.Run("clamps non-positive burst to one", func(t *testing.T) {
		rl := NewRateLimiter(10, 0)

		assert.True(t, rl.Allow())
		assert.False(t, rl.Allow())
	})
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Run("burst allows instant requests", func(t *testing.T) {
		rl := NewRateLimiter(100, 5)

		start := time.Now()
		for i := 0; i < 5; i++ {
			require.NoError(t, rl.Wait(context.Background()))
		}
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("waits for token after burst exhausted", func(t *testing.T) {
		rl := NewRateLimiter(10, 1)
		require.NoError(t, rl.Wait(context.Background()))

		start := time.Now()
		require.NoError(t, rl.Wait(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("respects context deadline", func(t *testing.T) {
		rl := NewRateLimiter(0.1, 1)
		require.True(t, rl.Allow())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		assert.Error(t, rl.Wait(ctx))
	})

	t.Run("returns immediately with canceled context", func(t *testing.T) {
		rl := NewRateLimiter(0.1, 1)
		require.True(t, rl.Allow())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		assert.Error(t, rl.Wait(ctx))
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	})
}

func TestRateLimiter_Pause(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1000, 5)
	rl.now = func() time.Time { return now }

	rl.Pause(30 * time.Second)
	assert.False(t, rl.Allow(), "paused limiter refuses requests")
	assert.Equal(t, 30*time.Second, rl.pauseRemaining())

	// A shorter pause keeps the longer one.
	rl.Pause(time.Second)
	assert.Equal(t, 30*time.Second, rl.pauseRemaining())

	// Pauses are capped.
	rl.Pause(time.Hour)
	assert.Equal(t, MaxPause, rl.pauseRemaining())

	// Non-positive durations are ignored.
	rl.Pause(-time.Second)
	assert.Equal(t, MaxPause, rl.pauseRemaining())

	now = now.Add(MaxPause)
	assert.True(t, rl.Allow(), "pause has passed")
}

func TestRateLimiter_WaitHonorsPause(t *testing.T) {
	t.Run("waits out a short pause", func(t *testing.T) {
		rl := NewRateLimiter(1000, 5)
		rl.Pause(60 * time.Millisecond)

		start := time.Now()
		require.NoError(t, rl.Wait(context.Background()))
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("context ends during pause", func(t *testing.T) {
		rl := NewRateLimiter(1000, 5)
		rl.Pause(time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
	})
}

func TestRateLimiter_Concurrency(t *testing.T) {
	rl := NewRateLimiter(1000, 10)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			assert.NoError(t, rl.Wait(ctx))
		}()
	}
	wg.Wait()
}
