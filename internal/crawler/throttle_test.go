package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottleDelayWithinBounds(t *testing.T) {
	th := NewThrottle(0, 10*time.Millisecond, 30*time.Millisecond)

	for i := 0; i < 1000; i++ {
		d := th.delay()
		require.GreaterOrEqual(t, d, 10*time.Millisecond)
		require.LessOrEqual(t, d, 30*time.Millisecond)
	}
}

func TestThrottleFixedDelay(t *testing.T) {
	th := NewThrottle(0, 15*time.Millisecond, 15*time.Millisecond)
	for i := 0; i < 10; i++ {
		assert.Equal(t, 15*time.Millisecond, th.delay())
	}

	// max below min behaves like a fixed delay
	assert.Equal(t, 15*time.Millisecond, NewThrottle(0, 15*time.Millisecond, time.Millisecond).delay())
}

func TestThrottleWaitCancelled(t *testing.T) {
	th := NewThrottle(0, time.Hour, time.Hour)

	ctx, cancel := context.WithTimeout(testContext(t), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := th.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestThrottleWaitCancelledBeforeToken(t *testing.T) {
	th := NewThrottle(0.1, 0, 0)
	require.NoError(t, th.Wait(testContext(t)))

	// the next token is ten seconds away
	ctx, cancel := context.WithTimeout(testContext(t), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, th.Wait(ctx))
}

func TestThrottleRequestsPerSecond(t *testing.T) {
	th := NewThrottle(20, 0, 0)
	ctx := testContext(t)

	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, th.Wait(ctx))
	}
	elapsed := time.Since(start)

	// the first token is immediate, the next three are 50ms apart
	assert.GreaterOrEqual(t, elapsed, 130*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestThrottleZeroDelay(t *testing.T) {
	th := NewThrottle(0, 0, 0)
	require.NoError(t, th.Wait(testContext(t)))

	ctx, cancel := context.WithCancel(testContext(t))
	cancel()
	assert.ErrorIs(t, th.Wait(ctx), context.Canceled)
}
