package crawler

import (
	"context"
	mathrand "math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces out requests: an optional token bucket shared by all workers,
// then a random pause in [min, max] before each fetch.
type Throttle struct {
	limiter *rate.Limiter
	min     time.Duration
	max     time.Duration

	mu  sync.Mutex
	rnd *mathrand.Rand
}

// NewThrottle creates a throttle. rps <= 0 disables the token bucket.
func NewThrottle(rps float64, min, max time.Duration) *Throttle {
	t := &Throttle{
		min: min,
		max: max,
		rnd: mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
	if rps > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return t
}

// Wait blocks until the next request may be sent or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return sleep(ctx, t.delay())
}

func (t *Throttle) delay() time.Duration {
	if t.max <= t.min {
		return t.min
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.min + time.Duration(t.rnd.Int63n(int64(t.max-t.min)+1))
}

// sleep waits for d unless ctx is done first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
