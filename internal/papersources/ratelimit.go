package papersources

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MaxPause caps how long a provider's Retry-After may hold back requests.
const MaxPause = 5 * time.Minute

// RateLimiter paces requests to one provider with a token bucket. A provider
// that answers 429 can additionally pause it until its Retry-After passes,
// so concurrent resolutions stop hammering a provider that already refused.
// It is safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter

	mu          sync.Mutex
	pausedUntil time.Time
	now         func() time.Time
}

// NewRateLimiter creates a limiter allowing ratePerSecond sustained requests
// with bursts of up to burst. Scholar scraping uses 0.2, one request every
// five seconds.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		now:     time.Now,
	}
}

// Wait blocks until the pause, if any, has passed and a token is available,
// or until ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if delay := r.pauseRemaining(); delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return r.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	if r.pauseRemaining() > 0 {
		return false
	}
	return r.limiter.Allow()
}

// Pause holds back every request for d, capped at MaxPause. A shorter pause
// never cuts an existing longer one.
func (r *RateLimiter) Pause(d time.Duration) {
	if d <= 0 {
		return
	}
	if d > MaxPause {
		d = MaxPause
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if until := r.now().Add(d); until.After(r.pausedUntil) {
		r.pausedUntil = until
	}
}

func (r *RateLimiter) pauseRemaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pausedUntil.Sub(r.now())
}
