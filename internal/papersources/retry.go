package papersources

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/helixir/citation-graph-service/internal/domain"
)

// RetryPolicy controls how RetryingSource retries a source.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// PerAttemptTimeout bounds each attempt independently.
	PerAttemptTimeout time.Duration
	// InitialBackoff is the wait after the first failed attempt.
	InitialBackoff time.Duration
	// BackoffMultiplier grows the wait after each further failure.
	BackoffMultiplier float64
	// MaxBackoff caps every wait, including provider Retry-After hints.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy returns 3 attempts of 8s each with 1s, 2s, 4s backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		PerAttemptTimeout: 8 * time.Second,
		InitialBackoff:    time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        4 * time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.PerAttemptTimeout <= 0 {
		p.PerAttemptTimeout = d.PerAttemptTimeout
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.BackoffMultiplier < 1 {
		p.BackoffMultiplier = d.BackoffMultiplier
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	return p
}

// BackoffForAttempt returns the wait after failed attempt n (0-based):
// InitialBackoff * BackoffMultiplier^n, capped at MaxBackoff.
func (p RetryPolicy) BackoffForAttempt(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	backoff := float64(p.InitialBackoff) * math.Pow(p.BackoffMultiplier, float64(n))
	if backoff > float64(p.MaxBackoff) || math.IsInf(backoff, 0) {
		return p.MaxBackoff
	}
	return time.Duration(backoff)
}

// wait returns the delay before the next attempt, honoring Retry-After.
func (p RetryPolicy) wait(n int, err error) time.Duration {
	d := p.BackoffForAttempt(n)
	if hint := retryAfter(err); hint > d {
		d = hint
	}
	if d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

// AttemptFunc observes every attempt made by a RetryingSource. err is nil
// for the successful attempt.
type AttemptFunc func(source string, attempt int, err error, elapsed time.Duration)

// RetryOption configures a RetryingSource.
type RetryOption func(*RetryingSource)

// WithAttemptHook registers fn to observe attempts.
func WithAttemptHook(fn AttemptFunc) RetryOption {
	return func(r *RetryingSource) {
		r.onAttempt = fn
	}
}

// WithSleep replaces the backoff sleep, for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) RetryOption {
	return func(r *RetryingSource) {
		r.sleep = fn
	}
}

// RetryingSource wraps a CitationSource with per-attempt timeouts and
// exponential backoff.
type RetryingSource struct {
	source    CitationSource
	policy    RetryPolicy
	sleep     func(ctx context.Context, d time.Duration) error
	onAttempt AttemptFunc
}

// Compile-time interface verification.
var _ CitationSource = (*RetryingSource)(nil)

// NewRetryingSource wraps source with policy. Zero fields of policy take
// the DefaultRetryPolicy values.
func NewRetryingSource(source CitationSource, policy RetryPolicy, opts ...RetryOption) *RetryingSource {
	r := &RetryingSource{
		source: source,
		policy: policy.withDefaults(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the wrapped source's name.
func (r *RetryingSource) Name() string { return r.source.Name() }

// IsEnabled returns whether the wrapped source is enabled.
func (r *RetryingSource) IsEnabled() bool { return r.source.IsEnabled() }

// Policy returns the effective retry policy.
func (r *RetryingSource) Policy() RetryPolicy { return r.policy }

// Resolve implements CitationSource.
func (r *RetryingSource) Resolve(ctx context.Context, paper domain.PaperRef) (*domain.Metrics, error) {
	m, _, err := r.ResolveWithRetry(ctx, paper)
	return m, err
}

// ResolveWithRetry calls the wrapped source until it succeeds, fails with a
// non-retryable error, runs out of attempts or ctx is done. It returns the
// number of attempts made alongside the result or the last error.
func (r *RetryingSource) ResolveWithRetry(ctx context.Context, paper domain.PaperRef) (*domain.Metrics, int, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempts, joinCtx(lastErr, err)
		}

		attempts++
		m, err := r.attempt(ctx, paper, attempts)
		if err == nil {
			if m.Provider == "" {
				m.Provider = r.source.Name()
			}
			return m, attempts, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, attempts, joinCtx(lastErr, ctx.Err())
		}
		if !Classify(err).Retryable() || attempts == r.policy.MaxAttempts {
			break
		}

		if err := r.sleep(ctx, r.policy.wait(attempt, err)); err != nil {
			return nil, attempts, joinCtx(lastErr, err)
		}
	}

	return nil, attempts, lastErr
}

func (r *RetryingSource) attempt(ctx context.Context, paper domain.PaperRef, n int) (*domain.Metrics, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.PerAttemptTimeout)
	defer cancel()

	started := time.Now()
	m, err := r.source.Resolve(attemptCtx, paper)
	if err == nil && m == nil {
		err = domain.NewParseError(r.source.Name(), errors.New("empty result"))
	}
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && Classify(err) != FailureTimeout {
		err = errors.Join(domain.NewTimeoutError(r.source.Name(), r.policy.PerAttemptTimeout), err)
	}

	if r.onAttempt != nil {
		r.onAttempt(r.source.Name(), n, err, time.Since(started))
	}
	return m, err
}

func joinCtx(last, ctxErr error) error {
	if last == nil {
		return ctxErr
	}
	return errors.Join(last, ctxErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
