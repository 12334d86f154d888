// Package resolver turns a paper reference into citation metrics.
//
// A resolution reads the metric cache first. On a miss it calls the primary
// provider with retries, then, if that is exhausted, the fallback chain
// exactly once. Any provider result is written through to the cache. When
// nothing succeeds the paper resolves to unavailable metrics with zero
// counts, which are never cached.
//
// Provider and cache errors never leave the resolver: they are logged and
// reported in Outcome.Err.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/helixir/citation-graph-service/internal/cache"
	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/observability"
	"github.com/helixir/citation-graph-service/internal/papersources"
)

var tracer = otel.Tracer("resolver")

// cacheWriteTimeout bounds a write-through that outlives the caller's context.
const cacheWriteTimeout = 5 * time.Second

// PrimarySource is a provider that retries on its own.
// *papersources.RetryingSource satisfies it.
type PrimarySource interface {
	Name() string
	IsEnabled() bool
	ResolveWithRetry(ctx context.Context, paper domain.PaperRef) (*domain.Metrics, int, error)
}

// Options configures a Resolver.
type Options struct {
	// FallbackEnabled allows the fallback to run after the primary is exhausted.
	FallbackEnabled bool

	// Metrics records resolutions and cache traffic. Optional.
	Metrics *observability.Metrics

	// Stats accumulates outcomes across the process. A new one is created when nil.
	Stats *Stats

	// Now stamps unavailable results. Defaults to time.Now in UTC.
	Now func() time.Time
}

// Outcome is the result of one resolution. Metrics is never nil.
type Outcome struct {
	Metrics  *domain.Metrics
	State    State
	Path     []State
	Attempts int
	// Err is the last absorbed error, kept for logging.
	Err error
}

func (o *Outcome) to(s State) {
	o.State = s
	o.Path = append(o.Path, s)
}

// Resolver resolves papers through the cache, the primary and the fallback.
// It is safe for concurrent use.
type Resolver struct {
	cache    cache.MetricCache
	primary  PrimarySource
	fallback papersources.CitationSource
	opts     Options
	logger   zerolog.Logger
}

// New creates a Resolver. Any of c, primary and fallback may be nil.
func New(c cache.MetricCache, primary PrimarySource, fallback papersources.CitationSource, opts Options, logger zerolog.Logger) *Resolver {
	if opts.Stats == nil {
		opts.Stats = &Stats{}
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Resolver{
		cache:    c,
		primary:  primary,
		fallback: fallback,
		opts:     opts,
		logger:   logger.With().Str("component", "resolver").Logger(),
	}
}

// Stats returns the process-wide outcome counters.
func (r *Resolver) Stats() *Stats {
	return r.opts.Stats
}

// Cache returns the metric cache, which may be nil.
func (r *Resolver) Cache() cache.MetricCache {
	return r.cache
}

// Resolve returns metrics for paper. It never fails: an unresolvable paper
// yields unavailable metrics and the reason in Outcome.Err.
func (r *Resolver) Resolve(ctx context.Context, paper domain.PaperRef) Outcome {
	started := time.Now()

	ctx, span := tracer.Start(ctx, "Resolver.Resolve",
		trace.WithAttributes(attribute.String("paper.id", paper.ID)))
	defer span.End()

	logger := observability.WithPaperContext(observability.LoggerWithContext(ctx, r.logger), paper.ID, paper.Title)

	out := r.resolve(ctx, paper, logger)

	r.opts.Stats.Record(out.Metrics.Source)
	if r.opts.Metrics != nil {
		r.opts.Metrics.RecordResolution(string(out.Metrics.Source), time.Since(started).Seconds())
	}

	span.SetAttributes(
		attribute.String("resolver.state", out.State.String()),
		attribute.String("resolver.source", string(out.Metrics.Source)),
		attribute.Int("resolver.attempts", out.Attempts),
	)
	if out.State == StateUnavailable && out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, "unavailable")
	}

	event := logger.Debug()
	if out.State == StateUnavailable {
		event = logger.Warn().Err(out.Err)
	}
	event.
		Str("state", out.State.String()).
		Str("source", string(out.Metrics.Source)).
		Int("attempts", out.Attempts).
		Dur("duration", time.Since(started)).
		Msg("paper resolved")

	return out
}

func (r *Resolver) resolve(ctx context.Context, paper domain.PaperRef, logger zerolog.Logger) Outcome {
	var out Outcome
	out.to(StateInit)

	if err := paper.Validate(); err != nil {
		return r.unavailable(out, paper, err)
	}

	if m, ok := r.lookup(ctx, paper, logger); ok {
		out.Metrics = m
		out.to(StateCacheHit)
		return out
	}
	out.to(StateCacheMiss)

	if r.primary != nil && r.primary.IsEnabled() {
		if err := ctx.Err(); err != nil {
			return r.unavailable(out, paper, err)
		}

		out.to(StatePrimaryAttempt)
		m, attempts, err := r.primary.ResolveWithRetry(ctx, paper)
		out.Attempts += attempts
		if err == nil {
			m, err = accept(m, paper, domain.MetricSourcePrimary, r.primary.Name())
		}
		if err == nil {
			r.store(ctx, paper, m, logger)
			out.Metrics = m
			out.to(StateResolved)
			return out
		}
		out.Err = err
		out.to(StatePrimaryExhausted)
		logger.Debug().Err(err).Int("attempts", attempts).Msg("primary source exhausted")
	}

	if !r.opts.FallbackEnabled || r.fallback == nil || !r.fallback.IsEnabled() {
		return r.unavailable(out, paper, out.Err)
	}
	if err := ctx.Err(); err != nil {
		return r.unavailable(out, paper, errors.Join(out.Err, err))
	}

	out.to(StateFallbackAttempt)
	out.Attempts++
	m, err := r.fallback.Resolve(ctx, paper)
	if err == nil {
		provider := ""
		if m != nil {
			provider = m.Provider
		}
		m, err = accept(m, paper, domain.MetricSourceFallback, provider)
	}
	if err != nil {
		return r.unavailable(out, paper, err)
	}

	r.store(ctx, paper, m, logger)
	out.Metrics = m
	out.to(StateResolved)
	return out
}

// accept tags a provider result and checks its invariants.
func accept(m *domain.Metrics, paper domain.PaperRef, source domain.MetricSource, provider string) (*domain.Metrics, error) {
	if m == nil {
		return nil, domain.NewParseError(provider, errors.New("empty result"))
	}
	tagged := m.WithSource(source)
	tagged.PaperID = paper.ID
	if tagged.Provider == "" {
		tagged.Provider = provider
	}
	if err := tagged.Validate(); err != nil {
		return nil, domain.NewParseError(tagged.Provider, err)
	}
	return tagged, nil
}

func (r *Resolver) unavailable(out Outcome, paper domain.PaperRef, err error) Outcome {
	out.Err = err
	out.Metrics = domain.UnavailableMetrics(paper.ID, r.opts.Now())
	out.to(StateUnavailable)
	return out
}

// lookup reads the cache. Errors other than a miss are logged and read as a miss.
func (r *Resolver) lookup(ctx context.Context, paper domain.PaperRef, logger zerolog.Logger) (*domain.Metrics, bool) {
	if r.cache == nil {
		return nil, false
	}

	m, err := r.cache.Get(ctx, paper.ID)
	switch {
	case err == nil && m != nil:
		if r.opts.Metrics != nil {
			r.opts.Metrics.RecordCacheHit()
		}
		return m.WithSource(domain.MetricSourceCache), true
	case err == nil, errors.Is(err, domain.ErrCacheMiss):
		if r.opts.Metrics != nil {
			r.opts.Metrics.RecordCacheMiss()
		}
	default:
		logger.Warn().Err(err).Msg("cache read failed, treating as miss")
		if r.opts.Metrics != nil {
			r.opts.Metrics.RecordCacheMiss()
			r.opts.Metrics.RecordCacheError("get")
		}
	}
	return nil, false
}

// store writes m through to the cache. A result obtained just before the
// caller's deadline is still written.
func (r *Resolver) store(ctx context.Context, paper domain.PaperRef, m *domain.Metrics, logger zerolog.Logger) {
	if r.cache == nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()

	err := r.cache.Put(writeCtx, paper.ID, m)
	if r.opts.Metrics != nil {
		r.opts.Metrics.RecordCacheWrite(err == nil)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("cache write failed")
		if r.opts.Metrics != nil {
			r.opts.Metrics.RecordCacheError("put")
		}
	}
}
