// Package batch resolves many papers at once with bounded concurrency.
//
// Results keep the input order. A paper that cannot be resolved, or that is
// still waiting for a worker when the batch deadline passes, is reported with
// unavailable metrics; the batch itself only fails on malformed input.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/observability"
	"github.com/helixir/citation-graph-service/internal/resolver"
)

// Defaults applied to zero Config fields.
const (
	DefaultConcurrency         = 5
	DefaultLowSuccessThreshold = 0.5
)

// Resolver resolves a single paper. *resolver.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, paper domain.PaperRef) resolver.Outcome
}

// EventPublisher publishes batch events. *events.KafkaPublisher satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// Config controls batch execution.
type Config struct {
	// Concurrency is used when the caller passes no positive limit.
	Concurrency int
	// Timeout bounds a whole batch. Zero means only the caller's deadline applies.
	Timeout time.Duration
	// LowSuccessThreshold triggers the advisory when the success rate falls below it.
	LowSuccessThreshold float64
	// MaxPapers rejects larger batches. Zero means unlimited.
	MaxPapers int
}

// Result is the outcome of a batch.
type Result struct {
	BatchID     uuid.UUID              `json:"batch_id" yaml:"batch_id"`
	Metrics     []*domain.Metrics      `json:"metrics" yaml:"metrics"`
	States      []resolver.State       `json:"states" yaml:"states"`
	Stats       resolver.StatsSnapshot `json:"stats" yaml:"stats"`
	SuccessRate float64                `json:"success_rate" yaml:"success_rate"`
	Advisory    string                 `json:"advisory,omitempty" yaml:"advisory,omitempty"`
	Duration    time.Duration          `json:"duration_ns" yaml:"duration_ns"`
}

// Coordinator fans a batch out to a Resolver.
type Coordinator struct {
	resolver  Resolver
	publisher EventPublisher
	metrics   *observability.Metrics
	cfg       Config
	logger    zerolog.Logger
	now       func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPublisher publishes a citation.batch_resolved event after every batch.
func WithPublisher(p EventPublisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithMetrics records batch metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(r Resolver, cfg Config, logger zerolog.Logger, opts ...Option) *Coordinator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.LowSuccessThreshold <= 0 {
		cfg.LowSuccessThreshold = DefaultLowSuccessThreshold
	}
	c := &Coordinator{
		resolver: r,
		cfg:      cfg,
		logger:   logger.With().Str("component", "batch_coordinator").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveMany resolves papers with at most maxConcurrency in flight. A
// non-positive maxConcurrency uses the configured default. The only error is
// a *domain.ValidationError for malformed input, returned before any paper is
// resolved.
func (c *Coordinator) ResolveMany(ctx context.Context, papers []domain.PaperRef, maxConcurrency int) (*Result, error) {
	refs, err := c.validate(papers)
	if err != nil {
		return nil, err
	}
	if maxConcurrency <= 0 {
		maxConcurrency = c.cfg.Concurrency
	}

	started := time.Now()
	batchID := uuid.New()
	parent := observability.WithBatchID(ctx, batchID.String())
	logger := observability.WithBatchContext(observability.LoggerWithContext(parent, c.logger), batchID.String(), len(refs))

	runCtx := parent
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(parent, c.cfg.Timeout)
		defer cancel()
	}

	logger.Info().Int("max_concurrency", maxConcurrency).Msg("batch started")

	result := &Result{
		BatchID: batchID,
		Metrics: make([]*domain.Metrics, len(refs)),
		States:  make([]resolver.State, len(refs)),
	}
	stats := &resolver.Stats{}
	skipped := 0

	var g errgroup.Group
	g.SetLimit(maxConcurrency)
	for i, ref := range refs {
		if runCtx.Err() != nil {
			c.markUnavailable(result, stats, i, ref)
			skipped++
			continue
		}
		g.Go(func() error {
			// The deadline may have passed while this paper waited for a slot.
			if runCtx.Err() != nil {
				c.markUnavailable(result, stats, i, ref)
				return nil
			}
			out := c.resolver.Resolve(runCtx, ref)
			result.Metrics[i] = out.Metrics
			result.States[i] = out.State
			stats.Record(out.Metrics.Source)
			return nil
		})
	}
	_ = g.Wait()

	result.Stats = stats.Snapshot()
	result.SuccessRate = result.Stats.SuccessRate()
	result.Duration = time.Since(started)

	lowSuccess := len(refs) > 0 && result.SuccessRate < c.cfg.LowSuccessThreshold
	if lowSuccess {
		result.Advisory = fmt.Sprintf("only %d of %d papers resolved (%.0f%%, threshold %.0f%%); citation counts for the rest are shown as zero",
			result.Stats.Resolved(), len(refs), result.SuccessRate*100, c.cfg.LowSuccessThreshold*100)
		logger.Warn().
			Float64("success_rate", result.SuccessRate).
			Float64("threshold", c.cfg.LowSuccessThreshold).
			Msg("low batch success rate")
	}

	if runCtx.Err() != nil {
		logger.Warn().Err(runCtx.Err()).Int("not_started", skipped).Msg("batch deadline reached")
	}

	if c.metrics != nil {
		c.metrics.RecordBatch(len(refs), result.SuccessRate, result.Duration.Seconds(), lowSuccess)
	}

	logger.Info().
		Int64("primary_success", result.Stats.PrimarySuccess).
		Int64("fallback_used", result.Stats.FallbackUsed).
		Int64("cache_hits", result.Stats.CacheHits).
		Int64("unavailable", result.Stats.Unavailable).
		Float64("success_rate", result.SuccessRate).
		Dur("duration", result.Duration).
		Msg("batch finished")

	c.publish(parent, result, logger)
	return result, nil
}

// validate checks every paper before any work starts and returns copies with
// normalized ids.
func (c *Coordinator) validate(papers []domain.PaperRef) ([]domain.PaperRef, error) {
	if c.cfg.MaxPapers > 0 && len(papers) > c.cfg.MaxPapers {
		return nil, domain.NewValidationError("papers",
			fmt.Sprintf("batch of %d exceeds the limit of %d", len(papers), c.cfg.MaxPapers))
	}

	refs := make([]domain.PaperRef, len(papers))
	for i, p := range papers {
		ref := p
		ref.ID = domain.NormalizePaperID(p.ID)
		if err := ref.Validate(); err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("papers[%d].id", i), "paper id is required")
		}
		refs[i] = ref
	}
	return refs, nil
}

func (c *Coordinator) markUnavailable(result *Result, stats *resolver.Stats, i int, ref domain.PaperRef) {
	result.Metrics[i] = domain.UnavailableMetrics(ref.ID, c.now())
	result.States[i] = resolver.StateUnavailable
	stats.Record(domain.MetricSourceUnavailable)
}

func (c *Coordinator) publish(ctx context.Context, result *Result, logger zerolog.Logger) {
	if c.publisher == nil {
		return
	}

	payload := domain.BatchResolvedPayload{
		BatchID:        result.BatchID,
		RequestID:      observability.RequestIDFromContext(ctx),
		PaperCount:     len(result.Metrics),
		PrimarySuccess: result.Stats.PrimarySuccess,
		FallbackUsed:   result.Stats.FallbackUsed,
		CacheHits:      result.Stats.CacheHits,
		Unavailable:    result.Stats.Unavailable,
		SuccessRate:    result.SuccessRate,
		Advisory:       result.Advisory,
		Metrics:        result.Metrics,
		Duration:       result.Duration,
	}
	event, err := domain.NewEvent(domain.EventTypeBatchResolved, result.BatchID.String(), payload)
	if err != nil {
		logger.Error().Err(err).Msg("failed to build batch event")
		return
	}
	if requestID := payload.RequestID; requestID != "" {
		event.WithMetadata(map[string]string{"request_id": requestID})
	}

	// The caller's deadline may already have passed; the event still goes out.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := c.publisher.Publish(pubCtx, event); err != nil {
		logger.Error().Err(err).Msg("failed to publish batch event")
	}
}
