package resolver

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/citation-graph-service/internal/cache"
	"github.com/helixir/citation-graph-service/internal/config"
	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/observability"
	"github.com/helixir/citation-graph-service/internal/papersources"
	"github.com/helixir/citation-graph-service/internal/papersources/openalex"
	"github.com/helixir/citation-graph-service/internal/papersources/scholar"
	"github.com/helixir/citation-graph-service/internal/papersources/scopus"
	"github.com/helixir/citation-graph-service/internal/papersources/semanticscholar"
)

// NewFromConfig builds the configured providers and returns a Resolver over c.
func NewFromConfig(cfg *config.Config, c cache.MetricCache, metrics *observability.Metrics, logger zerolog.Logger) *Resolver {
	registry := papersources.NewRegistry()
	RegisterFallbackSources(registry, cfg, logger)

	var fallback papersources.CitationSource
	if ordered := registry.Ordered(cfg.Resolver.FallbackOrder); len(ordered) > 0 {
		instrumented := make([]papersources.CitationSource, len(ordered))
		for i, s := range ordered {
			instrumented[i] = &instrumentedSource{CitationSource: s, metrics: metrics}
		}
		fallback = papersources.NewChain(cfg.Resolver.FallbackTimeout, instrumented...)
	}

	return New(c, NewPrimary(cfg, metrics, logger), fallback, Options{
		FallbackEnabled: cfg.Resolver.FallbackEnabled,
		Metrics:         metrics,
	}, logger)
}

// RetryPolicyFromConfig maps the resolver settings onto a retry policy.
func RetryPolicyFromConfig(rc config.ResolverConfig) papersources.RetryPolicy {
	return papersources.RetryPolicy{
		MaxAttempts:       rc.PrimaryRetryCount,
		PerAttemptTimeout: rc.PrimaryTimeout(),
		InitialBackoff:    rc.InitialBackoff,
		BackoffMultiplier: rc.BackoffMultiplier,
		MaxBackoff:        rc.MaxBackoff,
	}
}

// NewPrimary builds the retrying Semantic Scholar source. Each attempt is
// logged and recorded on metrics.
func NewPrimary(cfg *config.Config, metrics *observability.Metrics, logger zerolog.Logger) *papersources.RetryingSource {
	ssCfg := cfg.PaperSources.SemanticScholar
	client := semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:   ssCfg.BaseURL,
		APIKey:    ssCfg.APIKey,
		Timeout:   ssCfg.Timeout,
		RateLimit: ssCfg.RateLimit,
		UserAgent: ssCfg.UserAgent,
		Enabled:   ssCfg.Enabled,
	}, nil)

	return papersources.NewRetryingSource(client, RetryPolicyFromConfig(cfg.Resolver),
		papersources.WithAttemptHook(attemptRecorder(metrics, logger)))
}

// RegisterFallbackSources registers every enabled fallback provider under its
// configuration key.
func RegisterFallbackSources(registry *papersources.Registry, cfg *config.Config, logger zerolog.Logger) {
	// OpenAlex.
	if cfg.PaperSources.OpenAlex.Enabled {
		oaCfg := cfg.PaperSources.OpenAlex
		registry.Register(config.ProviderOpenAlex, openalex.New(openalex.Config{
			BaseURL:   oaCfg.BaseURL,
			APIKey:    oaCfg.APIKey,
			Timeout:   oaCfg.Timeout,
			RateLimit: oaCfg.RateLimit,
			Enabled:   true,
		}))
		logger.Info().Msg("registered paper source: OpenAlex")
	}

	// Scopus (only if API key is provided).
	if cfg.PaperSources.Scopus.Enabled && cfg.PaperSources.Scopus.APIKey != "" {
		scCfg := cfg.PaperSources.Scopus
		registry.Register(config.ProviderScopus, scopus.New(scopus.Config{
			BaseURL:   scCfg.BaseURL,
			APIKey:    scCfg.APIKey,
			Timeout:   scCfg.Timeout,
			RateLimit: scCfg.RateLimit,
			Enabled:   true,
		}))
		logger.Info().Msg("registered paper source: Scopus")
	} else if cfg.PaperSources.Scopus.Enabled {
		logger.Warn().Msg("Scopus enabled but no API key configured, skipping")
	}

	// Google Scholar.
	if cfg.PaperSources.Scholar.Enabled {
		gsCfg := cfg.PaperSources.Scholar
		registry.Register(config.ProviderScholar, scholar.New(scholar.Config{
			BaseURL:   gsCfg.BaseURL,
			Timeout:   gsCfg.Timeout,
			RateLimit: gsCfg.RateLimit,
			UserAgent: gsCfg.UserAgent,
			Enabled:   true,
		}))
		logger.Info().Msg("registered paper source: Google Scholar")
	}
}

func attemptRecorder(metrics *observability.Metrics, logger zerolog.Logger) papersources.AttemptFunc {
	return func(source string, attempt int, err error, elapsed time.Duration) {
		kind := ""
		if err != nil {
			kind = papersources.Classify(err).String()
			sourceLogger := observability.WithSourceContext(logger, source, attempt)
			sourceLogger.Debug().
				Err(err).
				Str("kind", kind).
				Dur("elapsed", elapsed).
				Msg("provider attempt failed")
		}
		if metrics == nil {
			return
		}
		metrics.RecordSourceRequest(source, attempt, kind, elapsed.Seconds())
		if err != nil && papersources.Classify(err) == papersources.FailureRateLimited {
			metrics.RecordSourceRateLimited(source)
		}
	}
}

// instrumentedSource records each call of a fallback provider.
type instrumentedSource struct {
	papersources.CitationSource
	metrics *observability.Metrics
}

func (s *instrumentedSource) Resolve(ctx context.Context, paper domain.PaperRef) (*domain.Metrics, error) {
	started := time.Now()
	m, err := s.CitationSource.Resolve(ctx, paper)
	if s.metrics != nil {
		kind := ""
		if err != nil {
			kind = papersources.Classify(err).String()
			if papersources.Classify(err) == papersources.FailureRateLimited {
				s.metrics.RecordSourceRateLimited(s.Name())
			}
		}
		s.metrics.RecordSourceRequest(s.Name(), 1, kind, time.Since(started).Seconds())
	}
	return m, err
}
