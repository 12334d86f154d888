package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/citation-graph-service/internal/batch"
	"github.com/helixir/citation-graph-service/internal/cache"
	"github.com/helixir/citation-graph-service/internal/config"
	"github.com/helixir/citation-graph-service/internal/graph"
	"github.com/helixir/citation-graph-service/internal/observability"
	"github.com/helixir/citation-graph-service/internal/resolver"
)

// OpenBackend loads the configuration named by opts and wires the cache,
// resolver and batch coordinator the same way the server does. Logs go to
// stderr so they never mix with command output.
func OpenBackend(ctx context.Context, opts *RootOptions) (*Backend, error) {
	cfg, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := zerolog.Nop()
	if opts.Verbose {
		logger = observability.NewLogger(observability.LoggingConfig{
			Level:      cfg.Logging.Level,
			Format:     "console",
			Output:     "stderr",
			TimeFormat: cfg.Logging.TimeFormat,
		})
	}
	logger = logger.With().Str("component", "cli").Logger()

	metricCache, err := cache.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	coordinator := batch.NewCoordinator(
		resolver.NewFromConfig(cfg, metricCache, nil, logger),
		batch.Config{
			Concurrency:         cfg.Batch.Concurrency,
			Timeout:             cfg.Batch.Timeout,
			LowSuccessThreshold: cfg.Batch.LowSuccessThreshold,
			MaxPapers:           cfg.Batch.MaxPapers,
		},
		logger,
	)

	return &Backend{
		Batch: coordinator,
		Cache: metricCache,
		PageRank: graph.PageRankOptions{
			Damping:       cfg.Graph.PageRankDamping,
			MaxIterations: cfg.Graph.PageRankMaxIterations,
			Tolerance:     cfg.Graph.PageRankTolerance,
		},
		Close: metricCache.Close,
	}, nil
}
