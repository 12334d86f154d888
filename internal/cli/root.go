// Package cli implements the citegraph command line tool.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/helixir/citation-graph-service/internal/batch"
	"github.com/helixir/citation-graph-service/internal/cache"
	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/graph"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"json", "yaml"}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string
	Verbose    bool
}

// BatchResolver resolves many papers at once. *batch.Coordinator satisfies it.
type BatchResolver interface {
	ResolveMany(ctx context.Context, papers []domain.PaperRef, maxConcurrency int) (*batch.Result, error)
}

// Backend is what the commands run against.
type Backend struct {
	Batch BatchResolver
	// Cache may be nil when caching is disabled.
	Cache    cache.MetricCache
	PageRank graph.PageRankOptions
	Close    func() error
}

// BackendFactory opens a Backend for one command invocation.
type BackendFactory func(ctx context.Context, opts *RootOptions) (*Backend, error)

// NewRootCommand creates the citegraph root command.
func NewRootCommand(open BackendFactory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "citegraph",
		Short: "Resolve citation metrics and analyze citation graphs",
		Long: `citegraph resolves citation metrics for scholarly papers through the
configured providers and cache, then ranks and searches the citation graph
the resolved references form.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: ./config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "json", "output format (json|yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log resolution progress to stderr")

	cmd.AddCommand(newResolveCommand(opts, open))
	cmd.AddCommand(newRankCommand(opts, open))
	cmd.AddCommand(newPathCommand(opts, open))
	cmd.AddCommand(newCacheCommand(opts, open))

	return cmd
}

// withBackend opens a backend, runs fn and closes the backend.
func withBackend(cmd *cobra.Command, opts *RootOptions, open BackendFactory, fn func(context.Context, *Backend) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	backend, err := open(ctx, opts)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	if backend.Close != nil {
		defer func() {
			if closeErr := backend.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close backend: %w", closeErr)
			}
		}()
	}
	return fn(ctx, backend)
}

// paperRefs normalizes and dedupes raw ids, keeping first-seen order.
func paperRefs(ids []string) ([]domain.PaperRef, error) {
	refs := make([]domain.PaperRef, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		ref, err := domain.NewPaperRef(id, "")
		if err != nil {
			return nil, fmt.Errorf("paper %q: %w", id, err)
		}
		if _, ok := seen[ref.ID]; ok {
			continue
		}
		seen[ref.ID] = struct{}{}
		refs = append(refs, ref)
	}
	return refs, nil
}
