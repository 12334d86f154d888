package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixir/citation-graph-service/internal/batch"
	"github.com/helixir/citation-graph-service/internal/domain"
	"github.com/helixir/citation-graph-service/internal/graph"
)

// rankOutput is printed by the rank command.
type rankOutput struct {
	BatchID     string               `json:"batch_id" yaml:"batch_id"`
	Ranking     []graph.RankedPaper  `json:"ranking" yaml:"ranking"`
	Iterations  int                  `json:"iterations" yaml:"iterations"`
	Converged   bool                 `json:"converged" yaml:"converged"`
	Stats       graph.GraphStats     `json:"stats" yaml:"stats"`
	Seminal     []graph.SeminalPaper `json:"seminal" yaml:"seminal"`
	Unavailable []string             `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
	Advisory    string               `json:"advisory,omitempty" yaml:"advisory,omitempty"`
}

// pathOutput is printed by the path command.
type pathOutput struct {
	From  string   `json:"from" yaml:"from"`
	To    string   `json:"to" yaml:"to"`
	Path  []string `json:"path" yaml:"path"`
	Hops  int      `json:"hops" yaml:"hops"`
	Found bool     `json:"found" yaml:"found"`
}

func newRankCommand(rootOpts *RootOptions, open BackendFactory) *cobra.Command {
	var (
		concurrency int
		damping     float64
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "rank <paper-id>...",
		Short: "Rank papers by PageRank over their citation graph",
		Long: `Resolve the papers, build the citation graph formed by their references
and rank the papers with PageRank. Only references to papers in the set
become edges.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := paperRefs(args)
			if err != nil {
				return err
			}
			return withBackend(cmd, rootOpts, open, func(ctx context.Context, b *Backend) error {
				result, g, err := buildGraph(ctx, b, refs, concurrency)
				if err != nil {
					return err
				}

				opts := b.PageRank
				if cmd.Flags().Changed("damping") {
					opts.Damping = damping
				}
				ranks, err := graph.PageRank(ctx, g, opts)
				if err != nil {
					return err
				}

				ranking := ranks.Ranking
				if limit > 0 && len(ranking) > limit {
					ranking = ranking[:limit]
				}
				out := rankOutput{
					BatchID:    result.BatchID.String(),
					Ranking:    ranking,
					Iterations: ranks.Iterations,
					Converged:  ranks.Converged,
					Stats:      graph.Summarize(g),
					Seminal:    graph.Seminal(g, 0, limit),
					Advisory:   result.Advisory,
				}
				for _, m := range result.Metrics {
					if !m.IsResolved() {
						out.Unavailable = append(out.Unavailable, m.PaperID)
					}
				}
				return writeOutput(cmd.OutOrStdout(), rootOpts.Format, out)
			})
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "maximum papers resolved at once (0 uses the configured default)")
	cmd.Flags().Float64Var(&damping, "damping", graph.DefaultDamping, "PageRank damping factor, overrides the configured value")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "print at most this many ranked and seminal papers (0 prints all)")
	return cmd
}

func newPathCommand(rootOpts *RootOptions, open BackendFactory) *cobra.Command {
	var (
		concurrency int
		papers      []string
	)

	cmd := &cobra.Command{
		Use:   "path <from-id> <to-id>",
		Short: "Find the shortest citation path between two papers",
		Long: `Resolve both papers plus any --papers given, build their citation graph
and print the shortest chain of references leading from the first paper to
the second. The command fails when no path exists.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := paperRefs(append(args[:2:2], papers...))
			if err != nil {
				return err
			}
			from, to := refs[0].ID, domain.NormalizePaperID(args[1])
			return withBackend(cmd, rootOpts, open, func(ctx context.Context, b *Backend) error {
				_, g, err := buildGraph(ctx, b, refs, concurrency)
				if err != nil {
					return err
				}
				path, err := graph.FindPath(g, from, to)
				if err != nil {
					return fmt.Errorf("%s -> %s: %w", from, to, err)
				}
				return writeOutput(cmd.OutOrStdout(), rootOpts.Format, pathOutput{
					From:  from,
					To:    to,
					Path:  path,
					Hops:  len(path) - 1,
					Found: true,
				})
			})
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "maximum papers resolved at once (0 uses the configured default)")
	cmd.Flags().StringSliceVarP(&papers, "papers", "p", nil, "additional papers to include in the graph")
	return cmd
}

// buildGraph resolves refs and builds their citation graph. Unavailable
// papers become isolated nodes.
func buildGraph(ctx context.Context, b *Backend, refs []domain.PaperRef, concurrency int) (*batch.Result, *graph.CitationGraph, error) {
	result, err := b.Batch.ResolveMany(ctx, refs, concurrency)
	if err != nil {
		return nil, nil, err
	}
	return result, graph.BuildFromList(result.Metrics), nil
}
