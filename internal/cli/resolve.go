package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newResolveCommand(rootOpts *RootOptions, open BackendFactory) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "resolve <paper-id>...",
		Short: "Resolve citation metrics for papers",
		Long: `Resolve citation metrics for one or more papers.

Paper ids may be DOIs, arXiv ids or provider ids. Papers no provider could
resolve are reported as unavailable rather than failing the command.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := paperRefs(args)
			if err != nil {
				return err
			}
			return withBackend(cmd, rootOpts, open, func(ctx context.Context, b *Backend) error {
				result, err := b.Batch.ResolveMany(ctx, refs, concurrency)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), rootOpts.Format, result)
			})
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "maximum papers resolved at once (0 uses the configured default)")
	return cmd
}
