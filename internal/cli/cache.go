package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

// errCacheDisabled is returned by the cache commands when no cache is configured.
var errCacheDisabled = errors.New("cache is disabled")

type purgeOutput struct {
	Purged int `json:"purged" yaml:"purged"`
}

func newCacheCommand(rootOpts *RootOptions, open BackendFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the metric cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print cache entry counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, rootOpts, open, func(ctx context.Context, b *Backend) error {
				if b.Cache == nil {
					return errCacheDisabled
				}
				stats, err := b.Cache.Stats(ctx)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), rootOpts.Format, stats)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete expired cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, rootOpts, open, func(ctx context.Context, b *Backend) error {
				if b.Cache == nil {
					return errCacheDisabled
				}
				purged, err := b.Cache.Purge(ctx)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), rootOpts.Format, purgeOutput{Purged: purged})
			})
		},
	})

	return cmd
}
