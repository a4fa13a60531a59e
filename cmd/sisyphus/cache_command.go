package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leeyeel/Sisyphus/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the checkpoint cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show checkpoint cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, ok, err := openCache(ctx, cmd)
			if err != nil || !ok {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Path:         %s\n", store.Path())
			fmt.Fprintf(out, "Translations: %d\n", stats.Translations)
			fmt.Fprintf(out, "Segments:     %d (%s)\n", stats.Segments, humanBytes(stats.SegmentBytes))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached translation and segment",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, ok, err := openCache(ctx, cmd)
			if err != nil || !ok {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", store.Path())
			return nil
		},
	}
}

// openCache reports ok=false, after printing a note, when caching is disabled.
func openCache(ctx *commandContext, cmd *cobra.Command) (*cache.Store, bool, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, false, err
	}
	store, err := cache.Open(cfg)
	if err != nil {
		return nil, false, fmt.Errorf("open checkpoint cache: %w", err)
	}
	if store == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Checkpoint cache is disabled (cache.enabled = false)")
		return nil, false, nil
	}
	return store, true, nil
}
