package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"src2purl/internal/api"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the response cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show response cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			stats, err := api.ReadCacheStats(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend:  %s\n", stats.Backend)
			if stats.Location != "" {
				fmt.Fprintf(out, "Location: %s\n", stats.Location)
			}
			fmt.Fprintf(out, "Entries:  %s\n", humanize.Comma(stats.Entries))
			if stats.Expired > 0 {
				fmt.Fprintf(out, "Expired:  %s\n", humanize.Comma(stats.Expired))
			}
			if stats.SizeBytes > 0 {
				fmt.Fprintf(out, "Size:     %s\n", humanize.IBytes(uint64(stats.SizeBytes)))
			}
			if stats.TTL != "" {
				fmt.Fprintf(out, "TTL:      %s\n", stats.TTL)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print statistics as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			removed, err := api.ClearCache(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s cached %s\n", humanize.Comma(removed), plural(removed, "response", "responses"))
			return nil
		},
	}
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
