package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"src2purl/internal/identify"
	"src2purl/internal/logging"
	"src2purl/internal/metrics"
	"src2purl/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve identification over HTTP",
		Long: `Serve POST /v1/identify, GET /healthz and GET /metrics until interrupted.
Provider clients, the response cache and the request permit pool are shared
across requests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if b := strings.TrimSpace(bind); b != "" {
				clone := cfg.Clone()
				clone.Server.Bind = b
				cfg = clone
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}

			m := metrics.New()
			providers, err := identify.OpenProviders(cmd.Context(), cfg, m, logger)
			if err != nil {
				return fmt.Errorf("open providers: %w", err)
			}
			defer func() {
				if err := providers.Close(); err != nil {
					logging.WarnWithContext(logger, "provider shutdown incomplete", "provider_close_failed",
						logging.Error(err),
						logging.String(logging.FieldImpact, "connections may linger until exit"),
					)
				}
			}()

			srv := server.New(cfg, providers.Registry, m, logger)
			return srv.ListenAndServe(cmd.Context(), func(addr string) {
				fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to server.bind)")
	return cmd
}
