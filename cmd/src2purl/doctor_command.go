package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"src2purl/internal/preflight"
)

var errChecksFailed = errors.New("one or more required checks failed")

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check provider reachability, credentials and local dependencies",
		Long: `Run one readiness check per configured strategy, then check the cache
backend and the license detector. Exits non-zero when a required check fails;
optional checks only warn.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, resultLabel(r), r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]column{col("Check"), col("Status"), col("Detail")},
				rows,
				"Config: "+ctx.configPath,
			))
			if preflight.Failed(results) {
				return errChecksFailed
			}
			return nil
		},
	}
}

func resultLabel(r preflight.Result) string {
	switch {
	case r.Passed:
		return "OK"
	case r.Optional:
		return "WARN"
	default:
		return "ERROR"
	}
}
