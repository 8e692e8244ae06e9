package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"src2purl/internal/api"
	"src2purl/internal/config"
	"src2purl/internal/logging"
	"src2purl/internal/metrics"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

type identifyFlags struct {
	maxDepth        int
	threshold       float64
	outputFormat    string
	noFuzzy         bool
	noCache         bool
	clearCache      bool
	strategies      []string
	enhanceLicenses bool
	explain         bool
	metricsFile     string
}

func (f *identifyFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.maxDepth, "max-depth", 2, "Ancestor directories to scan above the path")
	fs.Float64Var(&f.threshold, "confidence-threshold", 0.3, "Minimum confidence for a reported match")
	fs.StringVarP(&f.outputFormat, "output-format", "o", outputTable, "Output format (table or json)")
	fs.BoolVar(&f.noFuzzy, "no-fuzzy", false, "Skip similarity-based strategies")
	fs.BoolVar(&f.noCache, "no-cache", false, "Bypass the response cache for this run")
	fs.BoolVar(&f.clearCache, "clear-cache", false, "Clear the response cache before identifying")
	fs.StringSliceVar(&f.strategies, "strategies", nil, "Comma-separated strategy order (manifest,swh,web_search,github,scanoss,llm)")
	fs.BoolVar(&f.enhanceLicenses, "enhance-licenses", false, "Fill and correct licenses with the local detector")
	fs.BoolVar(&f.explain, "explain", false, "Include the confidence breakdown for each match")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
}

// request maps flags onto overrides; only flags the user set override config.
func (f *identifyFlags) request(cmd *cobra.Command, path string) api.IdentifyRequest {
	fs := cmd.Flags()
	req := api.IdentifyRequest{
		Path:       path,
		Strategies: f.strategies,
		NoFuzzy:    f.noFuzzy,
		NoCache:    f.noCache,
		Explain:    f.explain,
	}
	if fs.Changed("max-depth") {
		depth := f.maxDepth
		req.MaxDepth = &depth
	}
	if fs.Changed("confidence-threshold") {
		threshold := f.threshold
		req.ConfidenceThreshold = &threshold
	}
	if fs.Changed("enhance-licenses") {
		enhance := f.enhanceLicenses
		req.EnhanceLicenses = &enhance
	}
	return req
}

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	flags := &identifyFlags{}
	cmd := &cobra.Command{
		Use:   "identify <path>",
		Short: "Identify the package a source directory belongs to",
		Long: `Walk the path and its ancestors, query the configured knowledge sources
strategy by strategy, and print ranked package matches with purls.

Examples:
  src2purl identify ./vendor/zlib
  src2purl identify . --strategies manifest,swh --output-format json
  src2purl identify ./lib --explain --no-cache`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIdentify(cmd, ctx, flags, args[0])
		},
	}
	flags.register(cmd)
	return cmd
}

func runIdentify(cmd *cobra.Command, ctx *commandContext, flags *identifyFlags, rawPath string) error {
	format := strings.ToLower(strings.TrimSpace(flags.outputFormat))
	if format != outputTable && format != outputJSON {
		return fmt.Errorf("unsupported output format %q (want table or json)", flags.outputFormat)
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.logger(cfg)
	if err != nil {
		return err
	}
	path, err := config.ExpandPath(strings.TrimSpace(rawPath))
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if flags.clearCache && !flags.noCache {
		removed, err := api.ClearCache(cmd.Context(), cfg, logger)
		switch {
		case errors.Is(err, api.ErrCacheDisabled):
			logger.Debug("cache clear skipped", logging.Args(logging.DecisionAttrs("cache_clear", "skipped", "cache disabled")...)...)
		case err != nil:
			return err
		default:
			logger.Info("response cache cleared", logging.Int64("removed", removed))
		}
	}

	metricsPath := strings.TrimSpace(flags.metricsFile)
	if metricsPath == "" {
		metricsPath = cfg.Metrics.Textfile
	}
	var m *metrics.Metrics
	if metricsPath != "" {
		m = metrics.New()
	}

	progress := newProgressReporter(cmd.ErrOrStderr())
	report, _, err := api.RunIdentify(cmd.Context(), api.IdentifyWorkflow{
		Config:   cfg,
		Request:  flags.request(cmd, path),
		Metrics:  m,
		Logger:   logger,
		Progress: progress.update,
	})
	progress.finish()
	if err != nil {
		return err
	}

	if err := m.WriteTextfile(metricsPath); err != nil {
		logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed",
			logging.Error(err),
			logging.String("path", metricsPath),
			logging.String(logging.FieldImpact, "identification results unaffected"),
		)
	}

	if format == outputJSON {
		return writeJSON(cmd, report)
	}
	renderReport(cmd.OutOrStdout(), report, flags.explain)
	return nil
}
