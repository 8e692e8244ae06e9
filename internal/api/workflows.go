package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"src2purl/internal/config"
	"src2purl/internal/identify"
	"src2purl/internal/logging"
	"src2purl/internal/metrics"
	"src2purl/internal/provider"
)

// ErrInvalidRequest marks a request rejected before any work started.
var ErrInvalidRequest = errors.New("invalid request")

// IdentifyWorkflow bundles what one identification run needs.
type IdentifyWorkflow struct {
	Config  *config.Config
	Request IdentifyRequest
	// Registry is shared across runs when set and is never closed here.
	Registry *provider.Registry
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Progress func(identify.Progress)
	Options  []identify.Option
}

// ApplyOverrides returns a copy of cfg with req's overrides applied and
// validated. cfg itself is never modified.
func ApplyOverrides(cfg *config.Config, req IdentifyRequest) (*config.Config, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidRequest)
	}
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	out := cfg.Clone()
	if req.MaxDepth != nil {
		if *req.MaxDepth < 0 {
			return nil, fmt.Errorf("%w: max_depth must be >= 0", ErrInvalidRequest)
		}
		out.Scan.MaxDepth = *req.MaxDepth
	}
	if req.ConfidenceThreshold != nil {
		out.Thresholds.ReportMatch = *req.ConfidenceThreshold
	}
	if len(req.Strategies) > 0 {
		out.Strategies.Order = SplitStrategies(req.Strategies)
	}
	if req.NoFuzzy {
		out.Strategies.EnableFuzzy = false
	}
	if req.EnhanceLicenses != nil {
		out.Strategies.EnhanceLicenses = *req.EnhanceLicenses
	}
	if req.NoCache {
		out.Cache.Enabled = false
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return out, nil
}

// SplitStrategies flattens comma-separated strategy lists, lowercasing and
// dropping duplicates while keeping first-seen order.
func SplitStrategies(values []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// RunIdentify applies the request overrides, runs one identification, and
// returns both the report and the raw result. Resources the run opened are
// released before it returns.
func RunIdentify(ctx context.Context, wf IdentifyWorkflow) (Report, identify.Result, error) {
	cfg, err := ApplyOverrides(wf.Config, wf.Request)
	if err != nil {
		return Report{}, identify.Result{}, err
	}
	opts := []identify.Option{identify.WithMetrics(wf.Metrics)}
	if wf.Registry != nil {
		opts = append(opts, identify.WithRegistry(wf.Registry))
	}
	if wf.Progress != nil {
		opts = append(opts, identify.WithProgress(wf.Progress))
	}
	opts = append(opts, wf.Options...)

	identifier := identify.New(cfg, wf.Logger, opts...)
	res, runErr := identifier.Identify(ctx, wf.Request.Path)
	closeErr := identifier.Close()
	if runErr != nil {
		return Report{}, res, runErr
	}
	if closeErr != nil {
		logging.WarnWithContext(wf.Logger, "release identification resources", "resource_release_failed",
			logging.Error(closeErr),
			logging.String(logging.FieldImpact, "report unaffected; connections may linger until exit"),
		)
	}
	return FromResult(res, wf.Request.Explain), res, nil
}
