package license

import (
	"context"
	"errors"
	"log/slog"

	"src2purl/internal/config"
	"src2purl/internal/logging"
	"src2purl/internal/rank"
)

// License sources recorded on matches.
const (
	SourceProvider = "provider"
	SourceDetector = "detector"
)

// Detect is satisfied by *Detector.
type Detect interface {
	Detect(ctx context.Context, dir string) (Result, error)
}

// Enhancer fills or replaces match licenses from a local scan.
type Enhancer struct {
	detector Detect
	primary  float64
	override float64
	logger   *slog.Logger
}

// NewEnhancer applies detector results above primary to unlicensed matches
// and above override to every match.
func NewEnhancer(detector Detect, primary, override float64, logger *slog.Logger) *Enhancer {
	return &Enhancer{
		detector: detector,
		primary:  primary,
		override: override,
		logger:   logging.NewComponentLogger(logger, "license"),
	}
}

// EnhancerFromConfig builds the detector and thresholds from cfg.
func EnhancerFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Enhancer, error) {
	d, err := NewFromConfig(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return NewEnhancer(d, cfg.License.PrimaryConfidence, cfg.License.OverrideConfidence, logger), nil
}

// Enhance scans dir once and returns matches with licenses applied. A
// detector failure leaves matches unchanged and is only logged.
func (e *Enhancer) Enhance(ctx context.Context, dir string, matches []rank.ScoredMatch) []rank.ScoredMatch {
	if len(matches) == 0 {
		return matches
	}
	res, err := e.detector.Detect(ctx, dir)
	if err != nil {
		hint := "check the license.command setting"
		if errors.Is(err, ErrUnavailable) {
			hint = "install oslili or disable license enhancement"
		}
		logging.WarnWithContext(e.logger, "license enhancement skipped", "license_detector_failed",
			logging.String("path", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "licenses come from providers only"),
		)
		return matches
	}
	primary := res.Primary()
	if primary == "" || res.Confidence <= e.primary {
		e.logger.Debug("license detector inconclusive",
			logging.Args(logging.DecisionAttrs("license_enhancement", "skipped", "low_confidence")...)...,
		)
		return matches
	}
	out := make([]rank.ScoredMatch, len(matches))
	applied := 0
	for i, m := range matches {
		if (m.License == "" || res.Confidence > e.override) && m.License != primary {
			m.License = primary
			m.LicenseSource = SourceDetector
			applied++
		}
		out[i] = m
	}
	e.logger.Info("license enhancement applied",
		logging.String("license", primary),
		logging.Float64("confidence", res.Confidence),
		logging.Int("updated", applied),
	)
	return out
}
