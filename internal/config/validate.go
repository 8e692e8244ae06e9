package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validateStrategies(); err != nil {
		return err
	}
	if err := c.validateNetwork(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateLicense(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateScan() error {
	if c.Scan.MaxDepth < 0 {
		return errors.New("scan.max_depth must be >= 0")
	}
	if c.Scan.MinFiles < 0 {
		return errors.New("scan.min_files must be >= 0")
	}
	if c.Scan.StableSpecificity < 0 || c.Scan.StableSpecificity > 1 {
		return errors.New("scan.stable_specificity must be between 0 and 1")
	}
	if c.Scan.MaxStable < 0 {
		return errors.New("scan.max_stable must be >= 0")
	}
	if c.Scan.MaxFileCandidates < 0 {
		return errors.New("scan.max_file_candidates must be >= 0")
	}
	if c.Scan.MaxFileBytes <= 0 {
		return errors.New("scan.max_file_bytes must be positive")
	}
	return nil
}

func (c *Config) validateScoring() error {
	weights := map[string]float64{
		"recency":     c.Scoring.Weights.Recency,
		"popularity":  c.Scoring.Weights.Popularity,
		"authority":   c.Scoring.Weights.Authority,
		"specificity": c.Scoring.Weights.Specificity,
	}
	for _, name := range []string{"recency", "popularity", "authority", "specificity"} {
		if weights[name] < 0 {
			return fmt.Errorf("scoring.weights.%s: must be >= 0", name)
		}
	}
	switch c.Scoring.MissingTimestamp {
	case MissingTimestampNow, MissingTimestampEpoch, MissingTimestampNeutral:
	default:
		return fmt.Errorf("scoring.missing_timestamp: unsupported value %q (want now, epoch, or neutral)", c.Scoring.MissingTimestamp)
	}
	if c.Scoring.HighConfidenceVisitFloor < 0 {
		return errors.New("scoring.high_confidence_visit_floor must be >= 0")
	}
	return nil
}

func (c *Config) validateThresholds() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"thresholds.purl_generation", c.Thresholds.PurlGeneration},
		{"thresholds.report_match", c.Thresholds.ReportMatch},
		{"thresholds.fuzzy_consideration", c.Thresholds.FuzzyConsideration},
	}
	for _, check := range checks {
		if check.value < 0 || check.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", check.name)
		}
	}
	return nil
}

func (c *Config) validateStrategies() error {
	if len(c.Strategies.Order) == 0 {
		return errors.New("strategies.order must name at least one strategy")
	}
	known := KnownStrategies()
	for _, name := range c.Strategies.Order {
		if !slices.Contains(known, name) {
			return fmt.Errorf("strategies.order: unknown strategy %q", name)
		}
	}
	switch c.Strategies.DedupMode {
	case DedupModeSegments, DedupModeCanonical:
	default:
		return fmt.Errorf("strategies.dedup_mode: unsupported value %q (want segments or canonical)", c.Strategies.DedupMode)
	}
	return nil
}

func (c *Config) validateNetwork() error {
	if c.Network.MaxInFlight <= 0 {
		return errors.New("network.max_in_flight must be positive")
	}
	if c.Network.TimeoutSeconds <= 0 {
		return errors.New("network.timeout_seconds must be positive")
	}
	if c.Network.MaxRetries < 0 {
		return errors.New("network.max_retries must be >= 0")
	}
	if c.Network.InitialBackoffMillis < 0 || c.Network.MaxBackoffSeconds < 0 {
		return errors.New("network backoff values must be >= 0")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendSQLite, CacheBackendMemory:
	case CacheBackendRedis:
		if c.Cache.Enabled && c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr is required when cache.backend = \"redis\"")
		}
	default:
		return fmt.Errorf("cache.backend: unsupported value %q (want sqlite, memory, or redis)", c.Cache.Backend)
	}
	if c.Cache.TTLHours < 0 {
		return errors.New("cache.ttl_hours must be >= 0")
	}
	return nil
}

func (c *Config) validateLicense() error {
	if c.License.PrimaryConfidence < 0 || c.License.PrimaryConfidence > 1 {
		return errors.New("license.primary_confidence must be between 0 and 1")
	}
	if c.License.OverrideConfidence < c.License.PrimaryConfidence || c.License.OverrideConfidence > 1 {
		return errors.New("license.override_confidence must be between license.primary_confidence and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
