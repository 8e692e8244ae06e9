package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Scan contains candidate discovery settings.
type Scan struct {
	MaxDepth          int      `toml:"max_depth"`
	MinFiles          int      `toml:"min_files"`
	StableDirsEnabled bool     `toml:"stable_dirs_enabled"`
	StableDirs        []string `toml:"stable_dirs"`
	StableMinFiles    int      `toml:"stable_min_files"`
	StableSpecificity float64  `toml:"stable_specificity"`
	MaxStable         int      `toml:"max_stable"`
	IncludeSubmodules bool     `toml:"include_submodules"`
	MaxFileCandidates int      `toml:"max_file_candidates"`
	MaxFileBytes      int64    `toml:"max_file_bytes"`
	RelevantFileLimit int      `toml:"relevant_file_limit"`
}

// Weights are the additive confidence terms applied on top of the match base.
type Weights struct {
	Recency     float64 `toml:"recency"`
	Popularity  float64 `toml:"popularity"`
	Authority   float64 `toml:"authority"`
	Specificity float64 `toml:"specificity"`
}

// Scoring contains confidence model settings.
type Scoring struct {
	Weights             Weights `toml:"weights"`
	RecencyHalfLifeDays int     `toml:"recency_half_life_days"`
	PopularityPivot     int     `toml:"popularity_pivot"`
	// MissingTimestamp selects how hits without a usable last-seen date are
	// treated: "now", "epoch", or "neutral".
	MissingTimestamp         string `toml:"missing_timestamp"`
	HighConfidenceVisitFloor int    `toml:"high_confidence_visit_floor"`
}

// Thresholds gate purl generation, reporting, and fuzzy hit admission.
type Thresholds struct {
	PurlGeneration     float64 `toml:"purl_generation"`
	ReportMatch        float64 `toml:"report_match"`
	FuzzyConsideration float64 `toml:"fuzzy_consideration"`
}

// Strategies controls which providers run and in what order.
type Strategies struct {
	Order           []string `toml:"order"`
	EnableFuzzy     bool     `toml:"enable_fuzzy"`
	EnhanceLicenses bool     `toml:"enhance_licenses"`
	LLMHints        bool     `toml:"llm_hints"`
	DedupMode       string   `toml:"dedup_mode"`
}

// Network contains the shared HTTP discipline for every provider.
type Network struct {
	MaxInFlight              int    `toml:"max_in_flight"`
	TimeoutSeconds           int    `toml:"timeout_seconds"`
	MaxRetries               int    `toml:"max_retries"`
	InitialBackoffMillis     int    `toml:"initial_backoff_ms"`
	MaxBackoffSeconds        int    `toml:"max_backoff_seconds"`
	DefaultRetryAfterSeconds int    `toml:"default_retry_after_seconds"`
	UserAgent                string `toml:"user_agent"`
}

// Cache contains response cache settings.
type Cache struct {
	Enabled       bool   `toml:"enabled"`
	Backend       string `toml:"backend"`
	Path          string `toml:"path"`
	TTLHours      int    `toml:"ttl_hours"`
	RedisAddr     string `toml:"redis_addr"`
	RedisDB       int    `toml:"redis_db"`
	RedisUsername string `toml:"redis_username"`
	RedisPassword string `toml:"redis_password"`
	RedisPrefix   string `toml:"redis_prefix"`
}

// Provider contains connection settings for one knowledge source.
type Provider struct {
	BaseURL           string `toml:"base_url"`
	Token             string `toml:"token"`
	MinIntervalMillis int    `toml:"min_interval_ms"`
}

// LLM contains settings for the optional language-model hint strategy.
type LLM struct {
	APIKey            string `toml:"api_key"`
	BaseURL           string `toml:"base_url"`
	Model             string `toml:"model"`
	MinIntervalMillis int    `toml:"min_interval_ms"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// Providers groups per-source settings.
type Providers struct {
	SWH       Provider `toml:"swh"`
	SCANOSS   Provider `toml:"scanoss"`
	GitHub    Provider `toml:"github"`
	WebSearch Provider `toml:"web_search"`
	LLM       LLM      `toml:"llm"`
}

// License contains settings for the local license detector.
type License struct {
	Command            string  `toml:"command"`
	PrimaryConfidence  float64 `toml:"primary_confidence"`
	OverrideConfidence float64 `toml:"override_confidence"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Server contains the HTTP serve surface settings.
type Server struct {
	Bind string `toml:"bind"`
	// Token, when set, is required as a bearer token on /v1 routes.
	Token string `toml:"token"`
}

// Metrics contains Prometheus export settings.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Config encapsulates all configuration values for src2purl.
//
// Configuration sections by subsystem:
//   - Scan: ancestor walk, stable subdirectories, file candidates
//   - Scoring: confidence weights and timestamp policy
//   - Thresholds: purl, report, and fuzzy admission cut-offs
//   - Strategies: provider order and optional stages
//   - Network: permits, timeouts, and retry policy
//   - Cache: response cache backend
//   - Providers: per-source endpoints and credentials
//   - License: local license detector command
//   - Logging, Server, Metrics: ambient surfaces
type Config struct {
	Scan       Scan       `toml:"scan"`
	Scoring    Scoring    `toml:"scoring"`
	Thresholds Thresholds `toml:"thresholds"`
	Strategies Strategies `toml:"strategies"`
	Network    Network    `toml:"network"`
	Cache      Cache      `toml:"cache"`
	Providers  Providers  `toml:"providers"`
	License    License    `toml:"license"`
	Logging    Logging    `toml:"logging"`
	Server     Server     `toml:"server"`
	Metrics    Metrics    `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/src2purl/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("src2purl.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCachePath() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "src2purl", "cache.db")
	}
	return defaultCacheFile
}

// ErrSampleExists is returned by WriteSample when the target exists and
// overwrite was not requested.
var ErrSampleExists = errors.New("config file already exists")

// WriteSample writes the embedded sample configuration. An empty path means
// DefaultConfigPath. It returns the resolved destination.
func WriteSample(path string, overwrite bool) (string, error) {
	target := strings.TrimSpace(path)
	if target == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		target = p
	} else {
		p, err := expandPath(target)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		target = p
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(target, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return target, fmt.Errorf("%w at %s (use --overwrite to replace it)", ErrSampleExists, target)
	}
	if err != nil {
		return target, fmt.Errorf("write sample config: %w", err)
	}
	if _, err := f.WriteString(sampleConfig); err != nil {
		f.Close()
		return target, fmt.Errorf("write sample config: %w", err)
	}
	return target, f.Close()
}

// Timeout returns the per-call network timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Network.TimeoutSeconds) * time.Second
}

// CacheTTL returns the cache entry lifetime; zero means entries never expire.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// Clone returns a deep copy of c for per-run overrides.
func (c *Config) Clone() *Config {
	out := *c
	out.Scan.StableDirs = slices.Clone(c.Scan.StableDirs)
	out.Strategies.Order = slices.Clone(c.Strategies.Order)
	return &out
}

// MinInterval converts a provider throttle setting into a duration.
func MinInterval(millis int) time.Duration {
	if millis <= 0 {
		return 0
	}
	return time.Duration(millis) * time.Millisecond
}
