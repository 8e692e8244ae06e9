package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"src2purl/internal/config"
)

func TestLoadDefaultConfigAppliesEnvAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("SRC2PURL_GITHUB_TOKEN", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCache := filepath.Join(tempHome, ".cache", "src2purl", "cache.db")
	if cfg.Cache.Path != wantCache {
		t.Fatalf("unexpected cache path: got %q want %q", cfg.Cache.Path, wantCache)
	}
	if cfg.Providers.GitHub.Token != "gh-token" {
		t.Fatalf("expected github token from env, got %q", cfg.Providers.GitHub.Token)
	}
	if cfg.Scan.MaxDepth != 2 || cfg.Scan.MinFiles != 3 {
		t.Fatalf("unexpected scan defaults: %+v", cfg.Scan)
	}
	if cfg.Thresholds.PurlGeneration != 0.85 {
		t.Fatalf("unexpected purl threshold: %v", cfg.Thresholds.PurlGeneration)
	}
	if !slices.Equal(cfg.Strategies.Order, config.DefaultStrategyOrder()) {
		t.Fatalf("unexpected strategy order: %v", cfg.Strategies.Order)
	}
	if cfg.Network.MaxInFlight != 5 {
		t.Fatalf("unexpected permit pool size: %d", cfg.Network.MaxInFlight)
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg := config.Default()
	cfg.Scan.MaxDepth = 4
	cfg.Strategies.Order = []string{" SWH ", "github", "swh"}
	cfg.Strategies.LLMHints = true
	cfg.Cache.Path = "~/cache/custom.db"
	cfg.Scoring.MissingTimestamp = "Neutral"

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(tempHome, "custom.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit path to be used, got %q exists=%v", resolved, exists)
	}
	if loaded.Scan.MaxDepth != 4 {
		t.Fatalf("got max depth %d want 4", loaded.Scan.MaxDepth)
	}
	want := []string{"swh", "github", "llm"}
	if !slices.Equal(loaded.Strategies.Order, want) {
		t.Fatalf("got order %v want %v", loaded.Strategies.Order, want)
	}
	if loaded.Cache.Path != filepath.Join(tempHome, "cache", "custom.db") {
		t.Fatalf("unexpected cache path: %q", loaded.Cache.Path)
	}
	if loaded.Scoring.MissingTimestamp != config.MissingTimestampNeutral {
		t.Fatalf("got missing timestamp %q", loaded.Scoring.MissingTimestamp)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"negative weight", func(c *config.Config) { c.Scoring.Weights.Recency = -0.1 }, "scoring.weights.recency"},
		{"threshold range", func(c *config.Config) { c.Thresholds.PurlGeneration = 1.5 }, "thresholds.purl_generation"},
		{"unknown strategy", func(c *config.Config) { c.Strategies.Order = []string{"ftp"} }, "unknown strategy"},
		{"empty order", func(c *config.Config) { c.Strategies.Order = nil }, "strategies.order"},
		{"permit pool", func(c *config.Config) { c.Network.MaxInFlight = 0 }, "network.max_in_flight"},
		{"redis without addr", func(c *config.Config) { c.Cache.Backend = config.CacheBackendRedis }, "cache.redis_addr"},
		{"timestamp policy", func(c *config.Config) { c.Scoring.MissingTimestamp = "later" }, "scoring.missing_timestamp"},
		{"dedup mode", func(c *config.Config) { c.Strategies.DedupMode = "fuzzy" }, "strategies.dedup_mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("got %q want substring %q", err.Error(), tc.want)
			}
		})
	}
}

func TestWriteSampleIsLoadable(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path, err := config.WriteSample("~/nested/config.toml", false)
	if err != nil {
		t.Fatalf("WriteSample returned error: %v", err)
	}
	if want := filepath.Join(tempHome, "nested", "config.toml"); path != want {
		t.Fatalf("got path %q want %q", path, want)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Providers.SWH.BaseURL != "https://archive.softwareheritage.org/api/1" {
		t.Fatalf("unexpected swh base url: %q", cfg.Providers.SWH.BaseURL)
	}

	if _, err := config.WriteSample(path, false); !errors.Is(err, config.ErrSampleExists) {
		t.Fatalf("second write: got %v want ErrSampleExists", err)
	}
	if _, err := config.WriteSample(path, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}
