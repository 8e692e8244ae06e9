package testsupport

import (
	"path/filepath"
	"testing"

	"src2purl/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with a unique temp directory per test.
// The cache is in-memory, retries back off in milliseconds, and every
// network provider points at an unroutable address until overridden.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Cache.Backend = config.CacheBackendMemory
	cfgVal.Cache.Path = filepath.Join(base, "cache", "cache.db")
	cfgVal.Network.InitialBackoffMillis = 1
	cfgVal.Network.MaxBackoffSeconds = 1
	cfgVal.Network.TimeoutSeconds = 5
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Logging.Level = "error"
	for _, p := range []*config.Provider{
		&cfgVal.Providers.SWH,
		&cfgVal.Providers.SCANOSS,
		&cfgVal.Providers.GitHub,
		&cfgVal.Providers.WebSearch,
	} {
		p.BaseURL = "http://127.0.0.1:1"
		p.MinIntervalMillis = 0
	}
	cfgVal.Providers.LLM.BaseURL = "http://127.0.0.1:1"
	cfgVal.Providers.LLM.MinIntervalMillis = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStrategies replaces the strategy order.
func WithStrategies(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Strategies.Order = append([]string(nil), names...)
	}
}

// WithProviderURL points one provider at a test server.
func WithProviderURL(strategy, url string) ConfigOption {
	return func(b *configBuilder) {
		switch strategy {
		case config.StrategySWH:
			b.cfg.Providers.SWH.BaseURL = url
		case config.StrategySCANOSS:
			b.cfg.Providers.SCANOSS.BaseURL = url
		case config.StrategyGitHub:
			b.cfg.Providers.GitHub.BaseURL = url
		case config.StrategyWebSearch:
			b.cfg.Providers.WebSearch.BaseURL = url
		case config.StrategyLLM:
			b.cfg.Providers.LLM.BaseURL = url
		default:
			b.t.Fatalf("unknown strategy %q", strategy)
		}
	}
}

// WithSQLiteCache switches the cache to the on-disk backend under the test
// directory.
func WithSQLiteCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = config.CacheBackendSQLite
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(filepath.Dir(cfg.Cache.Path))
}
