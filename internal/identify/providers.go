package identify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"src2purl/internal/cache"
	"src2purl/internal/config"
	"src2purl/internal/gateway"
	"src2purl/internal/logging"
	"src2purl/internal/metrics"
	"src2purl/internal/provider"
	"src2purl/internal/providers/github"
	"src2purl/internal/providers/llmhint"
	"src2purl/internal/providers/manifest"
	"src2purl/internal/providers/scanoss"
	"src2purl/internal/providers/swh"
	"src2purl/internal/providers/websearch"
)

// Providers is a provider registry together with the cache and gateway its
// network providers share. Close releases all three.
type Providers struct {
	Registry *provider.Registry
	Gateway  *gateway.Gateway
	Cache    cache.Store
}

// OpenProviders opens the configured cache, builds the gateway on top of it,
// and registers a factory for every known strategy. Providers themselves are
// constructed on first use.
func OpenProviders(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*Providers, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	store, err := cache.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	opts := gateway.OptionsFromConfig(cfg)
	opts.Cache = store
	opts.Metrics = m
	opts.Logger = logger
	gw := gateway.New(opts)

	reg := provider.NewRegistry(logger)
	RegisterProviders(reg, cfg, gw, logger)
	return &Providers{Registry: reg, Gateway: gw, Cache: store}, nil
}

// RegisterProviders binds every known strategy name to its constructor.
func RegisterProviders(reg *provider.Registry, cfg *config.Config, gw *gateway.Gateway, logger *slog.Logger) {
	p := cfg.Providers
	reg.Register(config.StrategyManifest, func(context.Context) (provider.Provider, error) {
		return manifest.New(logger), nil
	})
	reg.Register(config.StrategySWH, func(context.Context) (provider.Provider, error) {
		return swh.New(p.SWH.BaseURL, p.SWH.Token, gw.Endpoint(swh.Name, config.MinInterval(p.SWH.MinIntervalMillis)), logger)
	})
	reg.Register(config.StrategyWebSearch, func(context.Context) (provider.Provider, error) {
		return websearch.New(p.WebSearch.BaseURL, gw.Endpoint(websearch.Name, config.MinInterval(p.WebSearch.MinIntervalMillis)), logger)
	})
	reg.Register(config.StrategyGitHub, func(context.Context) (provider.Provider, error) {
		return github.New(p.GitHub.BaseURL, p.GitHub.Token, gw.Endpoint(github.Name, config.MinInterval(p.GitHub.MinIntervalMillis)), logger)
	})
	reg.Register(config.StrategySCANOSS, func(context.Context) (provider.Provider, error) {
		return scanoss.New(p.SCANOSS.BaseURL, p.SCANOSS.Token, gw.Endpoint(scanoss.Name, config.MinInterval(p.SCANOSS.MinIntervalMillis)), logger)
	})
	reg.Register(config.StrategyLLM, func(context.Context) (provider.Provider, error) {
		return llmhint.New(p.LLM.BaseURL, p.LLM.APIKey, p.LLM.Model,
			gw.Endpoint(llmhint.Name, config.MinInterval(p.LLM.MinIntervalMillis)), logger,
			llmhint.WithTimeout(time.Duration(p.LLM.TimeoutSeconds)*time.Second))
	})
	logging.NewComponentLogger(logger, "providers").Debug("strategies registered",
		logging.Strings("strategies", reg.Names()))
}

// Close releases the registry, then the gateway's connections, then the
// cache. Errors are joined.
func (p *Providers) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.Registry != nil {
		errs = append(errs, p.Registry.Close())
	}
	if p.Gateway != nil {
		errs = append(errs, p.Gateway.Close())
	}
	if p.Cache != nil {
		errs = append(errs, p.Cache.Close())
	}
	return errors.Join(errs...)
}
