package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"src2purl/internal/cache"
	"src2purl/internal/config"
	"src2purl/internal/logging"
)

// ErrCacheDisabled reports a cache command run with caching turned off.
var ErrCacheDisabled = errors.New("response cache is disabled")

// OpenCache validates config and opens the configured response cache.
func OpenCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Store, error) {
	if cfg == nil || !cfg.Cache.Enabled {
		return nil, ErrCacheDisabled
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	store, err := cache.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return store, nil
}

// ReadCacheStats opens the cache, reads its statistics, and closes it.
func ReadCacheStats(ctx context.Context, cfg *config.Config, logger *slog.Logger) (CacheStats, error) {
	store, err := OpenCache(ctx, cfg, logger)
	if err != nil {
		return CacheStats{}, err
	}
	defer store.Close()
	stats, err := store.Stats(ctx)
	if err != nil {
		return CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return FromCacheStats(stats), nil
}

// ClearCache removes every cached response and returns how many were dropped.
func ClearCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (int64, error) {
	store, err := OpenCache(ctx, cfg, logger)
	if err != nil {
		return 0, err
	}
	removed, clearErr := store.Clear(ctx)
	closeErr := store.Close()
	if clearErr != nil {
		return removed, fmt.Errorf("clear cache: %w", clearErr)
	}
	return removed, closeErr
}
