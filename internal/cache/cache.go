package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"src2purl/internal/config"
	"src2purl/internal/logging"
)

// ErrClosed reports use of a store after Close.
var ErrClosed = errors.New("cache closed")

// Store is a response cache. Reads and writes are atomic per key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) (int64, error)
	Close() error
}

// Stats summarises cache contents for `cache stats`.
type Stats struct {
	Backend   string
	Location  string
	Entries   int64
	Expired   int64
	SizeBytes int64
	TTL       time.Duration
}

// Key serialises an endpoint and its parameters deterministically.
// Parameter order never affects the key.
func Key(endpoint string, params map[string]string) string {
	endpoint = strings.TrimSpace(endpoint)
	if len(params) == 0 {
		return endpoint + ":{}"
	}
	// encoding/json writes map keys in sorted order
	data, err := json.Marshal(params)
	if err != nil {
		return endpoint + ":" + fmt.Sprint(params)
	}
	return endpoint + ":" + string(data)
}

// Open builds the store selected by cfg.Cache. Disabled caching yields Nop.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil || !cfg.Cache.Enabled {
		return Nop{}, nil
	}
	logger = logging.NewComponentLogger(logger, "cache")
	ttl := cfg.CacheTTL()

	switch cfg.Cache.Backend {
	case config.CacheBackendMemory:
		return NewMemory(ttl), nil
	case config.CacheBackendRedis:
		store, err := NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			DB:       cfg.Cache.RedisDB,
			Username: cfg.Cache.RedisUsername,
			Password: cfg.Cache.RedisPassword,
			Prefix:   cfg.Cache.RedisPrefix,
			TTL:      ttl,
		})
		if err != nil {
			return nil, err
		}
		logger.Debug("redis cache ready", logging.String("addr", cfg.Cache.RedisAddr))
		return store, nil
	case config.CacheBackendSQLite, "":
		store, err := OpenSQLite(ctx, cfg.Cache.Path, ttl, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Cache.Backend)
	}
}

// Nop is the store used when caching is disabled.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []byte) error { return nil }

func (Nop) Stats(context.Context) (Stats, error) { return Stats{Backend: "disabled"}, nil }

func (Nop) Clear(context.Context) (int64, error) { return 0, nil }

func (Nop) Close() error { return nil }
