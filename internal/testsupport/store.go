package testsupport

import (
	"context"
	"testing"

	"src2purl/internal/cache"
	"src2purl/internal/config"
	"src2purl/internal/logging"
)

// MustOpenCache opens the configured cache backend and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) cache.Store {
	t.Helper()

	store, err := cache.Open(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
