package testsupport

import (
	"testing"
	"time"

	"src2purl/internal/cache"
	"src2purl/internal/gateway"
)

// NewEndpoint returns an unthrottled endpoint on a private gateway with
// millisecond backoffs, one retry, and no response cache.
func NewEndpoint(t testing.TB, name string) *gateway.Endpoint {
	t.Helper()
	return NewGateway(t, cache.Nop{}).Endpoint(name, 0)
}

// NewGateway returns a gateway for tests backed by store.
func NewGateway(t testing.TB, store cache.Store) *gateway.Gateway {
	t.Helper()
	g := gateway.New(gateway.Options{
		MaxInFlight:       4,
		Timeout:           2 * time.Second,
		MaxRetries:        1,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		DefaultRetryAfter: time.Millisecond,
		Cache:             store,
	})
	t.Cleanup(func() { _ = g.Close() })
	return g
}
