package testsupport

import (
	"context"
	"sync"

	"src2purl/internal/provider"
)

// FakeProvider is a scriptable provider for orchestrator and CLI tests.
// Hits and Errs are keyed by candidate path; Default applies to other paths.
type FakeProvider struct {
	NameValue string
	KindValue provider.MatchKind
	Hits      map[string][]provider.RawHit
	Errs      map[string]error
	Default   []provider.RawHit

	mu     sync.Mutex
	calls  []string
	closed int
}

// NewFakeProvider returns an empty fake with the given name and kind.
func NewFakeProvider(name string, kind provider.MatchKind) *FakeProvider {
	return &FakeProvider{
		NameValue: name,
		KindValue: kind,
		Hits:      make(map[string][]provider.RawHit),
		Errs:      make(map[string]error),
	}
}

func (f *FakeProvider) Name() string { return f.NameValue }

func (f *FakeProvider) Kind() provider.MatchKind { return f.KindValue }

func (f *FakeProvider) Find(ctx context.Context, c provider.Candidate) ([]provider.RawHit, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c.Path)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.Errs[c.Path]; ok {
		return nil, err
	}
	if hits, ok := f.Hits[c.Path]; ok {
		return hits, nil
	}
	return f.Default, nil
}

func (f *FakeProvider) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// Calls returns the candidate paths queried so far.
func (f *FakeProvider) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CloseCount reports how many times Close ran.
func (f *FakeProvider) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Factory adapts the fake to provider.Factory.
func (f *FakeProvider) Factory() provider.Factory {
	return func(context.Context) (provider.Provider, error) { return f, nil }
}
