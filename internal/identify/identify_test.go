package identify_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"src2purl/internal/config"
	"src2purl/internal/identify"
	"src2purl/internal/logging"
	"src2purl/internal/provider"
	"src2purl/internal/rank"
	"src2purl/internal/swhid"
	"src2purl/internal/testsupport"
)

// fixture lays out <root>/widget (the start path) inside a parent that is a
// meaningful candidate of its own.
func fixture(t *testing.T) (start, parent string) {
	t.Helper()
	parent = t.TempDir()
	testsupport.WriteTree(t, parent, map[string]string{
		"a.py": "a = 1\n",
		"b.py": "b = 2\n",
		"c.py": "c = 3\n",
	})
	start = testsupport.PythonPackage(t, parent, "widget")
	if resolved, err := filepath.EvalSymlinks(start); err == nil {
		start = resolved
	}
	if resolved, err := filepath.EvalSymlinks(parent); err == nil {
		parent = resolved
	}
	return start, parent
}

// newConfig limits the ancestor walk to the fixture's parent.
func newConfig(t *testing.T, strategies ...string) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStrategies(strategies...))
	cfg.Scan.MaxDepth = 1
	return cfg
}

func newIdentifier(t *testing.T, cfg *config.Config, providers ...*testsupport.FakeProvider) *identify.Identifier {
	t.Helper()
	reg := provider.NewRegistry(logging.NewNop())
	for _, p := range providers {
		reg.Register(p.Name(), p.Factory())
	}
	t.Cleanup(func() { _ = reg.Close() })
	id := identify.New(cfg, logging.NewNop(), identify.WithRegistry(reg))
	t.Cleanup(func() { _ = id.Close() })
	return id
}

func TestIdentifyEarlyTermination(t *testing.T) {
	start, parent := fixture(t)
	cfg := newConfig(t, config.StrategySWH, config.StrategyGitHub)

	exact := testsupport.NewFakeProvider(config.StrategySWH, provider.MatchExact)
	exact.Hits[start] = []provider.RawHit{{
		OriginURL:  "https://github.com/pallets/flask",
		Kind:       provider.MatchExact,
		VisitCount: 50,
		LastSeen:   time.Now(),
	}}
	exact.Default = []provider.RawHit{{OriginURL: "https://github.com/someone/other", Kind: provider.MatchExact}}
	fuzzy := testsupport.NewFakeProvider(config.StrategyGitHub, provider.MatchFuzzy)

	var progress []identify.Progress
	reg := provider.NewRegistry(logging.NewNop())
	reg.Register(exact.Name(), exact.Factory())
	reg.Register(fuzzy.Name(), fuzzy.Factory())
	id := identify.New(cfg, logging.NewNop(), identify.WithRegistry(reg),
		identify.WithProgress(func(p identify.Progress) { progress = append(progress, p) }))

	res, err := id.Identify(context.Background(), start)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(res.Candidates) < 2 {
		t.Fatalf("expected parent candidate too, got %+v", res.Candidates)
	}
	if calls := exact.Calls(); !slices.Equal(calls, []string{start}) {
		t.Fatalf("exact calls = %v, parent %s must not be queried", calls, parent)
	}
	if calls := fuzzy.Calls(); len(calls) != 0 {
		t.Fatalf("fuzzy calls = %v", calls)
	}
	if !res.Terminated || res.TerminatedBy != config.StrategySWH {
		t.Fatalf("terminated=%v by %q", res.Terminated, res.TerminatedBy)
	}
	if len(res.Matches) != 1 {
		t.Fatalf("got %d matches", len(res.Matches))
	}
	m := res.Matches[0]
	if m.Purl != "pkg:github/pallets/flask" || !m.Official || m.Confidence != 1 {
		t.Fatalf("match %+v", m)
	}
	if m.SourceURL != "https://github.com/pallets/flask" || m.Provider != config.StrategySWH {
		t.Fatalf("match %+v", m)
	}
	if res.RunID == "" || res.Path != start {
		t.Fatalf("run id %q path %q", res.RunID, res.Path)
	}
	if last := progress[len(progress)-1]; last.Done != last.Total {
		t.Fatalf("progress %+v", progress)
	}
}

func TestIdentifyFuzzyOnlyWithoutExactHit(t *testing.T) {
	start, parent := fixture(t)
	cfg := newConfig(t, config.StrategyGitHub, config.StrategySWH)

	exact := testsupport.NewFakeProvider(config.StrategySWH, provider.MatchExact)
	exact.Hits[parent] = []provider.RawHit{{OriginURL: "https://example.org/mirror/parent", Kind: provider.MatchExact}}
	fuzzy := testsupport.NewFakeProvider(config.StrategyGitHub, provider.MatchFuzzy)
	fuzzy.Default = []provider.RawHit{{OriginURL: "https://github.com/acme/widget", Kind: provider.MatchFuzzy, Similarity: 1}}

	res, err := newIdentifier(t, cfg, exact, fuzzy).Identify(context.Background(), start)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if calls := fuzzy.Calls(); !slices.Equal(calls, []string{start}) {
		t.Fatalf("fuzzy calls = %v", calls)
	}
	if len(exact.Calls()) != len(res.Candidates) {
		t.Fatalf("exact strategy must see every candidate: %v", exact.Calls())
	}
	if res.Terminated {
		t.Fatal("unexpected termination")
	}
	if !slices.Equal(res.StrategiesRun, []string{config.StrategySWH, config.StrategyGitHub}) {
		t.Fatalf("strategies run %v", res.StrategiesRun)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("got %+v", res.Matches)
	}
	// exact base 0.9 outranks fuzzy base 0.5 when neither is official
	if res.Matches[0].Kind != provider.MatchExact || res.Matches[1].Purl != "" {
		t.Fatalf("order %+v", res.Matches)
	}
}

func TestIdentifyNoFuzzyWhenDisabled(t *testing.T) {
	start, _ := fixture(t)
	cfg := newConfig(t, config.StrategyGitHub)
	cfg.Strategies.EnableFuzzy = false
	fuzzy := testsupport.NewFakeProvider(config.StrategyGitHub, provider.MatchFuzzy)

	res, err := newIdentifier(t, cfg, fuzzy).Identify(context.Background(), start)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(fuzzy.Calls()) != 0 || len(res.StrategiesRun) != 0 {
		t.Fatalf("fuzzy ran: %v", fuzzy.Calls())
	}
	if res.Matches == nil || len(res.Matches) != 0 {
		t.Fatalf("matches %#v", res.Matches)
	}
}

func TestIdentifyThresholds(t *testing.T) {
	start, _ := fixture(t)
	cfg := newConfig(t, config.StrategyWebSearch)
	cfg.Thresholds.ReportMatch = 0.45
	fuzzy := testsupport.NewFakeProvider(config.StrategyWebSearch, provider.MatchFuzzy)
	fuzzy.Default = []provider.RawHit{
		// below fuzzy_consideration
		{OriginURL: "https://github.com/a/low", Kind: provider.MatchFuzzy, Similarity: 0.4},
		// 0.5*0.6 + 0.1 recency + 0.1*1/11 popularity stays under 0.45
		{OriginURL: "https://github.com/b/mid", Kind: provider.MatchFuzzy, Similarity: 0.6},
		{OriginURL: "https://github.com/c/high", Kind: provider.MatchFuzzy, Similarity: 0.9},
	}

	res, err := newIdentifier(t, cfg, fuzzy).Identify(context.Background(), start)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].DownloadURL != "https://github.com/c/high" {
		t.Fatalf("matches %+v", res.Matches)
	}
	if res.Threshold != 0.45 {
		t.Fatalf("threshold %v", res.Threshold)
	}
}

func TestIdentifyAbsorbsProviderErrors(t *testing.T) {
	start, parent := fixture(t)
	cfg := newConfig(t, config.StrategySWH, "missing")
	exact := testsupport.NewFakeProvider(config.StrategySWH, provider.MatchExact)
	exact.Errs[start] = provider.Wrap(provider.ErrTransient, config.StrategySWH, "directory", "boom", nil)
	exact.Hits[parent] = []provider.RawHit{{OriginURL: "https://gitlab.com/group/project", Kind: provider.MatchExact}}

	res, err := newIdentifier(t, cfg, exact).Identify(context.Background(), start)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if !slices.Contains(res.StrategiesFailed, config.StrategySWH) || !slices.Contains(res.StrategiesFailed, "missing") {
		t.Fatalf("failed %v", res.StrategiesFailed)
	}
	if !slices.Equal(res.StrategiesRun, []string{config.StrategySWH}) {
		t.Fatalf("run %v", res.StrategiesRun)
	}
	if len(res.Matches) != 1 || res.Matches[0].DownloadURL != "https://gitlab.com/group/project" {
		t.Fatalf("matches %+v", res.Matches)
	}
}

func TestIdentifyContractViolationDisablesStrategy(t *testing.T) {
	start, parent := fixture(t)
	cfg := newConfig(t, config.StrategySWH)
	exact := testsupport.NewFakeProvider(config.StrategySWH, provider.MatchExact)
	exact.Errs[start] = provider.Wrap(provider.ErrContract, config.StrategySWH, "directory", "bad id", nil)
	exact.Hits[parent] = []provider.RawHit{{OriginURL: "https://gitlab.com/group/project", Kind: provider.MatchExact}}

	res, err := newIdentifier(t, cfg, exact).Identify(context.Background(), start)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if calls := exact.Calls(); !slices.Equal(calls, []string{start}) {
		t.Fatalf("calls %v", calls)
	}
	if len(res.Matches) != 0 {
		t.Fatalf("matches %+v", res.Matches)
	}
}

func TestIdentifyDedupKeepsStrongest(t *testing.T) {
	start, parent := fixture(t)
	cfg := newConfig(t, config.StrategySWH)
	exact := testsupport.NewFakeProvider(config.StrategySWH, provider.MatchExact)
	exact.Hits[start] = []provider.RawHit{{
		OriginURL:  "https://github.com/acme/widget/tree/v1.0",
		Kind:       provider.MatchExact,
		VisitCount: 1,
		LastSeen:   time.Now().AddDate(-10, 0, 0),
	}}
	exact.Hits[parent] = []provider.RawHit{{OriginURL: "https://github.com/acme/widget", Kind: provider.MatchExact, VisitCount: 9}}

	res, err := newIdentifier(t, cfg, exact).Identify(context.Background(), start)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(res.Matches) != 1 || res.Matches[0].VisitCount != 9 {
		t.Fatalf("matches %+v", res.Matches)
	}
}

type stubEnhancer struct{ dir string }

func (s *stubEnhancer) Enhance(_ context.Context, dir string, matches []rank.ScoredMatch) []rank.ScoredMatch {
	s.dir = dir
	out := append([]rank.ScoredMatch(nil), matches...)
	for i := range out {
		out[i].License = "MIT"
	}
	return out
}

func TestIdentifyLicenseEnhancement(t *testing.T) {
	start, _ := fixture(t)
	cfg := newConfig(t, config.StrategySWH)
	cfg.Strategies.EnhanceLicenses = true
	exact := testsupport.NewFakeProvider(config.StrategySWH, provider.MatchExact)
	exact.Default = []provider.RawHit{{OriginURL: "https://github.com/acme/widget", Kind: provider.MatchExact}}

	reg := provider.NewRegistry(logging.NewNop())
	reg.Register(exact.Name(), exact.Factory())
	enhancer := &stubEnhancer{}
	id := identify.New(cfg, logging.NewNop(), identify.WithRegistry(reg), identify.WithLicenses(enhancer))
	res, err := id.Identify(context.Background(), start)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if enhancer.dir != start || res.Matches[0].License != "MIT" {
		t.Fatalf("dir %q matches %+v", enhancer.dir, res.Matches)
	}
}

func TestIdentifyMissingPath(t *testing.T) {
	cfg := newConfig(t)
	_, err := newIdentifier(t, cfg).Identify(context.Background(), filepath.Join(t.TempDir(), "gone"))
	if !errors.Is(err, swhid.ErrNotExist) {
		t.Fatalf("err = %v", err)
	}
}

func TestIdentifyCanceled(t *testing.T) {
	start, _ := fixture(t)
	cfg := newConfig(t, config.StrategySWH)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exact := testsupport.NewFakeProvider(config.StrategySWH, provider.MatchExact)
	if _, err := newIdentifier(t, cfg, exact).Identify(ctx, start); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestIdentifyBuildsProvidersFromConfig(t *testing.T) {
	start, _ := fixture(t)
	cfg := newConfig(t, config.StrategyManifest)
	testsupport.WriteTree(t, start, map[string]string{
		"package.json": `{"name":"widget","version":"1.0.0","repository":"github:acme/widget"}`,
	})
	id := identify.New(cfg, logging.NewNop())
	t.Cleanup(func() { _ = id.Close() })

	res, err := id.Identify(context.Background(), start)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(res.Matches) == 0 || res.Matches[0].DownloadURL != "https://github.com/acme/widget" {
		t.Fatalf("matches %+v", res.Matches)
	}
	if res.Matches[0].Version != "1.0.0" {
		t.Fatalf("version %q", res.Matches[0].Version)
	}
}

func TestIdentifyDiscussionOriginsGetNoPurl(t *testing.T) {
	tests := []struct {
		name   string
		origin string
	}{
		{"pull request", "https://github.com/pallets/flask/pull/5123"},
		{"issue", "https://github.com/pallets/flask/issues/42"},
		{"wiki", "https://github.com/pallets/flask/wiki/Home"},
		{"merge request", "https://gitlab.com/group/project/-/merge_requests/7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, _ := fixture(t)
			cfg := newConfig(t, config.StrategySWH)
			exact := testsupport.NewFakeProvider(config.StrategySWH, provider.MatchExact)
			exact.Hits[start] = []provider.RawHit{{
				OriginURL:  tt.origin,
				Kind:       provider.MatchExact,
				VisitCount: 50,
				LastSeen:   time.Now(),
			}}
			id := newIdentifier(t, cfg, exact)

			res, err := id.Identify(context.Background(), start)
			if err != nil {
				t.Fatalf("Identify: %v", err)
			}
			if len(res.Matches) != 1 {
				t.Fatalf("got %d matches", len(res.Matches))
			}
			m := res.Matches[0]
			if m.Purl != "" {
				t.Fatalf("purl = %q, want none for %s", m.Purl, tt.origin)
			}
			if m.DownloadURL != tt.origin {
				t.Fatalf("download url = %q, want %q", m.DownloadURL, tt.origin)
			}
		})
	}
}
