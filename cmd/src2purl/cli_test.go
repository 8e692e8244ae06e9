package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"src2purl/internal/api"
	"src2purl/internal/cache"
	"src2purl/internal/config"
	"src2purl/internal/logging"
	"src2purl/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	cachePath  string
	project    string
}

// setupCLITestEnv writes a config limited to the local manifest strategy and
// a widget project carrying a package.json.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "xdg-cache"))

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "src2purl.toml"),
		cachePath:  filepath.Join(base, "cache", "cache.db"),
	}
	writeTestConfig(t, env.configPath, env.cachePath)

	env.project = testsupport.PythonPackage(t, filepath.Join(base, "src"), "widget")
	testsupport.WriteTree(t, env.project, map[string]string{
		"package.json": `{"name":"widget","version":"1.2.0","repository":"https://github.com/acme/widget"}`,
	})
	return env
}

func writeTestConfig(t *testing.T, path, cachePath string) {
	t.Helper()
	content := fmt.Sprintf(`[strategies]
order = ["manifest"]

[cache]
backend = "sqlite"
path = %q

[logging]
level = "error"
`, cachePath)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, int) {
	t.Helper()
	return runCLIContext(t, context.Background(), configPath, args...)
}

func runCLIContext(t *testing.T, ctx context.Context, configPath string, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	code := run(ctx, append(flags, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func decodeReport(t *testing.T, out string) api.Report {
	t.Helper()
	var report api.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	return report
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(env.baseDir, "generated", "config.toml")
	out, stderr, code := runCLI(t, "", "config", "init", "--path", target)
	if code != 0 {
		t.Fatalf("config init exit %d: %s", code, stderr)
	}
	requireContains(t, out, "Wrote sample configuration")

	out, stderr, code = runCLI(t, target, "config", "validate")
	if code != 0 {
		t.Fatalf("config validate exit %d: %s", code, stderr)
	}
	requireContains(t, out, "Config path: "+target)
	requireContains(t, out, "Configuration valid")

	_, stderr, code = runCLI(t, "", "config", "init", "--path", target)
	if code != 1 {
		t.Fatalf("second init exit %d", code)
	}
	requireContains(t, stderr, "already exists")

	if _, _, code := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); code != 0 {
		t.Fatalf("overwrite exit %d", code)
	}
}

func TestConfigValidateRejectsBadConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	bad := filepath.Join(env.baseDir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[thresholds]\nreport_match = 2.0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, stderr, code := runCLI(t, bad, "config", "validate")
	if code != 1 {
		t.Fatalf("exit %d", code)
	}
	requireContains(t, stderr, "thresholds.report_match")
	if lines := strings.Count(strings.TrimSpace(stderr), "\n"); lines != 0 {
		t.Fatalf("expected one error line, got %q", stderr)
	}
}

func TestIdentifyJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, stderr, code := runCLI(t, env.configPath, "identify", env.project, "--output-format", "json", "--max-depth", "0")
	if code != 0 {
		t.Fatalf("identify exit %d: %s", code, stderr)
	}
	report := decodeReport(t, out)
	if report.Count == 0 || report.Count != len(report.Matches) {
		t.Fatalf("report = %+v", report)
	}
	m := report.Matches[0]
	if m.Name != "widget" || m.Version != "1.2.0" || m.URL != "https://github.com/acme/widget" || m.Type != "fuzzy" {
		t.Fatalf("match = %+v", m)
	}
	if m.Explain != nil {
		t.Fatal("explain must be opt-in")
	}
	if report.Threshold != 0.3 || len(report.StrategiesRun) != 1 || report.StrategiesRun[0] != config.StrategyManifest {
		t.Fatalf("report = %+v", report)
	}
}

func TestRootRunsIdentifyWithPathArg(t *testing.T) {
	env := setupCLITestEnv(t)

	out, stderr, code := runCLI(t, env.configPath, env.project, "-o", "json", "--max-depth", "0", "--explain", "--confidence-threshold", "0.1")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	report := decodeReport(t, out)
	if report.Threshold != 0.1 || report.Count == 0 || report.Matches[0].Explain == nil {
		t.Fatalf("report = %+v", report)
	}
	if report.Matches[0].Explain.Provider != config.StrategyManifest {
		t.Fatalf("explain = %+v", report.Matches[0].Explain)
	}
}

func TestIdentifyTable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, stderr, code := runCLI(t, env.configPath, "identify", env.project, "--max-depth", "0")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	requireContains(t, out, "widget")
	requireContains(t, out, "1.2.0")
	requireContains(t, out, "Strategies run: manifest")
}

func TestIdentifyNoMatchesStillReportsStrategies(t *testing.T) {
	env := setupCLITestEnv(t)
	bare := testsupport.PythonPackage(t, filepath.Join(env.baseDir, "bare"), "plain")

	out, stderr, code := runCLI(t, env.configPath, "identify", bare, "--max-depth", "0")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	requireContains(t, out, "No package matches found.")
	requireContains(t, out, "Strategies run:")

	out, _, code = runCLI(t, env.configPath, "identify", bare, "--max-depth", "0", "-o", "json")
	if code != 0 {
		t.Fatalf("json exit %d", code)
	}
	if report := decodeReport(t, out); report.Count != 0 || report.Matches == nil {
		t.Fatalf("report = %+v", report)
	}
}

func TestIdentifyErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing path", []string{"identify", filepath.Join(env.baseDir, "nope")}, "does not exist"},
		{"bad format", []string{"identify", env.project, "-o", "yaml"}, "unsupported output format"},
		{"unknown strategy", []string{"identify", env.project, "--strategies", "bogus"}, "unknown strategy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runCLI(t, env.configPath, tt.args...)
			if code != 1 {
				t.Fatalf("exit %d", code)
			}
			requireContains(t, stderr, "Error:")
			requireContains(t, stderr, tt.want)
		})
	}
}

func TestIdentifyInterruptedExits130(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, stderr, code := runCLIContext(t, ctx, env.configPath, "identify", env.project)
	if code != exitInterrupted {
		t.Fatalf("exit %d, stderr %q", code, stderr)
	}
	requireContains(t, stderr, "interrupted")
}

func TestIdentifyWritesMetricsFile(t *testing.T) {
	env := setupCLITestEnv(t)
	metricsPath := filepath.Join(env.baseDir, "metrics", "src2purl.prom")

	_, stderr, code := runCLI(t, env.configPath, "identify", env.project, "--max-depth", "0", "--metrics-file", metricsPath, "-o", "json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	requireContains(t, string(data), "src2purl_candidates_scanned_total 1")
	requireContains(t, string(data), "src2purl_matches_reported_total")
}

func TestCacheStatsAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	ctx := context.Background()
	store, err := cache.Open(ctx, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	for _, key := range []string{"swh:{}", "github:{}", "scanoss:{}"} {
		if err := store.Set(ctx, key, []byte(`{"ok":true}`)); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out, stderr, code := runCLI(t, env.configPath, "cache", "stats")
	if code != 0 {
		t.Fatalf("stats exit %d: %s", code, stderr)
	}
	requireContains(t, out, "Backend:  sqlite")
	requireContains(t, out, "Entries:  3")
	requireContains(t, out, env.cachePath)

	out, stderr, code = runCLI(t, env.configPath, "cache", "clear")
	if code != 0 {
		t.Fatalf("clear exit %d: %s", code, stderr)
	}
	requireContains(t, out, "Removed 3 cached responses")

	out, _, _ = runCLI(t, env.configPath, "cache", "stats", "--json")
	var stats api.CacheStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v\n%s", err, out)
	}
	if stats.Entries != 0 {
		t.Fatalf("stats after clear = %+v", stats)
	}
}

func TestIdentifyClearCacheFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	ctx := context.Background()
	store, err := cache.Open(ctx, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	if err := store.Set(ctx, "swh:{}", []byte(`{}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = store.Close()

	if _, stderr, code := runCLI(t, env.configPath, "identify", env.project, "--clear-cache", "--max-depth", "0", "-o", "json"); code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	out, _, _ := runCLI(t, env.configPath, "cache", "stats", "--json")
	var stats api.CacheStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil || stats.Entries != 0 {
		t.Fatalf("stats = %+v err = %v", stats, err)
	}
}

func TestDoctorReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	out, stderr, code := runCLI(t, env.configPath, "doctor")
	if code != 0 {
		t.Fatalf("doctor exit %d: %s", code, stderr)
	}
	for _, want := range []string{"Manifest", "OK", "local", "Cache", "License detector", "Config: " + env.configPath} {
		requireContains(t, out, want)
	}
}

func TestDoctorFailsOnMissingRequiredDetector(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "strict.toml")
	content := fmt.Sprintf(`[strategies]
order = ["manifest"]
enhance_licenses = true

[license]
command = "clearly-not-present-binary"

[cache]
backend = "sqlite"
path = %q
`, env.cachePath)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, stderr, code := runCLI(t, path, "doctor")
	if code != 1 {
		t.Fatalf("doctor exit %d", code)
	}
	requireContains(t, out, "ERROR")
	requireContains(t, out, `binary "clearly-not-present-binary" not found`)
	requireContains(t, stderr, "required checks failed")
}

func TestVersionFlag(t *testing.T) {
	out, stderr, code := runCLI(t, "", "--version")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	requireContains(t, out, "src2purl version "+buildVersion())
}
