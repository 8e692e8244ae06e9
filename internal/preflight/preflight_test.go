package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"src2purl/internal/config"
	"src2purl/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		status int
		pass   bool
		detail string
	}{
		{"ok", http.StatusOK, true, "Reachable"},
		{"not found still reachable", http.StatusNotFound, true, "Reachable"},
		{"rate limited", http.StatusTooManyRequests, true, "rate limited"},
		{"unauthorized", http.StatusUnauthorized, false, "auth failed (401)"},
		{"server error", http.StatusBadGateway, false, "unhealthy (502)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			result := CheckEndpoint(context.Background(), "GitHub", srv.URL, nil)
			if result.Passed != tt.pass {
				t.Fatalf("passed = %v, detail %q", result.Passed, result.Detail)
			}
			if !strings.Contains(result.Detail, tt.detail) {
				t.Fatalf("detail = %q, want %q", result.Detail, tt.detail)
			}
		})
	}
}

func TestCheckEndpoint_SendsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckEndpoint(context.Background(), "Software Heritage", srv.URL, bearer("secret"))
	if !result.Passed || !strings.Contains(result.Detail, "token set") {
		t.Fatalf("result = %+v", result)
	}
}

func TestCheckEndpoint_MissingURL(t *testing.T) {
	if result := CheckEndpoint(context.Background(), "SCANOSS", " ", nil); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckEndpoint_Unreachable(t *testing.T) {
	result := CheckEndpoint(context.Background(), "SCANOSS", "http://127.0.0.1:1", nil)
	if result.Passed || !strings.Contains(result.Detail, "unreachable") {
		t.Fatalf("result = %+v", result)
	}
}

func TestCheckLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid key","type":"invalid_request_error"}}`))
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/models") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o-mini","object":"model"}]}`))
	}))
	defer srv.Close()

	ok := CheckLLM(context.Background(), "LLM hints", config.LLM{APIKey: "good-key", BaseURL: srv.URL + "/v1"})
	if !ok.Passed {
		t.Fatalf("expected pass, got %q", ok.Detail)
	}

	bad := CheckLLM(context.Background(), "LLM hints", config.LLM{APIKey: "bad-key", BaseURL: srv.URL + "/v1"})
	if bad.Passed || bad.Detail != "auth failed (invalid api key)" {
		t.Fatalf("bad = %+v", bad)
	}

	missing := CheckLLM(context.Background(), "LLM hints", config.LLM{BaseURL: srv.URL})
	if missing.Passed || missing.Detail != "API key missing" {
		t.Fatalf("missing = %+v", missing)
	}
}

func TestCheckCache(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if result := CheckCache(context.Background(), cfg); !result.Passed {
		t.Fatalf("memory cache: %+v", result)
	}

	cfg.Cache.Enabled = false
	if result := CheckCache(context.Background(), cfg); !result.Passed || result.Detail != "disabled" {
		t.Fatalf("disabled cache: %+v", result)
	}

	cfg = testsupport.NewConfig(t, testsupport.WithSQLiteCache())
	result := CheckCache(context.Background(), cfg)
	if !result.Passed || !strings.Contains(result.Detail, "created on first use") {
		t.Fatalf("sqlite before first use: %+v", result)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Cache.Path), 0o755); err != nil {
		t.Fatal(err)
	}
	result = CheckCache(context.Background(), cfg)
	if !result.Passed || result.Detail != "sqlite "+cfg.Cache.Path {
		t.Fatalf("sqlite: %+v", result)
	}
}

func TestCheckLicenseDetector(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.License.Command = "clearly-not-present-binary"

	cfg.Strategies.EnhanceLicenses = false
	result := CheckLicenseDetector(cfg)
	if result.Passed || !result.Optional {
		t.Fatalf("optional detector: %+v", result)
	}
	if Failed([]Result{result}) {
		t.Fatal("optional failure must not fail the run")
	}

	cfg.Strategies.EnhanceLicenses = true
	result = CheckLicenseDetector(cfg)
	if result.Passed || result.Optional || !Failed([]Result{result}) {
		t.Fatalf("required detector: %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_FollowsStrategyOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithStrategies(config.StrategyManifest, config.StrategyGitHub, config.StrategySCANOSS),
		testsupport.WithProviderURL(config.StrategyGitHub, srv.URL),
	)

	results := RunAll(context.Background(), cfg)
	var names []string
	for _, r := range results {
		names = append(names, r.Name)
	}
	want := "Manifest,GitHub,SCANOSS,Cache,License detector"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("checks = %s, want %s", got, want)
	}
	if !results[1].Passed {
		t.Fatalf("GitHub check failed: %s", results[1].Detail)
	}
	if results[2].Passed {
		t.Fatal("SCANOSS points at an unroutable address and must fail")
	}
	if !Failed(results) {
		t.Fatal("expected overall failure")
	}
}
