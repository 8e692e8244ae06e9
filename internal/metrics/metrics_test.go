package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersRecord(t *testing.T) {
	m := New()
	m.ObserveProvider("swh", OutcomeOK, 120*time.Millisecond)
	m.ObserveProvider("swh", OutcomeOK, 0)
	m.CacheLookup("hit")
	m.CandidateScanned()
	m.CandidateScanned()
	m.EarlyTermination()
	m.MatchesReported(3)
	m.MatchesReported(0)

	if got := testutil.ToFloat64(m.providerRequests.WithLabelValues("swh", OutcomeOK)); got != 2 {
		t.Fatalf("provider_requests_total = %v", got)
	}
	if got := testutil.CollectAndCount(m.providerDuration); got != 1 {
		t.Fatalf("duration series = %d", got)
	}
	if got := testutil.ToFloat64(m.candidates); got != 2 {
		t.Fatalf("candidates_scanned_total = %v", got)
	}
	if got := testutil.ToFloat64(m.matches); got != 3 {
		t.Fatalf("matches_reported_total = %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveProvider("x", OutcomeOK, time.Second)
	m.CacheLookup("miss")
	m.CandidateScanned()
	m.EarlyTermination()
	m.MatchesReported(1)
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.EarlyTermination()
	path := filepath.Join(t.TempDir(), "out", "src2purl.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "src2purl_early_terminations_total 1") {
		t.Fatalf("textfile missing counter:\n%s", data)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", m.Handler())

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/healthz", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v", got)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if !strings.Contains(rr.Body.String(), "src2purl_http_requests_total") {
		t.Fatalf("exposition missing collector:\n%s", rr.Body.String())
	}
}
