package github_test

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"src2purl/internal/logging"
	"src2purl/internal/provider"
	"src2purl/internal/providers/github"
	"src2purl/internal/scan"
	"src2purl/internal/testsupport"
)

func TestFindSearchesByHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/repositories" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "flask in:name" {
			t.Errorf("query = %q", got)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing token")
		}
		_, _ = w.Write([]byte(`{"total_count":2,"items":[
			{"name":"flask","full_name":"pallets/flask","html_url":"https://github.com/pallets/flask","stargazers_count":65000,"pushed_at":"2024-05-01T10:00:00Z","license":{"spdx_id":"BSD-3-Clause"}},
			{"name":"flask-extras","full_name":"x/flask-extras","html_url":"https://github.com/x/flask-extras","stargazers_count":0,"license":{"spdx_id":"NOASSERTION"}}
		]}`))
	}))
	t.Cleanup(server.Close)

	p, err := github.New(server.URL, "tok", testsupport.NewEndpoint(t, github.Name), logging.NewNop(),
		github.WithHints(func(string) []string { return []string{"flask", "ignored"} }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	hits, err := p.Find(context.Background(), provider.NewCandidate(scan.DirectoryCandidate{Path: "/src/flask"}, nil))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits", len(hits))
	}
	if hits[0].Similarity != 1 || hits[0].VisitCount != 65000 || hits[0].Meta(provider.MetaLicense) != "BSD-3-Clause" || hits[0].LastSeen.IsZero() {
		t.Fatalf("first hit %+v", hits[0])
	}
	if math.Abs(hits[1].Similarity-0.5) > 1e-9 || hits[1].VisitCount != 1 || hits[1].Meta(provider.MetaLicense) != "" {
		t.Fatalf("second hit %+v", hits[1])
	}
	if hits[0].Kind != provider.MatchFuzzy {
		t.Fatalf("kind %v", hits[0].Kind)
	}
}

func TestFindWithoutHints(t *testing.T) {
	p, err := github.New("http://127.0.0.1:1", "", testsupport.NewEndpoint(t, github.Name), logging.NewNop(),
		github.WithHints(func(string) []string { return nil }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	hits, err := p.Find(context.Background(), provider.NewCandidate(scan.DirectoryCandidate{Path: "/"}, nil))
	if err != nil || len(hits) != 0 {
		t.Fatalf("hits=%v err=%v", hits, err)
	}
}

func TestFindRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	p, err := github.New(server.URL, "", testsupport.NewEndpoint(t, github.Name), logging.NewNop(),
		github.WithHints(func(string) []string { return []string{"x"} }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Find(context.Background(), provider.NewCandidate(scan.DirectoryCandidate{Path: "/x"}, nil))
	if !errors.Is(err, provider.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}
