package purl

import (
	"strings"
	"testing"

	"src2purl/internal/coords"
)

func TestGenerate(t *testing.T) {
	g := NewGenerator(0.85)
	tests := []struct {
		name string
		in   coords.Coordinates
		want string
	}{
		{"github version prefix", coords.Coordinates{Name: "test-repo", Version: "v1.0.0", DownloadURL: "https://github.com/owner/test-repo"}, "pkg:github/owner/test-repo@1.0.0"},
		{"github no version", coords.Coordinates{Name: "test-repo", DownloadURL: "https://github.com/owner/test-repo"}, "pkg:github/owner/test-repo"},
		{"github case folded", coords.Coordinates{Name: "Flask", DownloadURL: "https://github.com/Pallets/Flask"}, "pkg:github/pallets/flask"},
		{"pypi normalised", coords.Coordinates{Name: "Test_Package", Version: "2.0.0", DownloadURL: "https://pypi.org/project/test-package/"}, "pkg:pypi/test-package@2.0.0"},
		{"npm", coords.Coordinates{Name: "express", Version: "4.18.0", DownloadURL: "https://npmjs.org/package/express"}, "pkg:npm/express@4.18.0"},
		{"npm scoped", coords.Coordinates{Name: "@angular/core", Version: "15.0.0", DownloadURL: "https://npmjs.org/package/@angular/core"}, "pkg:npm/angular/core@15.0.0"},
		{"cargo", coords.Coordinates{Name: "serde", Version: "1.0.0", DownloadURL: "https://crates.io/crates/serde"}, "pkg:cargo/serde@1.0.0"},
		{"gitlab", coords.Coordinates{Name: "test-project", Version: "3.0.0", DownloadURL: "https://gitlab.com/group/test-project"}, "pkg:gitlab/group/test-project@3.0.0"},
		{"gem", coords.Coordinates{Name: "rails", Version: "7.1.0", DownloadURL: "https://rubygems.org/gems/rails"}, "pkg:gem/rails@7.1.0"},
		{"golang keeps v", coords.Coordinates{Name: "cobra", Version: "v1.8.0", DownloadURL: "https://pkg.go.dev/github.com/spf13/cobra"}, "pkg:golang/github.com/spf13/cobra@v1.8.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := g.Generate(tt.in, 0.9)
			if !ok || got != tt.want {
				t.Fatalf("got %q (%v) want %q", got, ok, tt.want)
			}
		})
	}
}

func TestGenerateRejects(t *testing.T) {
	g := NewGenerator(0.85)
	for _, u := range []string{
		"https://github.com/owner/repo/pull/123",
		"https://github.com/owner/repo/issues/456",
		"https://github.com/owner/repo/wiki/Page",
		"https://gitlab.com/group/repo/-/merge_requests/7",
		"not-a-url",
		"",
		"https://unknown-site.com/test",
		"https://github.com/owner",
	} {
		if got, ok := g.Generate(coords.Coordinates{Name: "test", DownloadURL: u}, 0.9); ok {
			t.Errorf("%q: unexpected purl %q", u, got)
		}
	}
	if _, ok := g.Generate(coords.Coordinates{DownloadURL: "https://github.com/owner/repo"}, 0.9); ok {
		t.Error("missing name should not produce a purl")
	}
	if _, ok := g.Generate(coords.Coordinates{Name: "test"}, 0.9); ok {
		t.Error("missing url should not produce a purl")
	}
}

func TestGenerateBelowThreshold(t *testing.T) {
	g := NewGenerator(0.85)
	c := coords.Coordinates{Name: "serde", Version: "1.0.0", DownloadURL: "https://crates.io/crates/serde"}
	for _, conf := range []float64{0, 0.5, 0.8499} {
		if _, ok := g.Generate(c, conf); ok {
			t.Fatalf("confidence %v produced a purl", conf)
		}
	}
	if _, ok := g.Generate(c, 0.85); !ok {
		t.Fatal("confidence equal to the threshold should produce a purl")
	}
}

func TestGenerateOtherForgeIsGeneric(t *testing.T) {
	got, ok := NewGenerator(0).Generate(coords.Coordinates{Name: "hare", DownloadURL: "https://codeberg.org/someone/hare"}, 1)
	if !ok || !strings.HasPrefix(got, "pkg:generic/hare?vcs_url=") {
		t.Fatalf("got %q", got)
	}
}
