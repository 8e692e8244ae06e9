package coords

import (
	"testing"

	"src2purl/internal/provider"
)

func TestExtractForgeURLs(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		origin  string
		name    string
		version string
		url     string
	}{
		{"https://github.com/pallets/flask", "flask", "", "https://github.com/pallets/flask"},
		{"https://www.github.com/pallets/flask.git", "flask", "", "https://www.github.com/pallets/flask"},
		{"https://github.com/pallets/flask/releases/tag/3.0.0", "flask", "3.0.0", "https://github.com/pallets/flask"},
		{"https://github.com/pallets/flask/tree/v2.3.1", "flask", "v2.3.1", "https://github.com/pallets/flask"},
		{"https://github.com/pallets/flask/tree/main", "flask", "", "https://github.com/pallets/flask"},
		{"https://github.com/pallets/flask/archive/refs/tags/1.2.tar.gz", "flask", "1.2", "https://github.com/pallets/flask"},
		{"https://gitlab.com/group/project/-/tags/4.1", "project", "4.1", "https://gitlab.com/group/project"},
		{"git@github.com:torvalds/linux.git", "linux", "", "https://github.com/torvalds/linux"},
		{"https://git.sr.ht/~sircmpwn/hare", "hare", "", "https://git.sr.ht/~sircmpwn/hare"},
	}
	for _, tt := range tests {
		got := e.Extract(provider.RawHit{OriginURL: tt.origin})
		if got.Name != tt.name || got.Version != tt.version || got.DownloadURL != tt.url {
			t.Errorf("Extract(%q) = %+v", tt.origin, got)
		}
	}
}

func TestExtractKeepsDiscussionPaths(t *testing.T) {
	e := NewExtractor()
	for _, origin := range []string{
		"https://github.com/pallets/flask/pull/5123",
		"https://github.com/pallets/flask/issues/42",
		"https://github.com/pallets/flask/wiki/Home",
		"https://gitlab.com/group/project/-/merge_requests/7",
	} {
		got := e.Extract(provider.RawHit{OriginURL: origin})
		if got.DownloadURL != origin {
			t.Errorf("Extract(%q).DownloadURL = %q, want the origin unchanged", origin, got.DownloadURL)
		}
		loc, ok := Parse(got.DownloadURL)
		if !ok || !loc.Discussion() {
			t.Errorf("Parse(%q).Discussion() = false", got.DownloadURL)
		}
	}
	if loc, _ := Parse("https://github.com/pallets/flask/tree/main"); loc.Discussion() {
		t.Error("tree path reported as discussion")
	}
}

func TestExtractRegistryURLs(t *testing.T) {
	e := NewExtractor()
	tests := []struct {
		origin  string
		name    string
		version string
	}{
		{"https://pypi.org/project/requests/2.31.0/", "requests", "2.31.0"},
		{"https://www.npmjs.com/package/@angular/core", "@angular/core", ""},
		{"https://registry.npmjs.org/express/4.18.2", "express", "4.18.2"},
		{"https://crates.io/crates/serde/1.0.0", "serde", "1.0.0"},
		{"https://rubygems.org/gems/rails/versions/7.1.0", "rails", "7.1.0"},
		{"https://pkg.go.dev/github.com/spf13/cobra@v1.8.0", "cobra", "v1.8.0"},
		{"https://repo1.maven.org/maven2/org/apache/commons/commons-lang3/3.14.0", "commons-lang3", "3.14.0"},
	}
	for _, tt := range tests {
		got := e.Extract(provider.RawHit{OriginURL: tt.origin})
		if got.Name != tt.name || got.Version != tt.version {
			t.Errorf("Extract(%q) = %+v", tt.origin, got)
		}
		if got.DownloadURL != tt.origin {
			t.Errorf("registry download url rewritten: %q", got.DownloadURL)
		}
	}
}

func TestExtractPrefersMetadata(t *testing.T) {
	hit := provider.RawHit{
		OriginURL: "https://github.com/psf/requests/releases/tag/v2.0.0",
		Metadata:  map[string]string{MetaName: "requests", MetaVersion: "2.31.0", MetaLicense: "Apache-2.0"},
	}
	got := NewExtractor().Extract(hit)
	if got.Name != "requests" || got.Version != "2.31.0" || got.License != "Apache-2.0" {
		t.Fatalf("got %+v", got)
	}
}

func TestExtractUnknownHost(t *testing.T) {
	got := NewExtractor().Extract(provider.RawHit{OriginURL: "https://example.org/code/widget.git"})
	if got.Name != "widget" || got.Version != "" || got.DownloadURL != "https://example.org/code/widget.git" {
		t.Fatalf("got %+v", got)
	}
	got = NewExtractor().Extract(provider.RawHit{OriginURL: "not a url"})
	if got.Name != "" || got.DownloadURL != "not a url" {
		t.Fatalf("got %+v", got)
	}
}

func TestIsOfficialOrganization(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"https://github.com/apache/kafka", true},
		{"https://github.com/Pallets/flask", true},
		{"https://github.com/curl/curl", true},
		{"https://github.com/someone/curl", false},
		{"https://github.com/libuv/libuv", true},
		{"https://git.kernel.org/pub/scm/git/git.git", true},
		{"https://gitlab.gnome.org/GNOME/gtk", true},
		{"https://chromium.googlesource.com/chromium/src", true},
		{"https://pypi.python.org/pypi/requests", false},
		{"https://example.com/apache/kafka", false},
		{"https://github.com/", false},
		{"", false},
		{"::::", false},
	}
	for _, tt := range tests {
		if got := IsOfficialOrganization(tt.origin); got != tt.want {
			t.Errorf("IsOfficialOrganization(%q) = %v want %v", tt.origin, got, tt.want)
		}
	}
}

func TestCanonicalHost(t *testing.T) {
	if got := CanonicalHost("WWW.GitHub.com."); got != "github.com" {
		t.Fatalf("got %q", got)
	}
}
