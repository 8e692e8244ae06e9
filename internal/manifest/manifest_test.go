package manifest_test

import (
	"errors"
	"testing"

	"src2purl/internal/manifest"
	"src2purl/internal/testsupport"
)

func TestReadDescriptors(t *testing.T) {
	tests := []struct {
		file    string
		content string
		want    manifest.Manifest
	}{
		{"package.json", `{"name":"@scope/widget","version":"1.2.3","license":{"type":"MIT"},"repository":{"type":"git","url":"git+https://github.com/scope/widget.git"}}`,
			manifest.Manifest{Ecosystem: "npm", Name: "@scope/widget", Version: "1.2.3", License: "MIT", Repository: "https://github.com/scope/widget"}},
		{"package.json", `{"name":"tiny","repository":"github:someone/tiny"}`,
			manifest.Manifest{Ecosystem: "npm", Name: "tiny", Repository: "https://github.com/someone/tiny"}},
		{"Cargo.toml", "[package]\nname = \"serde\"\nversion = \"1.0.0\"\nlicense = \"MIT OR Apache-2.0\"\nrepository = \"https://github.com/serde-rs/serde\"\n",
			manifest.Manifest{Ecosystem: "cargo", Name: "serde", Version: "1.0.0", License: "MIT OR Apache-2.0", Repository: "https://github.com/serde-rs/serde"}},
		{"Cargo.toml", "[package]\nname = \"member\"\nversion = { workspace = true }\n",
			manifest.Manifest{Ecosystem: "cargo", Name: "member"}},
		{"pyproject.toml", "[project]\nname = \"requests\"\nversion = \"2.31.0\"\nlicense = {text = \"Apache-2.0\"}\n[project.urls]\nSource = \"https://github.com/psf/requests\"\nHomepage = \"https://requests.readthedocs.io\"\n",
			manifest.Manifest{Ecosystem: "pypi", Name: "requests", Version: "2.31.0", License: "Apache-2.0", Repository: "https://github.com/psf/requests", Homepage: "https://requests.readthedocs.io"}},
		{"pyproject.toml", "[tool.poetry]\nname = \"poet\"\nversion = \"0.1.0\"\nrepository = \"https://gitlab.com/x/poet\"\n",
			manifest.Manifest{Ecosystem: "pypi", Name: "poet", Version: "0.1.0", Repository: "https://gitlab.com/x/poet"}},
		{"setup.cfg", "[metadata]\nname = legacy\nversion = attr: legacy.__version__\nlicense = BSD\nurl = https://legacy.example.org\nproject_urls =\n    Source = https://github.com/org/legacy\n[options]\nname = ignored\n",
			manifest.Manifest{Ecosystem: "pypi", Name: "legacy", License: "BSD", Repository: "https://github.com/org/legacy", Homepage: "https://legacy.example.org"}},
		{"setup.py", "from setuptools import setup\nsetup(\n    name='demo',\n    version=\"0.3\",\n    url='https://github.com/a/demo',\n)\n",
			manifest.Manifest{Ecosystem: "pypi", Name: "demo", Version: "0.3", Homepage: "https://github.com/a/demo"}},
		{"go.mod", "module github.com/spf13/cobra/v2\n\ngo 1.21\n",
			manifest.Manifest{Ecosystem: "golang", Name: "cobra", Repository: "https://github.com/spf13/cobra"}},
		{"pom.xml", `<project><groupId>org.example</groupId><artifactId>lib</artifactId><version>2.0</version><licenses><license><name>Apache-2.0</name></license></licenses><scm><connection>scm:git:git@github.com:example/lib.git</connection></scm></project>`,
			manifest.Manifest{Ecosystem: "maven", Name: "lib", Version: "2.0", License: "Apache-2.0", Repository: "https://github.com/example/lib"}},
		{"composer.json", `{"name":"monolog/monolog","license":["MIT"],"support":{"source":"https://github.com/Seldaek/monolog/tree/3.5.0"}}`,
			manifest.Manifest{Ecosystem: "composer", Name: "monolog/monolog", License: "MIT", Repository: "https://github.com/Seldaek/monolog/tree/3.5.0"}},
		{"pubspec.yaml", "name: http\nversion: 1.1.0\nrepository: https://github.com/dart-lang/http\n",
			manifest.Manifest{Ecosystem: "pub", Name: "http", Version: "1.1.0", Repository: "https://github.com/dart-lang/http"}},
		{"Chart.yaml", "apiVersion: v2\nname: nginx\nversion: 15.0.0\nsources:\n  - https://github.com/bitnami/charts\n",
			manifest.Manifest{Ecosystem: "helm", Name: "nginx", Version: "15.0.0", Repository: "https://github.com/bitnami/charts"}},
		{"rake.gemspec", "Gem::Specification.new do |s|\n  s.name = \"rake\"\n  s.version = \"13.0\"\n  s.homepage = \"https://github.com/ruby/rake\"\n  s.metadata[\"source_code_uri\"] = \"https://github.com/ruby/rake\"\nend\n",
			manifest.Manifest{Ecosystem: "gem", Name: "rake", Version: "13.0", Repository: "https://github.com/ruby/rake", Homepage: "https://github.com/ruby/rake"}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			dir := t.TempDir()
			testsupport.WriteTree(t, dir, map[string]string{tt.file: tt.content})
			got, err := manifest.Read(dir)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("got %d manifests", len(got))
			}
			tt.want.File = tt.file
			if got[0] != tt.want {
				t.Fatalf("got %+v\nwant %+v", got[0], tt.want)
			}
		})
	}
}

func TestReadReportsMalformed(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{
		"package.json": "{not json",
		"Cargo.toml":   "[package]\nname = \"ok\"\n",
	})
	got, err := manifest.Read(dir)
	if !errors.Is(err, manifest.ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
	if len(got) != 1 || got[0].Name != "ok" {
		t.Fatalf("got %+v", got)
	}
}

func TestNameHints(t *testing.T) {
	root := t.TempDir()
	dir := testsupport.PythonPackage(t, root, "mypkg")
	testsupport.WriteTree(t, dir, map[string]string{
		"package.json": `{"name":"@org/MyPkg"}`,
	})
	got := manifest.NameHints(dir)
	want := []string{"MyPkg"}
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("got %v want %v", got, want)
	}

	other := t.TempDir()
	testsupport.WriteTree(t, other, map[string]string{
		"README.rst": "Fancy Tool: does things\n=======================\n\nbody\n",
	})
	hints := manifest.NameHints(other)
	if len(hints) != 2 || hints[0] != "Fancy Tool" {
		t.Fatalf("got %v", hints)
	}
}

func TestNormalizeRepoURL(t *testing.T) {
	tests := map[string]string{
		"git+https://github.com/a/b.git": "https://github.com/a/b",
		"git://github.com/a/b.git":       "https://github.com/a/b",
		"git@gitlab.com:a/b.git":         "https://gitlab.com/a/b",
		"ssh://git@github.com/a/b":       "https://github.com/a/b",
		"github:a/b":                     "https://github.com/a/b",
		"bitbucket:a/b":                  "https://bitbucket.org/a/b",
		"a/b":                            "https://github.com/a/b",
		"https://example.org/x/":         "https://example.org/x",
		"just words":                     "",
		"":                               "",
	}
	for in, want := range tests {
		if got := manifest.NormalizeRepoURL(in); got != want {
			t.Errorf("NormalizeRepoURL(%q) = %q want %q", in, got, want)
		}
	}
}

func TestReadmeExcerpt(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteTree(t, dir, map[string]string{
		"README.md": "# widget\n\nA small library.\nSecond line that is cut.\n",
	})
	if got := manifest.ReadmeExcerpt(dir, 30); got != "# widget\n\nA small library." {
		t.Fatalf("got %q", got)
	}
	if got := manifest.ReadmeExcerpt(t.TempDir(), 30); got != "" {
		t.Fatalf("got %q want empty", got)
	}
}
