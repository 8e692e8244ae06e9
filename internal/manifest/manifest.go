package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manifest is the package metadata declared by one build descriptor.
type Manifest struct {
	File       string
	Ecosystem  string
	Name       string
	Version    string
	License    string
	Repository string
	Homepage   string
}

// URL returns the repository URL, falling back to the homepage.
func (m Manifest) URL() string {
	if m.Repository != "" {
		return m.Repository
	}
	return m.Homepage
}

type parser struct {
	match     func(name string) bool
	ecosystem string
	parse     func(data []byte) (Manifest, error)
}

func exact(want string) func(string) bool {
	return func(name string) bool { return name == want }
}

var parsers = []parser{
	{exact("package.json"), "npm", parsePackageJSON},
	{exact("Cargo.toml"), "cargo", parseCargo},
	{exact("pyproject.toml"), "pypi", parsePyProject},
	{exact("setup.cfg"), "pypi", parseSetupCfg},
	{exact("setup.py"), "pypi", parseSetupPy},
	{exact("go.mod"), "golang", parseGoMod},
	{exact("pom.xml"), "maven", parsePom},
	{exact("composer.json"), "composer", parseComposer},
	{exact("pubspec.yaml"), "pub", parsePubspec},
	{exact("Chart.yaml"), "helm", parseChart},
	{func(name string) bool { return strings.HasSuffix(name, ".gemspec") }, "gem", parseGemspec},
}

// maxManifestBytes bounds how much of a descriptor is read.
const maxManifestBytes = 1 << 20

// ErrMalformed marks a descriptor that exists but cannot be parsed.
var ErrMalformed = errors.New("malformed manifest")

// Read parses every recognised descriptor directly inside dir, in a fixed
// order. Unparseable descriptors are skipped and reported through the
// joined error, which wraps ErrMalformed; the returned slice is still valid.
func Read(dir string) ([]Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read manifests in %s: %w", dir, err)
	}
	var (
		out  []Manifest
		errs []error
	)
	for _, p := range parsers {
		for _, entry := range entries {
			if entry.IsDir() || !p.match(entry.Name()) {
				continue
			}
			m, err := readOne(filepath.Join(dir, entry.Name()), p)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			m.File = entry.Name()
			m.Ecosystem = p.ecosystem
			out = append(out, m)
		}
	}
	return out, errors.Join(errs...)
}

func readOne(path string, p parser) (Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Manifest{}, err
	}
	if info.Size() > maxManifestBytes {
		return Manifest{}, fmt.Errorf("%s: %w: larger than %d bytes", path, ErrMalformed, maxManifestBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := p.parse(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w: %v", path, ErrMalformed, err)
	}
	m.Name = strings.TrimSpace(m.Name)
	m.Version = strings.TrimSpace(m.Version)
	m.License = strings.TrimSpace(m.License)
	m.Repository = NormalizeRepoURL(m.Repository)
	m.Homepage = NormalizeRepoURL(m.Homepage)
	return m, nil
}

// NormalizeRepoURL turns VCS remote spellings into browsable https URLs:
// git+ and git:// prefixes, scp-style remotes, npm "github:owner/repo" and
// bare "owner/repo" shorthands, and trailing .git suffixes.
func NormalizeRepoURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	for _, prefix := range []string{"github:", "gitlab:", "bitbucket:"} {
		if rest, ok := strings.CutPrefix(u, prefix); ok {
			host := strings.TrimSuffix(prefix, ":") + ".com"
			if prefix == "bitbucket:" {
				host = "bitbucket.org"
			}
			return "https://" + host + "/" + strings.TrimSuffix(rest, ".git")
		}
	}
	u = strings.TrimPrefix(u, "git+")
	switch {
	case strings.HasPrefix(u, "git@"):
		if host, p, ok := strings.Cut(strings.TrimPrefix(u, "git@"), ":"); ok {
			u = "https://" + host + "/" + p
		}
	case strings.HasPrefix(u, "git://"):
		u = "https://" + strings.TrimPrefix(u, "git://")
	case strings.HasPrefix(u, "ssh://git@"):
		u = "https://" + strings.TrimPrefix(u, "ssh://git@")
	case !strings.Contains(u, "://") && strings.Count(u, "/") == 1 && !strings.ContainsAny(u, " .:"):
		u = "https://github.com/" + u
	}
	if !strings.Contains(u, "://") {
		return ""
	}
	u = strings.TrimSuffix(strings.TrimRight(u, "/"), ".git")
	return u
}
