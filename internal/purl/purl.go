package purl

import (
	"regexp"
	"strings"

	packageurl "github.com/package-url/packageurl-go"
	"golang.org/x/text/cases"

	"src2purl/internal/config"
	"src2purl/internal/coords"
)

// forgeTypes are the forges with a registered purl type. Other recognised
// forges render as generic purls carrying the repository URL.
var forgeTypes = map[string]string{
	"github":    packageurl.TypeGithub,
	"gitlab":    "gitlab",
	"bitbucket": packageurl.TypeBitbucket,
}

// Ecosystems whose names compare case-insensitively.
var foldedTypes = map[string]bool{
	packageurl.TypeGithub:    true,
	"gitlab":                 true,
	packageurl.TypeBitbucket: true,
	packageurl.TypePyPi:      true,
	packageurl.TypeNPM:       true,
	packageurl.TypeComposer:  true,
}

var pypiSeparators = regexp.MustCompile(`[-_.]+`)

// Generator renders coordinates as package URLs.
type Generator struct {
	threshold float64
}

// NewGenerator returns a generator that only emits purls at or above
// threshold.
func NewGenerator(threshold float64) *Generator {
	return &Generator{threshold: threshold}
}

// FromConfig uses thresholds.purl_generation.
func FromConfig(cfg *config.Config) *Generator {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	return NewGenerator(cfg.Thresholds.PurlGeneration)
}

// Threshold returns the minimum confidence for a purl.
func (g *Generator) Threshold() float64 { return g.threshold }

// Generate returns the purl for c. ok is false below the threshold, when
// name or download URL are missing, for discussion paths such as pull
// requests, and for unrecognised hosts.
func (g *Generator) Generate(c coords.Coordinates, confidence float64) (string, bool) {
	if confidence < g.threshold {
		return "", false
	}
	name := strings.TrimSpace(c.Name)
	if name == "" || strings.TrimSpace(c.DownloadURL) == "" {
		return "", false
	}
	loc, ok := coords.Parse(c.DownloadURL)
	if !ok || loc.Ecosystem == "" {
		return "", false
	}
	if loc.Forge {
		return g.forge(loc, c.Version)
	}
	return g.registry(loc, name, c.Version)
}

func (g *Generator) forge(loc coords.Location, version string) (string, bool) {
	if loc.Namespace == "" || loc.Name == "" {
		return "", false
	}
	if loc.Discussion() {
		return "", false
	}
	version = trimVersionPrefix(version)
	typ, ok := forgeTypes[loc.Ecosystem]
	if !ok {
		q := packageurl.QualifiersFromMap(map[string]string{
			"vcs_url": "git+https://" + loc.Host + "/" + loc.Namespace + "/" + loc.Name,
		})
		return packageurl.NewPackageURL(packageurl.TypeGeneric, "", g.normalize(packageurl.TypeGeneric, loc.Name), version, q, "").ToString(), true
	}
	p := packageurl.NewPackageURL(typ, g.normalize(typ, loc.Namespace), g.normalize(typ, loc.Name), version, nil, "")
	return p.ToString(), true
}

func (g *Generator) registry(loc coords.Location, name, version string) (string, bool) {
	typ := loc.Ecosystem
	namespace := loc.Namespace
	switch typ {
	case packageurl.TypeNPM:
		namespace = ""
		if scope, pkg, scoped := strings.Cut(name, "/"); scoped {
			namespace, name = scope, pkg
		}
		namespace = strings.TrimPrefix(namespace, "@")
	case packageurl.TypeComposer, packageurl.TypeMaven, packageurl.TypeGolang:
		if loc.Name != "" {
			name = loc.Name
		}
	default:
		namespace = ""
	}
	if typ != packageurl.TypeGolang {
		version = trimVersionPrefix(version)
	}
	p := packageurl.NewPackageURL(typ, g.normalize(typ, namespace), g.normalize(typ, name), version, nil, "")
	return p.ToString(), true
}

// normalize applies the ecosystem's name rules: case folding where names are
// case-insensitive, and PEP 503 separator collapsing for PyPI.
func (g *Generator) normalize(typ, name string) string {
	name = strings.TrimSpace(name)
	if foldedTypes[typ] {
		name = cases.Fold().String(name)
	}
	if typ == packageurl.TypePyPi {
		name = pypiSeparators.ReplaceAllString(name, "-")
	}
	return name
}

func trimVersionPrefix(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 1 && (v[0] == 'v' || v[0] == 'V') && v[1] >= '0' && v[1] <= '9' {
		return v[1:]
	}
	return v
}
