package coords

// Forge hosts whose repositories live at /<owner>/<repo>.
var forgeHosts = map[string]string{
	"github.com":    "github",
	"gitlab.com":    "gitlab",
	"bitbucket.org": "bitbucket",
	"codeberg.org":  "codeberg",
	"gitee.com":     "gitee",
	"sr.ht":         "sourcehut",
	"git.sr.ht":     "sourcehut",
}

// Package registry hosts.
var registryHosts = map[string]string{
	"pypi.org":              "pypi",
	"pypi.python.org":       "pypi",
	"npmjs.com":             "npm",
	"npmjs.org":             "npm",
	"registry.npmjs.org":    "npm",
	"crates.io":             "cargo",
	"rubygems.org":          "gem",
	"packagist.org":         "composer",
	"pkg.go.dev":            "golang",
	"proxy.golang.org":      "golang",
	"nuget.org":             "nuget",
	"repo1.maven.org":       "maven",
	"repo.maven.apache.org": "maven",
	"search.maven.org":      "maven",
	"hex.pm":                "hex",
	"pub.dev":               "pub",
	"cran.r-project.org":    "cran",
}

// Organisations that publish their own projects on shared forges. Matched
// case-insensitively against the first path segment.
var officialOrgs = map[string]struct{}{
	"apache":          {},
	"google":          {},
	"googleapis":      {},
	"microsoft":       {},
	"dotnet":          {},
	"facebook":        {},
	"meta":            {},
	"mozilla":         {},
	"python":          {},
	"psf":             {},
	"pallets":         {},
	"django":          {},
	"pypa":            {},
	"numpy":           {},
	"scipy":           {},
	"pandas-dev":      {},
	"scikit-learn":    {},
	"matplotlib":      {},
	"jupyter":         {},
	"nodejs":          {},
	"npm":             {},
	"expressjs":       {},
	"vuejs":           {},
	"angular":         {},
	"sveltejs":        {},
	"vercel":          {},
	"rust-lang":       {},
	"serde-rs":        {},
	"tokio-rs":        {},
	"golang":          {},
	"kubernetes":      {},
	"docker":          {},
	"moby":            {},
	"torvalds":        {},
	"gnome":           {},
	"kde":             {},
	"openssl":         {},
	"curl":            {},
	"tensorflow":      {},
	"pytorch":         {},
	"huggingface":     {},
	"hashicorp":       {},
	"elastic":         {},
	"grafana":         {},
	"prometheus":      {},
	"etcd-io":         {},
	"redis":           {},
	"postgres":        {},
	"mysql":           {},
	"sqlite":          {},
	"nginx":           {},
	"llvm":            {},
	"gcc-mirror":      {},
	"ffmpeg":          {},
	"videolan":        {},
	"git":             {},
	"ruby":            {},
	"rails":           {},
	"php":             {},
	"laravel":         {},
	"symfony":         {},
	"spring-projects": {},
	"eclipse":         {},
	"jetbrains":       {},
	"oracle":          {},
	"ibm":             {},
	"aws":             {},
	"awslabs":         {},
	"azure":           {},
	"cncf":            {},
	"openjdk":         {},
	"square":          {},
	"twitter":         {},
	"netflix":         {},
	"uber":            {},
	"gitlab-org":      {},
	"github":          {},
	"libgit2":         {},
	"zlib-ng":         {},
	"madler":          {},
	"protocolbuffers": {},
	"grpc":            {},
	"abseil":          {},
	"qt":              {},
	"wxwidgets":       {},
}

// Registrable domains that host a project's own canonical repositories.
var officialDomains = map[string]struct{}{
	"kernel.org":        {},
	"gnu.org":           {},
	"gnome.org":         {},
	"kde.org":           {},
	"apache.org":        {},
	"freedesktop.org":   {},
	"mozilla.org":       {},
	"python.org":        {},
	"googlesource.com":  {},
	"sourceware.org":    {},
	"savannah.gnu.org":  {},
	"videolan.org":      {},
	"ffmpeg.org":        {},
	"openssl.org":       {},
	"postgresql.org":    {},
	"debian.org":        {},
	"fedoraproject.org": {},
	"eclipse.org":       {},
	"llvm.org":          {},
	"qt.io":             {},
}
