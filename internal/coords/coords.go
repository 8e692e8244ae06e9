package coords

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/publicsuffix"

	"src2purl/internal/provider"
)

// Metadata keys read from RawHit.Metadata.
const (
	MetaName    = provider.MetaName
	MetaVersion = provider.MetaVersion
	MetaLicense = provider.MetaLicense
)

// Coordinates are the package fields recoverable from one hit.
type Coordinates struct {
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	License     string `json:"license,omitempty"`
	DownloadURL string `json:"download_url"`
}

// Forge paths that name a discussion rather than the repository.
var discussionSegments = map[string]struct{}{
	"pull": {}, "pulls": {}, "issues": {}, "wiki": {}, "wikis": {},
	"merge_requests": {}, "compare": {}, "discussions": {}, "commit": {},
}

// Location is an origin URL split along the host's known path shape.
// Ecosystem is empty for unrecognised hosts.
type Location struct {
	URL       *url.URL
	Host      string
	Ecosystem string
	Forge     bool
	Namespace string
	Name      string
	Version   string
	Segments  []string
}

// Parse splits raw into a Location. Scp-style git remotes
// (git@host:owner/repo.git) are accepted. ok is false when raw has no
// scheme or host.
func Parse(raw string) (Location, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Location{}, false
	}
	if rest, found := strings.CutPrefix(raw, "git@"); found {
		if host, p, ok := strings.Cut(rest, ":"); ok {
			raw = "https://" + host + "/" + p
		}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Location{}, false
	}
	loc := Location{URL: u, Host: CanonicalHost(u.Hostname()), Segments: splitPath(u.Path)}
	if eco, ok := forgeHosts[loc.Host]; ok {
		loc.Ecosystem = eco
		loc.Forge = true
		parseForge(&loc)
		return loc, true
	}
	if eco, ok := registryHosts[loc.Host]; ok {
		loc.Ecosystem = eco
		parseRegistry(&loc)
	}
	return loc, true
}

// CanonicalHost lowercases host and drops a leading "www.".
func CanonicalHost(host string) string {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	return strings.TrimPrefix(host, "www.")
}

func splitPath(p string) []string {
	var out []string
	for _, part := range strings.Split(p, "/") {
		if part == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(part); err == nil {
			part = unescaped
		}
		out = append(out, part)
	}
	return out
}

func parseForge(loc *Location) {
	seg := loc.Segments
	if len(seg) < 2 {
		if len(seg) == 1 {
			loc.Namespace = seg[0]
		}
		return
	}
	if loc.Host == "git.sr.ht" || loc.Host == "sr.ht" {
		loc.Namespace = strings.TrimPrefix(seg[0], "~")
	} else {
		loc.Namespace = seg[0]
	}
	loc.Name = strings.TrimSuffix(seg[1], ".git")
	loc.Version = forgeVersion(seg[2:])
}

// forgeVersion reads a tag from release, tree and archive paths.
func forgeVersion(rest []string) string {
	if len(rest) > 0 && rest[0] == "-" {
		rest = rest[1:]
	}
	if len(rest) < 2 {
		return ""
	}
	switch rest[0] {
	case "releases":
		if len(rest) >= 3 && (rest[1] == "tag" || rest[1] == "download") {
			return rest[2]
		}
	case "tree", "tags", "commits":
		if rest[1] != "main" && rest[1] != "master" && looksLikeVersion(rest[1]) {
			return rest[1]
		}
	case "archive":
		last := rest[len(rest)-1]
		last = trimArchiveSuffix(last)
		if looksLikeVersion(last) {
			return last
		}
	}
	return ""
}

func trimArchiveSuffix(name string) string {
	for _, ext := range []string{".tar.gz", ".tar.bz2", ".tar.xz", ".tgz", ".zip"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

func looksLikeVersion(s string) bool {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func parseRegistry(loc *Location) {
	seg := loc.Segments
	take := func(i int) string {
		if i < len(seg) {
			return seg[i]
		}
		return ""
	}
	switch loc.Ecosystem {
	case "pypi":
		if take(0) == "project" || take(0) == "simple" {
			loc.Name, loc.Version = take(1), take(2)
		}
	case "npm":
		rest := seg
		if loc.Host != "registry.npmjs.org" {
			if take(0) != "package" {
				return
			}
			rest = seg[1:]
		}
		if len(rest) == 0 {
			return
		}
		if strings.HasPrefix(rest[0], "@") && len(rest) >= 2 {
			loc.Namespace, loc.Name = rest[0], rest[1]
			rest = rest[2:]
		} else {
			loc.Name = rest[0]
			rest = rest[1:]
		}
		if len(rest) >= 2 && rest[0] == "v" {
			loc.Version = rest[1]
		} else if len(rest) == 1 && looksLikeVersion(rest[0]) {
			loc.Version = rest[0]
		}
	case "cargo":
		if take(0) == "crates" {
			loc.Name, loc.Version = take(1), take(2)
		}
	case "gem":
		if take(0) == "gems" {
			loc.Name = take(1)
			if take(2) == "versions" {
				loc.Version = take(3)
			}
		}
	case "composer":
		if take(0) == "packages" {
			loc.Namespace, loc.Name = take(1), take(2)
		}
	case "golang":
		if len(seg) > 0 {
			full := strings.Join(seg, "/")
			mod, ver, _ := strings.Cut(full, "@")
			loc.Namespace, loc.Name = path.Split(mod)
			loc.Namespace = strings.TrimSuffix(loc.Namespace, "/")
			loc.Version = ver
		}
	case "nuget":
		if take(0) == "packages" {
			loc.Name, loc.Version = take(1), take(2)
		}
	case "maven":
		// maven2/<group path>/<artifact>/<version>/
		if take(0) == "maven2" && len(seg) >= 4 {
			loc.Namespace = strings.Join(seg[1:len(seg)-2], ".")
			loc.Name, loc.Version = seg[len(seg)-2], seg[len(seg)-1]
		}
	case "hex", "pub":
		if take(0) == "packages" {
			loc.Name, loc.Version = take(1), take(2)
		}
	case "cran":
		if take(0) == "web" && take(1) == "packages" {
			loc.Name = take(2)
		}
	}
}

// Discussion reports whether l points below a forge repository at a pull
// request, issue, wiki or similar page.
func (l Location) Discussion() bool {
	if !l.Forge || len(l.Segments) <= 2 {
		return false
	}
	for _, seg := range l.Segments[2:] {
		if _, ok := discussionSegments[strings.ToLower(seg)]; ok {
			return true
		}
	}
	return false
}

// Extractor turns hits into coordinates.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract derives coordinates from hit. Metadata name, version and license
// win over values parsed from the URL; a version is never invented.
func (e *Extractor) Extract(hit provider.RawHit) Coordinates {
	c := Coordinates{
		Name:        strings.TrimSpace(hit.Meta(MetaName)),
		Version:     strings.TrimSpace(hit.Meta(MetaVersion)),
		License:     strings.TrimSpace(hit.Meta(MetaLicense)),
		DownloadURL: strings.TrimSpace(hit.OriginURL),
	}
	loc, ok := Parse(hit.OriginURL)
	if !ok {
		return c
	}
	// Discussion origins keep their full path so no purl is minted for them.
	if loc.Forge && loc.Namespace != "" && loc.Name != "" && !loc.Discussion() {
		c.DownloadURL = loc.URL.Scheme + "://" + loc.URL.Host + "/" + loc.Namespace + "/" + loc.Name
		if loc.Host == "git.sr.ht" {
			c.DownloadURL = loc.URL.Scheme + "://" + loc.URL.Host + "/~" + loc.Namespace + "/" + loc.Name
		}
	}
	if c.Name == "" {
		switch {
		case loc.Ecosystem == "npm" && loc.Namespace != "":
			c.Name = loc.Namespace + "/" + loc.Name
		case loc.Name != "":
			c.Name = loc.Name
		case loc.Ecosystem == "" && len(loc.Segments) > 0:
			c.Name = strings.TrimSuffix(loc.Segments[len(loc.Segments)-1], ".git")
		}
	}
	if c.Version == "" {
		c.Version = loc.Version
	}
	return c
}

// IsOfficialOrganization reports whether origin belongs to a project's own
// organisation: an allow-listed forge owner, a project-owned domain, or a
// forge repository named after its owner. Unparseable input is not official.
func (e *Extractor) IsOfficialOrganization(origin string) bool {
	return IsOfficialOrganization(origin)
}

// IsOfficialOrganization is the package-level form of
// Extractor.IsOfficialOrganization.
func IsOfficialOrganization(origin string) bool {
	loc, ok := Parse(origin)
	if !ok {
		return false
	}
	if loc.Forge {
		owner := strings.ToLower(loc.Namespace)
		if owner == "" {
			return false
		}
		if _, ok := officialOrgs[owner]; ok {
			return true
		}
		return loc.Name != "" && strings.EqualFold(owner, loc.Name)
	}
	if loc.Ecosystem != "" {
		// registries publish anyone's packages
		return false
	}
	if _, ok := officialDomains[loc.Host]; ok {
		return true
	}
	if domain, err := publicsuffix.EffectiveTLDPlusOne(loc.Host); err == nil {
		if _, ok := officialDomains[domain]; ok {
			return true
		}
	}
	// hosts under a private public suffix such as googlesource.com
	for domain := range officialDomains {
		if strings.HasSuffix(loc.Host, "."+domain) {
			return true
		}
	}
	return false
}
