package manifest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

// stringOrField decodes values npm and composer allow either as a plain
// string or as an object with a url/type field.
type stringOrField string

func (s *stringOrField) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = stringOrField(str)
		return nil
	}
	var obj struct {
		URL  string `json:"url"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		// arrays and other shapes carry nothing usable
		return nil
	}
	if obj.URL != "" {
		*s = stringOrField(obj.URL)
	} else {
		*s = stringOrField(obj.Type)
	}
	return nil
}

func parsePackageJSON(data []byte) (Manifest, error) {
	var pkg struct {
		Name       string        `json:"name"`
		Version    string        `json:"version"`
		License    stringOrField `json:"license"`
		Repository stringOrField `json:"repository"`
		Homepage   string        `json:"homepage"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return Manifest{}, err
	}
	return Manifest{
		Name:       pkg.Name,
		Version:    pkg.Version,
		License:    string(pkg.License),
		Repository: string(pkg.Repository),
		Homepage:   pkg.Homepage,
	}, nil
}

func parseComposer(data []byte) (Manifest, error) {
	var pkg struct {
		Name     string          `json:"name"`
		Version  string          `json:"version"`
		License  json.RawMessage `json:"license"`
		Homepage string          `json:"homepage"`
		Support  struct {
			Source string `json:"source"`
		} `json:"support"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return Manifest{}, err
	}
	return Manifest{
		Name:       pkg.Name,
		Version:    pkg.Version,
		License:    firstString(pkg.License),
		Repository: pkg.Support.Source,
		Homepage:   pkg.Homepage,
	}, nil
}

// firstString reads a JSON string or the first element of a string array.
func firstString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

// tomlString reads a TOML value that may be a string or an inherited
// workspace table such as {workspace = true}.
func tomlString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if text, ok := t["text"].(string); ok {
			return text
		}
		if file, ok := t["file"].(string); ok {
			return file
		}
	}
	return ""
}

func parseCargo(data []byte) (Manifest, error) {
	var doc struct {
		Package struct {
			Name       string `toml:"name"`
			Version    any    `toml:"version"`
			License    any    `toml:"license"`
			Repository any    `toml:"repository"`
			Homepage   any    `toml:"homepage"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Manifest{}, err
	}
	p := doc.Package
	return Manifest{
		Name:       p.Name,
		Version:    tomlString(p.Version),
		License:    tomlString(p.License),
		Repository: tomlString(p.Repository),
		Homepage:   tomlString(p.Homepage),
	}, nil
}

// project URL labels that name the source repository, most specific first
var repositoryURLKeys = []string{"repository", "source", "source code", "code", "github"}

func parsePyProject(data []byte) (Manifest, error) {
	var doc struct {
		Project struct {
			Name    string            `toml:"name"`
			Version string            `toml:"version"`
			License any               `toml:"license"`
			URLs    map[string]string `toml:"urls"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name       string `toml:"name"`
				Version    string `toml:"version"`
				License    string `toml:"license"`
				Repository string `toml:"repository"`
				Homepage   string `toml:"homepage"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Manifest{}, err
	}
	m := Manifest{
		Name:    doc.Project.Name,
		Version: doc.Project.Version,
		License: tomlString(doc.Project.License),
	}
	urls := lowerKeys(doc.Project.URLs)
	for _, key := range repositoryURLKeys {
		if u := urls[key]; u != "" {
			m.Repository = u
			break
		}
	}
	m.Homepage = urls["homepage"]
	poetry := doc.Tool.Poetry
	m.Name = firstNonEmpty(m.Name, poetry.Name)
	m.Version = firstNonEmpty(m.Version, poetry.Version)
	m.License = firstNonEmpty(m.License, poetry.License)
	m.Repository = firstNonEmpty(m.Repository, poetry.Repository)
	m.Homepage = firstNonEmpty(m.Homepage, poetry.Homepage)
	return m, nil
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// parseSetupCfg reads the [metadata] section of a setuptools config,
// including the indented project_urls continuation lines.
func parseSetupCfg(data []byte) (Manifest, error) {
	var (
		m           Manifest
		section     string
		lastKey     string
		projectURLs = map[string]string{}
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.Trim(line, "[]"))
			lastKey = ""
			continue
		}
		if section != "metadata" {
			continue
		}
		if raw[0] == ' ' || raw[0] == '\t' {
			if lastKey == "project_urls" {
				if k, v, ok := strings.Cut(line, "="); ok {
					projectURLs[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
				}
			}
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			key, value, ok = strings.Cut(line, ":")
		}
		if !ok {
			continue
		}
		lastKey = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch lastKey {
		case "name":
			m.Name = value
		case "version":
			if !strings.HasPrefix(value, "attr:") && !strings.HasPrefix(value, "file:") {
				m.Version = value
			}
		case "license":
			m.License = value
		case "url", "home_page", "home-page":
			m.Homepage = value
		}
	}
	if err := sc.Err(); err != nil {
		return Manifest{}, err
	}
	for _, key := range repositoryURLKeys {
		if u := projectURLs[key]; u != "" {
			m.Repository = u
			break
		}
	}
	return m, nil
}

var (
	setupPyField = regexp.MustCompile(`\b(name|version|license|url)\s*=\s*["']([^"']+)["']`)
	gemspecField = regexp.MustCompile(`\.(name|version|license|homepage)\s*=\s*["']([^"']+)["']`)
	gemspecMeta  = regexp.MustCompile(`metadata\[\s*["']source_code_uri["']\s*\]\s*=\s*["']([^"']+)["']`)
)

// parseSetupPy picks literal keyword arguments out of a setup() call. It
// never executes the script.
func parseSetupPy(data []byte) (Manifest, error) {
	var m Manifest
	for _, match := range setupPyField.FindAllSubmatch(data, -1) {
		value := string(match[2])
		switch string(match[1]) {
		case "name":
			m.Name = firstNonEmpty(m.Name, value)
		case "version":
			m.Version = firstNonEmpty(m.Version, value)
		case "license":
			m.License = firstNonEmpty(m.License, value)
		case "url":
			m.Homepage = firstNonEmpty(m.Homepage, value)
		}
	}
	if m.Name == "" {
		return Manifest{}, fmt.Errorf("no literal name in setup()")
	}
	return m, nil
}

func parseGemspec(data []byte) (Manifest, error) {
	var m Manifest
	for _, match := range gemspecField.FindAllSubmatch(data, -1) {
		value := string(match[2])
		switch string(match[1]) {
		case "name":
			m.Name = firstNonEmpty(m.Name, value)
		case "version":
			m.Version = firstNonEmpty(m.Version, value)
		case "license":
			m.License = firstNonEmpty(m.License, value)
		case "homepage":
			m.Homepage = firstNonEmpty(m.Homepage, value)
		}
	}
	if match := gemspecMeta.FindSubmatch(data); match != nil {
		m.Repository = string(match[1])
	}
	if m.Name == "" {
		return Manifest{}, fmt.Errorf("no literal name in gemspec")
	}
	return m, nil
}

func parseGoMod(data []byte) (Manifest, error) {
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return Manifest{}, err
	}
	if f.Module == nil || f.Module.Mod.Path == "" {
		return Manifest{}, fmt.Errorf("no module directive")
	}
	modPath := f.Module.Mod.Path
	m := Manifest{Name: lastPathElement(modPath)}
	parts := strings.Split(modPath, "/")
	switch parts[0] {
	case "github.com", "gitlab.com", "bitbucket.org", "codeberg.org":
		if len(parts) >= 3 {
			m.Repository = "https://" + strings.Join(parts[:3], "/")
		}
	default:
		if strings.Contains(parts[0], ".") {
			m.Homepage = "https://pkg.go.dev/" + modPath
		}
	}
	return m, nil
}

func lastPathElement(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		last := p[i+1:]
		// major version suffixes name nothing
		if len(last) > 1 && last[0] == 'v' && strings.Trim(last[1:], "0123456789") == "" {
			return lastPathElement(p[:i])
		}
		return last
	}
	return p
}

func parsePom(data []byte) (Manifest, error) {
	var pom struct {
		GroupID    string `xml:"groupId"`
		ArtifactID string `xml:"artifactId"`
		Version    string `xml:"version"`
		URL        string `xml:"url"`
		Parent     struct {
			GroupID string `xml:"groupId"`
			Version string `xml:"version"`
		} `xml:"parent"`
		Licenses struct {
			License []struct {
				Name string `xml:"name"`
			} `xml:"license"`
		} `xml:"licenses"`
		SCM struct {
			URL        string `xml:"url"`
			Connection string `xml:"connection"`
		} `xml:"scm"`
	}
	if err := xml.Unmarshal(data, &pom); err != nil {
		return Manifest{}, err
	}
	m := Manifest{
		Name:     pom.ArtifactID,
		Version:  firstNonEmpty(pom.Version, pom.Parent.Version),
		Homepage: pom.URL,
	}
	if len(pom.Licenses.License) > 0 {
		m.License = pom.Licenses.License[0].Name
	}
	m.Repository = firstNonEmpty(pom.SCM.URL, strings.TrimPrefix(pom.SCM.Connection, "scm:git:"))
	if strings.Contains(m.Version, "${") {
		m.Version = ""
	}
	return m, nil
}

func parsePubspec(data []byte) (Manifest, error) {
	var doc struct {
		Name       string `yaml:"name"`
		Version    string `yaml:"version"`
		Repository string `yaml:"repository"`
		Homepage   string `yaml:"homepage"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Manifest{}, err
	}
	return Manifest{Name: doc.Name, Version: doc.Version, Repository: doc.Repository, Homepage: doc.Homepage}, nil
}

func parseChart(data []byte) (Manifest, error) {
	var doc struct {
		Name    string   `yaml:"name"`
		Version string   `yaml:"version"`
		Home    string   `yaml:"home"`
		Sources []string `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Manifest{}, err
	}
	m := Manifest{Name: doc.Name, Version: doc.Version, Homepage: doc.Home}
	if len(doc.Sources) > 0 {
		m.Repository = doc.Sources[0]
	}
	return m, nil
}
