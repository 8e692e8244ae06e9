package manifest

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var readmeNames = []string{"README.md", "README.rst", "README.txt", "README", "readme.md"}

// readmeHeadingLines bounds how far into a README the title is searched.
const readmeHeadingLines = 40

// NameHints returns likely project names for dir: declared manifest names,
// then the README title, then the directory name. Duplicates are dropped
// case-insensitively and order is stable.
func NameHints(dir string) []string {
	var hints []string
	seen := map[string]struct{}{}
	add := func(name string) {
		name = cleanHint(name)
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		hints = append(hints, name)
	}
	manifests, _ := Read(dir)
	for _, m := range manifests {
		add(m.Name)
	}
	add(ReadmeTitle(dir))
	add(filepath.Base(filepath.Clean(dir)))
	return hints
}

// cleanHint strips npm scopes, composer vendors and Go major versions so
// the hint is the bare project name.
func cleanHint(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Trim(name, "`*_ ")
	if name == "." || name == string(filepath.Separator) || len(name) > 100 {
		return ""
	}
	return name
}

// ReadmeTitle returns the first Markdown heading or reStructuredText title of
// the README in dir, or "".
func ReadmeTitle(dir string) string {
	for _, name := range readmeNames {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		title := scanTitle(bufio.NewScanner(f))
		_ = f.Close()
		if title != "" {
			return title
		}
	}
	return ""
}

func scanTitle(sc *bufio.Scanner) string {
	var prev string
	for i := 0; i < readmeHeadingLines && sc.Scan(); i++ {
		line := strings.TrimSpace(sc.Text())
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return firstWordGroup(title)
		}
		// reStructuredText: a title is underlined with = or -
		if prev != "" && len(line) >= len(prev) && len(line) >= 3 && strings.Trim(line, "=-~") == "" {
			return firstWordGroup(prev)
		}
		if line != "" && !strings.HasPrefix(line, "<") && !strings.HasPrefix(line, "[") && !strings.HasPrefix(line, "..") {
			prev = line
		} else {
			prev = ""
		}
	}
	return ""
}

// firstWordGroup trims a title down to the name before any tagline
// separator ("foo: a library for bar" gives "foo").
func firstWordGroup(title string) string {
	for _, sep := range []string{" - ", " — ", ": ", " | "} {
		if i := strings.Index(title, sep); i > 0 {
			title = title[:i]
		}
	}
	return strings.TrimSpace(title)
}

// ReadmeExcerpt returns up to limit bytes from the start of the first README
// in dir, cut back to a whole line when possible.
func ReadmeExcerpt(dir string, limit int) string {
	if limit <= 0 {
		return ""
	}
	for _, name := range readmeNames {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		buf := make([]byte, limit)
		n, _ := io.ReadFull(f, buf)
		_ = f.Close()
		if n == 0 {
			continue
		}
		text := string(buf[:n])
		if n == limit {
			if i := strings.LastIndexByte(text, '\n'); i > 0 {
				text = text[:i]
			}
		}
		return strings.TrimSpace(strings.ToValidUTF8(text, ""))
	}
	return ""
}
