package scan

import (
	"os"
	"path/filepath"
	"strings"
)

var skipDirs = map[string]struct{}{
	".git": {}, ".svn": {}, ".hg": {}, ".bzr": {},
	"__pycache__": {}, ".pytest_cache": {}, ".mypy_cache": {},
	"node_modules": {}, "bower_components": {},
	"target": {}, "build": {}, "dist": {}, "out": {},
	".idea": {}, ".vscode": {}, ".vs": {},
	"venv": {}, "env": {}, ".env": {},
}

var sourceExtensions = map[string]struct{}{
	".c": {}, ".h": {}, ".cpp": {}, ".hpp": {}, ".cc": {}, ".cxx": {}, ".hxx": {}, ".C": {}, ".H": {},
	".py": {}, ".pyx": {}, ".pxd": {}, ".pyi": {},
	".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {}, ".mjs": {}, ".cjs": {},
	".java": {}, ".kt": {}, ".kts": {},
	".rs": {}, ".go": {}, ".rb": {}, ".swift": {},
	".sh": {}, ".bash": {}, ".zsh": {}, ".fish": {},
	".yaml": {}, ".yml": {}, ".json": {}, ".xml": {}, ".toml": {},
}

// indicatorWeights are summed per file present and capped at 1.
var indicatorWeights = []struct {
	name   string
	weight float64
}{
	{"CMakeLists.txt", 0.3},
	{"Makefile", 0.2},
	{"configure", 0.2},
	{"setup.py", 0.3},
	{"package.json", 0.3},
	{"Cargo.toml", 0.3},
	{"go.mod", 0.3},
	{"pom.xml", 0.3},
	{"build.gradle", 0.3},
	{"README.md", 0.1},
	{"README.rst", 0.1},
	{"README.txt", 0.1},
	{"LICENSE", 0.1},
	{"LICENSE.txt", 0.1},
	{"COPYING", 0.1},
}

// subdirEarlyAccept stops the subdirectory census once this many source files are seen.
const subdirEarlyAccept = 10

// IsSkipDir reports whether name is a version-control, build, cache, IDE, or virtual-env directory.
func IsSkipDir(name string) bool {
	_, ok := skipDirs[name]
	return ok
}

// IsSourceFile reports whether name carries a recognised source extension.
func IsSourceFile(name string) bool {
	_, ok := sourceExtensions[filepath.Ext(name)]
	return ok
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// IndicatorScore sums the weights of package-indicator files present in dir.
func IndicatorScore(dir string) float64 {
	score := 0.0
	for _, ind := range indicatorWeights {
		if info, err := os.Stat(filepath.Join(dir, ind.name)); err == nil && !info.IsDir() {
			score += ind.weight
		}
	}
	return min(1.0, score)
}

// Specificity scores how likely dir is a package root. Closer directories,
// more source files, and more indicator files all increase the score.
func Specificity(depth int, isStart bool, fileCount int, indicators, specificityWeight float64) float64 {
	if depth < 0 {
		depth = 0
	}
	depthScore := 1.0 / float64(depth+1)
	if isStart {
		depthScore *= 1.5
	}
	fileFactor := min(1.0, float64(max(fileCount, 0))/100.0)
	score := depthScore*specificityWeight + fileFactor*0.3 + min(1.0, indicators)*0.3
	return max(0, min(1.0, score))
}
