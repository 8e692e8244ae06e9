package testsupport

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte('a' + i%26)
	}
	writeBytes(t, path, buf)
}

// WriteTree creates files below root from a relative-path to content map.
// Keys use forward slashes; parent directories are created as needed.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()

	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, rel := range keys {
		writeBytes(t, filepath.Join(root, filepath.FromSlash(rel)), []byte(files[rel]))
	}
}

// PythonPackage lays out a minimal Python project: setup.py, README.md and
// three modules. It returns the package directory.
func PythonPackage(t testing.TB, root, name string) string {
	t.Helper()

	dir := filepath.Join(root, name)
	WriteTree(t, dir, map[string]string{
		"setup.py":           "from setuptools import setup\nsetup(name=\"" + name + "\", version=\"1.0.0\")\n",
		"README.md":          "# " + name + "\n\nA test package.\n",
		name + "/__init__.py": "__version__ = \"1.0.0\"\n",
		name + "/core.py":     "def run():\n    return 42\n",
		name + "/util.py":     "def helper(x):\n    return x * 2\n",
	})
	return dir
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
