// Package manifest reads package metadata from build descriptors.
//
// Supported descriptors are package.json, Cargo.toml, pyproject.toml,
// setup.cfg, setup.py (literal arguments only), go.mod, pom.xml,
// composer.json, pubspec.yaml, Chart.yaml and *.gemspec. NameHints combines
// their declared names with the README title and the directory name.
package manifest
