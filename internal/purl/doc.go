// Package purl renders package coordinates as package URLs.
//
// Recognised forges map to their purl types (github, gitlab, bitbucket) using
// owner/repo from the download URL; registries map to their own types with
// the ecosystem's name normalisation. Unknown hosts never produce a purl.
package purl
