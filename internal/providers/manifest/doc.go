// Package manifest implements the local strategy that trusts repository and
// homepage URLs declared in build descriptors.
package manifest
