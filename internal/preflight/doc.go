// Package preflight provides readiness checks for the remote sources,
// credentials, cache backend and local binaries that src2purl depends on.
//
// The CLI "src2purl doctor" command runs RunAll and renders one row per
// check. Checks follow the configured strategy order; strategies that are
// not enabled are skipped, and the license detector is only required when
// license enhancement is on.
package preflight
