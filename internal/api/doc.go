// Package api defines the wire-format report and the workflows shared by the
// CLI and the HTTP serve surface. It translates identification results into
// transport-friendly DTOs so renderers never touch internal types.
//
// # Key Types
//
// IdentifyRequest: path plus the per-run overrides accepted by both the
// `identify` command flags and `POST /v1/identify`.
//
// Report: the `{matches, count, threshold, strategies_run}` document printed by
// `--output-format json` and returned by the server.
//
// CacheStats: response cache summary for `cache stats`.
//
// # Workflows
//
// ApplyOverrides: clones a loaded config and applies request overrides,
// validating the result.
//
// RunIdentify: builds a per-run Identifier (optionally over a shared provider
// registry), runs it, and converts the result.
//
// OpenCache/ReadCacheStats/ClearCache: cache resource helpers.
//
// # Design Notes
//
// DTOs use snake_case JSON tags. Confidence values are rounded to three
// decimals at conversion time; internal ordering is always computed on the
// unrounded scores. Unknown name, version or license render as empty strings.
package api
