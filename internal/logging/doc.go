// Package logging assembles the slog loggers used across src2purl.
//
// Console output is a single human-readable line per record on stderr so
// stdout stays free for JSON reports; the JSON handler serves log shipping
// and the optional [logging] file. Both handlers redact credential-shaped
// keys. Pipeline code tags records with run_id, provider, strategy and
// candidate, and states operator-facing warnings through WarnWithContext.
package logging
