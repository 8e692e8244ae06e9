// Package config loads, normalizes, and validates src2purl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GITHUB_TOKEN and OPENAI_API_KEY. The Config type centralizes every knob the
// identification pipeline and CLI need: scan limits, scoring weights,
// thresholds, strategy order, network discipline, and cache backend.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical strategy names, and clear validation errors.
package config
