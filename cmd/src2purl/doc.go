// Package main hosts the src2purl CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into identification runs,
// response cache maintenance, configuration scaffolding, readiness checks and
// the HTTP serve surface. It centralizes configuration resolution and logger
// setup so subcommands can focus on presentation.
//
// Keep this package lean: behaviour belongs in the internal packages, and
// commands here only parse flags, call into internal/api, and render.
package main
