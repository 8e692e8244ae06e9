// Package cache stores provider responses keyed by endpoint and sorted
// parameters. SQLite is the default persistent backend; Redis can be shared
// between machines; Memory serves tests and short-lived processes.
package cache
