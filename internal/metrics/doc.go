// Package metrics holds the Prometheus collectors for provider traffic,
// cache effectiveness, and identification runs.
package metrics
