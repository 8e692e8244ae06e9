// Package swh implements the exact-match strategy backed by the Software
// Heritage archive API. Directory identifiers are looked up first; sampled
// file identifiers are looked up concurrently when the directory is unknown.
package swh
