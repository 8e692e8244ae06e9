// Package scan turns a local start path into ranked directory and file
// candidates for external matching.
//
// The ancestor pass walks from the start path toward the filesystem root,
// keeping directories that look like package roots and scoring them by
// depth, source-file count, and package-indicator files. Auxiliary passes
// add stable subdirectories and git submodules below the start path at a
// fixed depth and specificity. Candidates carry content identifiers from
// package swhid and are deduplicated by them.
package scan
