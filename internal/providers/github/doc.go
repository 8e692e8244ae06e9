// Package github implements the repository-search strategy. Stars stand in
// for visit counts and the last push for recency.
package github
