// Package rank deduplicates scored matches by base repository and orders
// them for reporting: official sources first, then by confidence.
package rank
