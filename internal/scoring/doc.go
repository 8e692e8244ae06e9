// Package scoring implements the confidence model.
//
// A match scores a base term (0.9 for exact, half the similarity for fuzzy)
// plus weighted recency, popularity, and authority terms, clamped to [0,1].
// Recency halves every half-life; popularity saturates around a pivot visit
// count. How a missing last-seen timestamp is treated is configurable.
package scoring
