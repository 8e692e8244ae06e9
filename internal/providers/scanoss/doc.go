// Package scanoss implements the fingerprint strategy against a SCANOSS
// knowledge base. Whole-file matches are exact hits; snippet matches are
// fuzzy hits weighted by the matched percentage.
package scanoss
