package provider

import (
	"context"
	"sync"
	"time"

	"src2purl/internal/scan"
)

// MatchKind distinguishes content-identifier matches from similarity matches.
type MatchKind string

const (
	MatchExact MatchKind = "exact"
	MatchFuzzy MatchKind = "fuzzy"
)

// Metadata keys shared by providers and coordinate extraction.
const (
	MetaName      = "name"
	MetaVersion   = "version"
	MetaLicense   = "license"
	MetaSourceURL = "source_url"
)

// RawHit is one origin reported by a provider for a candidate.
type RawHit struct {
	Provider  string
	OriginURL string
	ContentID string
	// LastSeen is zero when the source gave no usable timestamp; the scorer
	// applies the configured missing-timestamp policy.
	LastSeen   time.Time
	VisitCount int
	Kind       MatchKind
	// Similarity is meaningful for fuzzy hits only; exact hits score as 1.
	Similarity float64
	Metadata   map[string]string
}

// Normalized returns a copy with defaults applied: visit count at least 1,
// similarity forced to 1 for exact hits and clamped to [0,1] otherwise.
func (h RawHit) Normalized() RawHit {
	if h.VisitCount < 1 {
		h.VisitCount = 1
	}
	if h.Kind != MatchExact {
		h.Kind = MatchFuzzy
	}
	switch {
	case h.Kind == MatchExact:
		h.Similarity = 1
	case h.Similarity < 0:
		h.Similarity = 0
	case h.Similarity > 1:
		h.Similarity = 1
	}
	return h
}

// Meta returns a metadata value or "".
func (h RawHit) Meta(key string) string {
	if h.Metadata == nil {
		return ""
	}
	return h.Metadata[key]
}

// Candidate is the unit a provider is asked about: a scanned directory plus
// lazily sampled file candidates for file-hash strategies.
type Candidate struct {
	scan.DirectoryCandidate
	files func() []scan.FileCandidate
}

// NewCandidate wraps dir. sample is invoked at most once, on first use of Files.
func NewCandidate(dir scan.DirectoryCandidate, sample func() []scan.FileCandidate) Candidate {
	if sample == nil {
		return Candidate{DirectoryCandidate: dir, files: func() []scan.FileCandidate { return nil }}
	}
	return Candidate{DirectoryCandidate: dir, files: sync.OnceValue(sample)}
}

// Files returns the sampled file candidates for this directory.
func (c Candidate) Files() []scan.FileCandidate {
	if c.files == nil {
		return nil
	}
	return c.files()
}

// Provider wraps one external knowledge source. Find returns an empty slice
// for "no match" and a *Error for transport, auth, or decoding failures.
type Provider interface {
	Name() string
	Kind() MatchKind
	Find(ctx context.Context, c Candidate) ([]RawHit, error)
	Close() error
}
