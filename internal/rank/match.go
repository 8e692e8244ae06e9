package rank

import (
	"time"

	"src2purl/internal/provider"
	"src2purl/internal/scoring"
)

// ScoredMatch is one reported package match.
type ScoredMatch struct {
	DownloadURL string
	Name        string
	Version     string
	License     string
	// LicenseSource is "provider" or "detector" when License is set.
	LicenseSource string
	// SourceURL points at the knowledge-source record for the hit.
	SourceURL  string
	Kind       provider.MatchKind
	Confidence float64
	VisitCount int
	Official   bool
	Purl       string
	Provider   string
	Candidate  string
	LastSeen   time.Time
	Breakdown  *scoring.Breakdown
}
