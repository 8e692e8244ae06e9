package identify

import (
	"time"

	"src2purl/internal/rank"
	"src2purl/internal/scan"
)

// Result is the outcome of one identification run.
type Result struct {
	RunID      string
	Path       string
	Matches    []rank.ScoredMatch
	Candidates []scan.DirectoryCandidate
	// StrategiesRun lists strategies that answered at least one query, in
	// first-use order. A degraded run still reports what actually ran.
	StrategiesRun    []string
	StrategiesFailed []string
	Terminated       bool
	// TerminatedBy names the strategy whose hit stopped the candidate loop.
	TerminatedBy string
	// Threshold is the report threshold applied to Matches.
	Threshold float64
	Duration  time.Duration
}
