package api

import (
	"math"
	"time"

	"src2purl/internal/cache"
	"src2purl/internal/identify"
	"src2purl/internal/rank"
)

// FromResult converts an identification result to its report form. explain
// attaches the per-term breakdown to every match.
func FromResult(res identify.Result, explain bool) Report {
	report := Report{
		Matches:          make([]Match, 0, len(res.Matches)),
		Threshold:        res.Threshold,
		StrategiesRun:    nonNil(res.StrategiesRun),
		StrategiesFailed: res.StrategiesFailed,
		TerminatedBy:     res.TerminatedBy,
		RunID:            res.RunID,
	}
	for _, m := range res.Matches {
		report.Matches = append(report.Matches, FromMatch(m, explain))
	}
	report.Count = len(report.Matches)
	return report
}

// FromMatch converts one scored match.
func FromMatch(m rank.ScoredMatch, explain bool) Match {
	dto := Match{
		Name:       m.Name,
		Version:    m.Version,
		Confidence: round3(m.Confidence),
		Type:       string(m.Kind),
		URL:        m.DownloadURL,
		Purl:       m.Purl,
		License:    m.License,
		Official:   m.Official,
	}
	if dto.Type == "" {
		dto.Type = "unknown"
	}
	if !explain {
		return dto
	}
	ex := &Explain{
		Total:         round3(m.Confidence),
		Provider:      m.Provider,
		Candidate:     m.Candidate,
		SourceURL:     m.SourceURL,
		VisitCount:    m.VisitCount,
		LicenseSource: m.LicenseSource,
	}
	if b := m.Breakdown; b != nil {
		ex.Base = round3(b.Base)
		ex.Recency = round3(b.Recency)
		ex.Popularity = round3(b.Popularity)
		ex.Authority = round3(b.Authority)
		ex.Total = round3(b.Total)
	}
	if !m.LastSeen.IsZero() {
		ex.LastSeen = m.LastSeen.UTC().Format(time.RFC3339)
	}
	dto.Explain = ex
	return dto
}

// FromCacheStats converts backend statistics.
func FromCacheStats(s cache.Stats) CacheStats {
	dto := CacheStats{
		Backend:   s.Backend,
		Location:  s.Location,
		Entries:   s.Entries,
		Expired:   s.Expired,
		SizeBytes: s.SizeBytes,
	}
	if s.TTL > 0 {
		dto.TTL = s.TTL.String()
	}
	return dto
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
