package identify

import (
	"context"
	"fmt"

	"src2purl/internal/coords"
	"src2purl/internal/license"
	"src2purl/internal/logging"
	"src2purl/internal/provider"
	"src2purl/internal/rank"
	"src2purl/internal/scoring"
)

// finalize scores every hit, drops those below the report threshold,
// attaches coordinates and purls, then deduplicates and ranks.
func (i *Identifier) finalize(ctx context.Context, r *run, hits []provider.RawHit) ([]rank.ScoredMatch, error) {
	extractor, err := i.extractor.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}
	generator, err := i.generator.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("build purl generator: %w", err)
	}
	ranker, err := i.ranker.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("build ranker: %w", err)
	}
	thresholds := i.cfg.Thresholds

	scored := make([]rank.ScoredMatch, 0, len(hits))
	for _, hit := range hits {
		if hit.Kind == provider.MatchFuzzy && hit.Similarity < thresholds.FuzzyConsideration {
			r.logger.Debug("fuzzy hit dropped",
				logging.Args(append(logging.DecisionAttrs("fuzzy_consideration", "dropped", "similarity below threshold"),
					logging.String("origin", hit.OriginURL),
					logging.Float64("similarity", hit.Similarity))...)...)
			continue
		}
		official := extractor.IsOfficialOrganization(hit.OriginURL)
		breakdown := r.scorer.Explain(scoring.FeaturesFromHit(hit, official))
		if breakdown.Total < thresholds.ReportMatch {
			r.logger.Debug("match below report threshold",
				logging.Args(append(logging.DecisionAttrs("report_threshold", "dropped", "confidence below threshold"),
					logging.String("origin", hit.OriginURL),
					logging.Float64("confidence", breakdown.Total))...)...)
			continue
		}
		scored = append(scored, buildMatch(hit, extractor.Extract(hit), breakdown, official, generator))
	}
	return ranker.Finalize(scored), nil
}

type purlRenderer interface {
	Generate(c coords.Coordinates, confidence float64) (string, bool)
}

func buildMatch(hit provider.RawHit, c coords.Coordinates, b scoring.Breakdown, official bool, gen purlRenderer) rank.ScoredMatch {
	m := rank.ScoredMatch{
		DownloadURL: c.DownloadURL,
		Name:        c.Name,
		Version:     c.Version,
		License:     c.License,
		SourceURL:   hit.Meta(provider.MetaSourceURL),
		Kind:        hit.Kind,
		Confidence:  b.Total,
		VisitCount:  hit.VisitCount,
		Official:    official,
		Provider:    hit.Provider,
		Candidate:   hit.ContentID,
		LastSeen:    hit.LastSeen,
		Breakdown:   &b,
	}
	if m.DownloadURL == "" {
		m.DownloadURL = hit.OriginURL
	}
	if m.SourceURL == "" {
		m.SourceURL = hit.OriginURL
	}
	if m.License != "" {
		m.LicenseSource = license.SourceProvider
	}
	if p, ok := gen.Generate(c, b.Total); ok {
		m.Purl = p
	}
	return m
}
