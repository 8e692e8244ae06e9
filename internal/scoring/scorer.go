package scoring

import (
	"math"
	"time"

	"src2purl/internal/config"
	"src2purl/internal/provider"
)

const exactBase = 0.9

// fuzzyBaseScale keeps fuzzy matches structurally below exact ones.
const fuzzyBaseScale = 0.5

// Features are the inputs to the confidence model.
type Features struct {
	Kind provider.MatchKind
	// Similarity is used for fuzzy matches only.
	Similarity float64
	VisitCount int
	Official   bool
	// LastSeen is zero when unknown; the missing-timestamp policy applies.
	LastSeen time.Time
}

// FeaturesFromHit builds features for a normalized hit.
func FeaturesFromHit(hit provider.RawHit, official bool) Features {
	return Features{
		Kind:       hit.Kind,
		Similarity: hit.Similarity,
		VisitCount: hit.VisitCount,
		Official:   official,
		LastSeen:   hit.LastSeen,
	}
}

// Breakdown is the per-term contribution used by --explain output.
type Breakdown struct {
	Base       float64 `json:"base"`
	Recency    float64 `json:"recency"`
	Popularity float64 `json:"popularity"`
	Authority  float64 `json:"authority"`
	Total      float64 `json:"total"`
}

// Options tune the model. Zero values fall back to the defaults.
type Options struct {
	Weights          config.Weights
	HalfLife         time.Duration
	PopularityPivot  int
	MissingTimestamp string
	VisitFloor       int
	Now              func() time.Time
}

// OptionsFromConfig maps the [scoring] section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		Weights:          cfg.Scoring.Weights,
		HalfLife:         time.Duration(cfg.Scoring.RecencyHalfLifeDays) * 24 * time.Hour,
		PopularityPivot:  cfg.Scoring.PopularityPivot,
		MissingTimestamp: cfg.Scoring.MissingTimestamp,
		VisitFloor:       cfg.Scoring.HighConfidenceVisitFloor,
	}
}

// Scorer turns match features into a confidence in [0,1].
type Scorer struct {
	opts Options
}

// New returns a scorer.
func New(opts Options) *Scorer {
	if opts.HalfLife <= 0 {
		opts.HalfLife = 365 * 24 * time.Hour
	}
	if opts.PopularityPivot <= 0 {
		opts.PopularityPivot = 10
	}
	if opts.MissingTimestamp == "" {
		opts.MissingTimestamp = config.MissingTimestampNow
	}
	if opts.VisitFloor <= 0 {
		opts.VisitFloor = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scorer{opts: opts}
}

// Score returns the clamped confidence.
func (s *Scorer) Score(f Features) float64 {
	return s.Explain(f).Total
}

// Explain returns every term of the model. Total is clamped to [0,1].
func (s *Scorer) Explain(f Features) Breakdown {
	w := s.opts.Weights
	b := Breakdown{
		Base:       base(f),
		Recency:    nonNegative(w.Recency) * s.recency(f.LastSeen),
		Popularity: nonNegative(w.Popularity) * s.popularity(f.VisitCount),
	}
	if f.Official {
		b.Authority = nonNegative(w.Authority)
	}
	b.Total = clamp(b.Base + b.Recency + b.Popularity + b.Authority)
	return b
}

// HighConfidence reports whether an exact hit is strong enough to stop the
// whole candidate loop: exact, visited more than the floor, and official.
func (s *Scorer) HighConfidence(f Features) bool {
	return f.Kind == provider.MatchExact && f.VisitCount > s.opts.VisitFloor && f.Official
}

func base(f Features) float64 {
	if f.Kind == provider.MatchExact {
		return exactBase
	}
	sim := f.Similarity
	if math.IsNaN(sim) || sim < 0 {
		sim = 0
	}
	if sim > 1 {
		sim = 1
	}
	return fuzzyBaseScale * sim
}

// recency decays by half every HalfLife. Future timestamps count as now.
func (s *Scorer) recency(lastSeen time.Time) float64 {
	if lastSeen.IsZero() {
		switch s.opts.MissingTimestamp {
		case config.MissingTimestampEpoch:
			return 0
		case config.MissingTimestampNeutral:
			return 0.5
		default:
			return 1
		}
	}
	age := s.opts.Now().Sub(lastSeen)
	if age <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(s.opts.HalfLife))
}

// popularity saturates toward 1; the pivot visit count scores one half.
func (s *Scorer) popularity(visits int) float64 {
	if visits <= 0 {
		return 0
	}
	v := float64(visits)
	return v / (v + float64(s.opts.PopularityPivot))
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
