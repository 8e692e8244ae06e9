package rank

import (
	"cmp"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"src2purl/internal/coords"
	"src2purl/internal/logging"
)

// Mode selects how base-repository URLs are keyed for deduplication.
type Mode string

const (
	// ModeSegments keys github.com and gitlab.com URLs by their first five
	// slash-separated parts and every other URL by itself.
	ModeSegments Mode = "segments"
	// ModeCanonical additionally folds case, www., .git suffixes and
	// trailing slashes, and treats bitbucket.org like the other forges.
	ModeCanonical Mode = "canonical"
)

// ParseMode maps a configuration value onto a Mode; unknown values select
// ModeSegments.
func ParseMode(v string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(v))) == ModeCanonical {
		return ModeCanonical
	}
	return ModeSegments
}

var segmentHosts = []string{"github.com", "gitlab.com"}

var canonicalForges = map[string]bool{
	"github.com":    true,
	"gitlab.com":    true,
	"bitbucket.org": true,
}

// Ranker collapses duplicate matches and orders the survivors.
type Ranker struct {
	mode   Mode
	logger *slog.Logger
}

// New returns a Ranker. A nil logger discards decision logs.
func New(mode Mode, logger *slog.Logger) *Ranker {
	if mode != ModeCanonical {
		mode = ModeSegments
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Ranker{mode: mode, logger: logging.NewComponentLogger(logger, "rank")}
}

// Mode reports the active key mode.
func (r *Ranker) Mode() Mode { return r.mode }

// Finalize keeps the highest-confidence match per base repository, the
// first one winning exact ties, then orders official matches first and
// by confidence descending. Input order breaks remaining ties.
func (r *Ranker) Finalize(matches []ScoredMatch) []ScoredMatch {
	if len(matches) == 0 {
		return []ScoredMatch{}
	}
	index := make(map[string]int, len(matches))
	out := make([]ScoredMatch, 0, len(matches))
	for _, m := range matches {
		key := r.Key(m.DownloadURL)
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, m)
			continue
		}
		result := "dropped"
		if m.Confidence > out[i].Confidence {
			out[i] = m
			result = "replaced"
		}
		r.logger.Debug("duplicate match collapsed",
			logging.Args(append(logging.DecisionAttrs("dedup", result, "same base repository"),
				logging.String("key", key),
				logging.String("download_url", m.DownloadURL),
				logging.Float64("confidence", m.Confidence),
			)...)...)
	}
	slices.SortStableFunc(out, func(a, b ScoredMatch) int {
		if a.Official != b.Official {
			if a.Official {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	return out
}

// Key returns the deduplication key for a download URL.
func (r *Ranker) Key(raw string) string {
	if r.mode == ModeCanonical {
		return canonicalKey(raw)
	}
	return segmentKey(raw)
}

func segmentKey(raw string) string {
	for _, host := range segmentHosts {
		if strings.Contains(raw, host) {
			parts := strings.Split(raw, "/")
			if len(parts) >= 5 {
				return strings.Join(parts[:5], "/")
			}
			return raw
		}
	}
	return raw
}

func canonicalKey(raw string) string {
	trimmed := strings.TrimSpace(raw)
	loc, ok := coords.Parse(trimmed)
	if !ok {
		return strings.TrimRight(trimmed, "/")
	}
	if canonicalForges[loc.Host] && loc.Namespace != "" && loc.Name != "" {
		return loc.Host + "/" + strings.ToLower(loc.Namespace) + "/" + strings.ToLower(loc.Name)
	}
	p := strings.TrimSuffix(strings.TrimRight(loc.URL.EscapedPath(), "/"), ".git")
	key := loc.Host + p
	if loc.URL.RawQuery != "" {
		q, err := url.ParseQuery(loc.URL.RawQuery)
		if err == nil {
			key += "?" + q.Encode()
		}
	}
	return key
}
