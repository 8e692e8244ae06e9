package identify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"src2purl/internal/config"
	"src2purl/internal/coords"
	"src2purl/internal/license"
	"src2purl/internal/logging"
	"src2purl/internal/metrics"
	"src2purl/internal/provider"
	"src2purl/internal/purl"
	"src2purl/internal/rank"
	"src2purl/internal/scan"
	"src2purl/internal/scoring"
)

// LicenseEnhancer folds a local license scan into ranked matches.
type LicenseEnhancer interface {
	Enhance(ctx context.Context, dir string, matches []rank.ScoredMatch) []rank.ScoredMatch
}

// Progress reports candidate processing.
type Progress struct {
	Done      int
	Total     int
	Candidate string
}

// Identifier runs identifications against one configuration.
type Identifier struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	progress func(Progress)

	scanner   *slot[*scan.Scanner]
	registry  *slot[*provider.Registry]
	scorer    *slot[*scoring.Scorer]
	extractor *slot[*coords.Extractor]
	generator *slot[*purl.Generator]
	ranker    *slot[*rank.Ranker]
	licenses  *slot[LicenseEnhancer]

	mu      sync.Mutex
	closers []io.Closer
}

// Option configures an Identifier.
type Option func(*Identifier)

// WithScanner injects the candidate scanner.
func WithScanner(s *scan.Scanner) Option {
	return func(i *Identifier) {
		if s != nil {
			i.scanner = fixedSlot(s)
		}
	}
}

// WithRegistry injects a provider registry. The caller keeps ownership and
// closes it.
func WithRegistry(r *provider.Registry) Option {
	return func(i *Identifier) {
		if r != nil {
			i.registry = fixedSlot(r)
		}
	}
}

// WithScorer injects the confidence scorer.
func WithScorer(s *scoring.Scorer) Option {
	return func(i *Identifier) {
		if s != nil {
			i.scorer = fixedSlot(s)
		}
	}
}

// WithGenerator injects the purl generator.
func WithGenerator(g *purl.Generator) Option {
	return func(i *Identifier) {
		if g != nil {
			i.generator = fixedSlot(g)
		}
	}
}

// WithRanker injects the deduplicator.
func WithRanker(r *rank.Ranker) Option {
	return func(i *Identifier) {
		if r != nil {
			i.ranker = fixedSlot(r)
		}
	}
}

// WithLicenses injects the license enhancer used when enhancement is enabled.
func WithLicenses(l LicenseEnhancer) Option {
	return func(i *Identifier) {
		if l != nil {
			i.licenses = fixedSlot(l)
		}
	}
}

// WithMetrics records run counters on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Identifier) { i.metrics = m }
}

// WithProgress registers a callback invoked after each candidate.
func WithProgress(fn func(Progress)) Option {
	return func(i *Identifier) { i.progress = fn }
}

// New builds an Identifier. Nothing is constructed until the first run.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Identifier {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	i := &Identifier{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "identify"),
	}
	i.scanner = newSlot(func(context.Context) (*scan.Scanner, error) {
		return scan.New(scan.OptionsFromConfig(i.cfg), nil, logger), nil
	})
	i.registry = newSlot(func(ctx context.Context) (*provider.Registry, error) {
		p, err := OpenProviders(ctx, i.cfg, i.metrics, logger)
		if err != nil {
			return nil, err
		}
		i.own(p)
		return p.Registry, nil
	})
	i.scorer = newSlot(func(context.Context) (*scoring.Scorer, error) {
		return scoring.New(scoring.OptionsFromConfig(i.cfg)), nil
	})
	i.extractor = newSlot(func(context.Context) (*coords.Extractor, error) {
		return coords.NewExtractor(), nil
	})
	i.generator = newSlot(func(context.Context) (*purl.Generator, error) {
		return purl.FromConfig(i.cfg), nil
	})
	i.ranker = newSlot(func(context.Context) (*rank.Ranker, error) {
		return rank.New(rank.ParseMode(i.cfg.Strategies.DedupMode), logger), nil
	})
	i.licenses = newSlot(func(context.Context) (LicenseEnhancer, error) {
		e, err := license.EnhancerFromConfig(i.cfg, logger)
		if err != nil {
			return nil, err
		}
		return e, nil
	})
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Config returns the configuration runs use.
func (i *Identifier) Config() *config.Config { return i.cfg }

func (i *Identifier) own(c io.Closer) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closers = append(i.closers, c)
}

// Close releases everything the identifier's own factories opened, newest
// first. Injected collaborators are left to their owners.
func (i *Identifier) Close() error {
	i.mu.Lock()
	closers := i.closers
	i.closers = nil
	i.mu.Unlock()
	var errs []error
	for idx := len(closers) - 1; idx >= 0; idx-- {
		errs = append(errs, closers[idx].Close())
	}
	return errors.Join(errs...)
}
