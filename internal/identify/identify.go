package identify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"src2purl/internal/config"
	"src2purl/internal/logging"
	"src2purl/internal/provider"
	"src2purl/internal/scan"
	"src2purl/internal/scoring"
)

// signal tells the candidate loop whether to go on.
type signal int

const (
	signalContinue signal = iota
	signalStop
)

// run carries per-run state through the candidate loop.
type run struct {
	id       string
	logger   *slog.Logger
	registry *provider.Registry
	scanner  *scan.Scanner
	scorer   *scoring.Scorer
	official func(origin string) bool

	exact []provider.Provider
	fuzzy []provider.Provider

	ran          []string
	ranSet       map[string]struct{}
	failed       []string
	failedSet    map[string]struct{}
	disabled     map[string]struct{}
	terminatedBy string
}

// Identify scans path and returns ranked matches for it.
func (i *Identifier) Identify(ctx context.Context, path string) (Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, i.logger)

	res := Result{
		RunID:     runID,
		Path:      path,
		Threshold: i.cfg.Thresholds.ReportMatch,
	}

	scanner, err := i.scanner.get(ctx)
	if err != nil {
		return res, fmt.Errorf("build scanner: %w", err)
	}
	candidates, err := scanner.Scan(ctx, path)
	if err != nil {
		return res, fmt.Errorf("scan %s: %w", path, err)
	}
	res.Candidates = candidates
	if len(candidates) > 0 {
		res.Path = rootOf(candidates, path)
	}
	logger.Info("identification started",
		logging.String(logging.FieldEventType, "identify_start"),
		logging.String("path", res.Path),
		logging.Int("candidates", len(candidates)),
		logging.Strings("strategies", i.cfg.Strategies.Order),
	)

	r, err := i.newRun(ctx, runID, logger, scanner)
	if err != nil {
		return res, err
	}
	hits, err := i.collect(ctx, r, candidates)
	if err != nil {
		return res, err
	}
	res.StrategiesRun = r.ran
	res.StrategiesFailed = r.failed
	res.Terminated = r.terminatedBy != ""
	res.TerminatedBy = r.terminatedBy

	matches, err := i.finalize(ctx, r, hits)
	if err != nil {
		return res, err
	}
	if i.cfg.Strategies.EnhanceLicenses && len(matches) > 0 {
		enhancer, err := i.licenses.get(ctx)
		if err != nil {
			logging.WarnWithContext(logger, "license enhancement unavailable", "license_enhancer_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the [license] settings"),
				logging.String(logging.FieldImpact, "licenses come from providers only"),
			)
		} else {
			matches = enhancer.Enhance(ctx, res.Path, matches)
		}
	}
	res.Matches = matches
	res.Duration = time.Since(started)
	i.metrics.MatchesReported(len(matches))

	logger.Info("identification finished",
		logging.String(logging.FieldEventType, "identify_complete"),
		logging.Int("matches", len(matches)),
		logging.Strings("strategies_run", res.StrategiesRun),
		logging.Bool("terminated_early", res.Terminated),
		logging.Duration("duration", res.Duration),
	)
	return res, nil
}

// rootOf returns the start candidate's path, which the scanner resolved to
// an absolute path.
func rootOf(candidates []scan.DirectoryCandidate, fallback string) string {
	for _, c := range candidates {
		if c.Depth == 0 && c.Mode == scan.ModeAncestor {
			return c.Path
		}
	}
	return fallback
}

func (i *Identifier) newRun(ctx context.Context, id string, logger *slog.Logger, scanner *scan.Scanner) (*run, error) {
	registry, err := i.registry.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("build provider registry: %w", err)
	}
	scorer, err := i.scorer.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("build scorer: %w", err)
	}
	extractor, err := i.extractor.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}
	r := &run{
		id:        id,
		logger:    logger,
		registry:  registry,
		scanner:   scanner,
		scorer:    scorer,
		official:  extractor.IsOfficialOrganization,
		ranSet:    make(map[string]struct{}),
		failedSet: make(map[string]struct{}),
		disabled:  make(map[string]struct{}),
	}
	for _, name := range i.cfg.Strategies.Order {
		p, err := registry.Get(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.fail(name)
			logging.WarnWithContext(logger, "strategy unavailable", "provider_degraded",
				logging.Strategy(name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hintFor(name, err)),
				logging.String(logging.FieldImpact, "strategy skipped for this run"),
			)
			continue
		}
		if p.Kind() == provider.MatchExact {
			r.exact = append(r.exact, p)
		} else {
			r.fuzzy = append(r.fuzzy, p)
		}
	}
	if !i.cfg.Strategies.EnableFuzzy && len(r.fuzzy) > 0 {
		logger.Debug("fuzzy strategies disabled",
			logging.Args(append(logging.DecisionAttrs("fuzzy_matching", "skipped", "enable_fuzzy is false"),
				logging.Int("strategies", len(r.fuzzy)))...)...)
		r.fuzzy = nil
	}
	return r, nil
}

// collect walks candidates in scanner order and accumulates hits until the
// candidates run out or a candidate signals stop.
func (i *Identifier) collect(ctx context.Context, r *run, candidates []scan.DirectoryCandidate) ([]provider.RawHit, error) {
	var all []provider.RawHit
	for idx, dc := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidate := provider.NewCandidate(dc, func() []scan.FileCandidate { return r.scanner.Files(dc.Path) })
		hits, sig, err := i.processCandidate(ctx, r, candidate)
		if err != nil {
			return nil, err
		}
		all = append(all, hits...)
		i.metrics.CandidateScanned()
		if i.progress != nil {
			i.progress(Progress{Done: idx + 1, Total: len(candidates), Candidate: dc.Path})
		}
		if sig == signalStop {
			i.metrics.EarlyTermination()
			skipped := len(candidates) - idx - 1
			r.logger.Info("early termination",
				logging.Args(append(logging.DecisionAttrs("early_termination", "stopped", "high-confidence exact match"),
					logging.Candidate(dc.Path),
					logging.Strategy(r.terminatedBy),
					logging.Int("candidates_skipped", skipped))...)...)
			if i.progress != nil && skipped > 0 {
				i.progress(Progress{Done: len(candidates), Total: len(candidates), Candidate: dc.Path})
			}
			break
		}
	}
	return all, nil
}

// processCandidate queries exact strategies, then fuzzy ones when no exact
// hit was found. Provider errors become zero hits.
func (i *Identifier) processCandidate(ctx context.Context, r *run, c provider.Candidate) ([]provider.RawHit, signal, error) {
	var hits []provider.RawHit
	exactFound := false
	for _, p := range r.exact {
		found, err := r.query(ctx, p, c)
		if err != nil {
			return nil, signalStop, err
		}
		for _, hit := range found {
			if hit.Kind != provider.MatchExact {
				continue
			}
			exactFound = true
			if r.scorer.HighConfidence(scoring.FeaturesFromHit(hit, r.official(hit.OriginURL))) {
				r.terminatedBy = p.Name()
				return append(hits, found...), signalStop, nil
			}
		}
		hits = append(hits, found...)
	}
	if exactFound || len(r.fuzzy) == 0 {
		if exactFound && len(r.fuzzy) > 0 {
			r.logger.Debug("fuzzy strategies skipped",
				logging.Args(append(logging.DecisionAttrs("fuzzy_matching", "skipped", "exact hit found"),
					logging.Candidate(c.Path))...)...)
		}
		return hits, signalContinue, nil
	}
	for _, p := range r.fuzzy {
		found, err := r.query(ctx, p, c)
		if err != nil {
			return nil, signalStop, err
		}
		hits = append(hits, found...)
	}
	return hits, signalContinue, nil
}

// query runs one strategy for one candidate. Only cancellation is returned
// as an error; every provider failure degrades to no hits.
func (r *run) query(ctx context.Context, p provider.Provider, c provider.Candidate) ([]provider.RawHit, error) {
	name := p.Name()
	if _, off := r.disabled[name]; off {
		return nil, nil
	}
	found, err := p.Find(ctx, c)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.degrade(name, c, err)
		return nil, nil
	}
	r.mark(name)
	hits := make([]provider.RawHit, 0, len(found))
	for _, hit := range found {
		if hit.OriginURL == "" {
			continue
		}
		if hit.Provider == "" {
			hit.Provider = name
		}
		if hit.ContentID == "" {
			hit.ContentID = c.ContentID
		}
		hits = append(hits, hit.Normalized())
	}
	r.logger.Debug("strategy answered",
		logging.Strategy(name),
		logging.Candidate(c.Path),
		logging.Int("hits", len(hits)),
	)
	return hits, nil
}

// degrade logs a provider failure. Contract and auth failures will not
// improve on the next candidate, so the strategy is switched off for the
// rest of the run.
func (r *run) degrade(name string, c provider.Candidate, err error) {
	r.fail(name)
	kind := provider.Classify(err)
	impact := "no hits from this strategy for this candidate"
	if errors.Is(kind, provider.ErrContract) || errors.Is(kind, provider.ErrAuth) {
		r.disabled[name] = struct{}{}
		impact = "strategy disabled for the rest of this run"
	}
	logging.WarnWithContext(r.logger, "strategy degraded", "provider_degraded",
		logging.Strategy(name),
		logging.Candidate(c.Path),
		logging.String("error_kind", kindName(kind)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(name, err)),
		logging.String(logging.FieldImpact, impact),
	)
}

func (r *run) mark(name string) {
	if _, ok := r.ranSet[name]; ok {
		return
	}
	r.ranSet[name] = struct{}{}
	r.ran = append(r.ran, name)
}

func (r *run) fail(name string) {
	if _, ok := r.failedSet[name]; ok {
		return
	}
	r.failedSet[name] = struct{}{}
	r.failed = append(r.failed, name)
}

func kindName(kind error) string {
	switch {
	case errors.Is(kind, provider.ErrRateLimited):
		return "rate_limited"
	case errors.Is(kind, provider.ErrNotFound):
		return "not_found"
	case errors.Is(kind, provider.ErrMalformed):
		return "malformed"
	case errors.Is(kind, provider.ErrContract):
		return "contract"
	case errors.Is(kind, provider.ErrAuth):
		return "auth"
	default:
		return "transient"
	}
}

func hintFor(strategy string, err error) string {
	switch {
	case errors.Is(err, provider.ErrAuth):
		return "check the token for providers." + strategy
	case errors.Is(err, provider.ErrRateLimited):
		return "add an API token or raise providers." + strategy + ".min_interval_ms"
	case strategy == config.StrategyLLM:
		return "set providers.llm.api_key or disable strategies.llm_hints"
	default:
		return "rerun with --verbose for details"
	}
}
