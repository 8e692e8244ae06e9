package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"src2purl/internal/config"
	"src2purl/internal/logging"
	"src2purl/internal/swhid"
)

// Options controls candidate discovery.
type Options struct {
	MaxDepth          int
	MinFiles          int
	SpecificityWeight float64
	StableDirsEnabled bool
	StableDirs        []string
	StableMinFiles    int
	StableSpecificity float64
	MaxStable         int
	IncludeSubmodules bool
	MaxFileCandidates int
	MaxFileBytes      int64
	RelevantFileLimit int
}

// OptionsFromConfig maps the scan and scoring sections onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	return Options{
		MaxDepth:          cfg.Scan.MaxDepth,
		MinFiles:          cfg.Scan.MinFiles,
		SpecificityWeight: cfg.Scoring.Weights.Specificity,
		StableDirsEnabled: cfg.Scan.StableDirsEnabled,
		StableDirs:        append([]string(nil), cfg.Scan.StableDirs...),
		StableMinFiles:    cfg.Scan.StableMinFiles,
		StableSpecificity: cfg.Scan.StableSpecificity,
		MaxStable:         cfg.Scan.MaxStable,
		IncludeSubmodules: cfg.Scan.IncludeSubmodules,
		MaxFileCandidates: cfg.Scan.MaxFileCandidates,
		MaxFileBytes:      cfg.Scan.MaxFileBytes,
		RelevantFileLimit: cfg.Scan.RelevantFileLimit,
	}
}

// Scanner produces ranked directory and file candidates for a start path.
type Scanner struct {
	opts   Options
	ids    *swhid.Identifier
	logger *slog.Logger
}

// New constructs a Scanner. A nil identifier gets a fresh memoizing one.
func New(opts Options, ids *swhid.Identifier, logger *slog.Logger) *Scanner {
	if ids == nil {
		ids = swhid.New()
	}
	if opts.RelevantFileLimit <= 0 {
		opts.RelevantFileLimit = 1000
	}
	return &Scanner{opts: opts, ids: ids, logger: logging.NewComponentLogger(logger, "scan")}
}

// Identifier exposes the content identifier shared with file candidates.
func (s *Scanner) Identifier() *swhid.Identifier { return s.ids }

// Scan walks the ancestor chain of start, then the stable subdirectories and
// submodules below it, and returns candidates with duplicate content IDs
// removed (first occurrence kept). Directory-level filesystem errors never
// abort the scan; only a missing or non-directory start path is an error.
func (s *Scanner) Scan(ctx context.Context, start string) ([]DirectoryCandidate, error) {
	root, err := resolveStart(start)
	if err != nil {
		return nil, err
	}

	candidates := s.scanAncestors(ctx, root)
	if s.opts.StableDirsEnabled {
		candidates = append(candidates, s.scanStable(ctx, root)...)
	}
	if s.opts.IncludeSubmodules {
		candidates = append(candidates, s.scanSubmodules(ctx, root)...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		if _, ok := seen[c.ContentID]; ok {
			s.logger.Debug("duplicate candidate dropped",
				logging.Args(append(logging.DecisionAttrs("candidate_dedup", "dropped", "content id already scanned"),
					logging.Candidate(c.Path))...)...)
			continue
		}
		seen[c.ContentID] = struct{}{}
		unique = append(unique, c)
	}
	s.logger.Debug("scan complete", logging.String("start", root), logging.Int("candidates", len(unique)))
	return unique, nil
}

func resolveStart(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &swhid.PathError{Path: abs, Want: "directory", Err: swhid.ErrNotExist}
		}
		return "", fmt.Errorf("stat start path: %w", err)
	}
	if !info.IsDir() {
		return "", &swhid.PathError{Path: abs, Want: "directory", Err: swhid.ErrWrongKind}
	}
	return abs, nil
}

func (s *Scanner) scanAncestors(ctx context.Context, start string) []DirectoryCandidate {
	var out []DirectoryCandidate
	current := start
	for depth := 0; depth <= s.opts.MaxDepth; depth++ {
		if ctx.Err() != nil {
			return out
		}
		isStart := depth == 0
		if s.meaningful(current, isStart) {
			if c, ok := s.buildAncestor(ctx, current, depth, isStart); ok {
				out = append(out, c)
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Specificity > out[j].Specificity })
	return out
}

func (s *Scanner) buildAncestor(ctx context.Context, dir string, depth int, isStart bool) (DirectoryCandidate, bool) {
	id, err := s.ids.Dir(ctx, dir)
	if err != nil {
		s.logger.Debug("candidate skipped",
			logging.Args(append(logging.DecisionAttrs("candidate_accept", "skipped", "content id unavailable"),
				logging.Candidate(dir), logging.Error(err))...)...)
		return DirectoryCandidate{}, false
	}
	fileCount := s.countRelevant(dir)
	indicators := IndicatorScore(dir)
	c := DirectoryCandidate{
		Path:           dir,
		ContentID:      id,
		Depth:          depth,
		Specificity:    Specificity(depth, isStart, fileCount, indicators, s.opts.SpecificityWeight),
		FileCount:      fileCount,
		IndicatorScore: indicators,
		Mode:           ModeAncestor,
	}
	s.logger.Debug("candidate accepted",
		logging.Candidate(dir),
		logging.Int("depth", depth),
		logging.Int("file_count", fileCount),
		logging.Float64("specificity", c.Specificity),
	)
	return c, true
}

// meaningful decides whether dir likely holds package content.
func (s *Scanner) meaningful(dir string, isStart bool) bool {
	name := filepath.Base(dir)
	if IsSkipDir(name) {
		return false
	}
	if !isStart && isHidden(name) {
		return false
	}
	if !readable(dir) {
		return false
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	count := 0
	for _, e := range entries {
		if e.Type().IsRegular() && IsSourceFile(e.Name()) {
			count++
			if count >= s.opts.MinFiles {
				return true
			}
		}
	}
	for _, e := range entries {
		if !e.IsDir() || IsSkipDir(e.Name()) || isHidden(e.Name()) {
			continue
		}
		sub, err := os.ReadDir(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		for _, f := range sub {
			if f.Type().IsRegular() && IsSourceFile(f.Name()) {
				count++
				if count >= s.opts.MinFiles || count > subdirEarlyAccept {
					return true
				}
			}
		}
	}
	if count > 0 && IndicatorScore(dir) > 0 {
		return true
	}
	return count >= s.opts.MinFiles
}

// countRelevant counts source files below dir, pruning skip and hidden
// directories and stopping once the configured limit is exceeded.
func (s *Scanner) countRelevant(dir string) int {
	count := 0
	errStop := errors.New("limit reached")
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != dir && (IsSkipDir(d.Name()) || isHidden(d.Name())) {
				return fs.SkipDir
			}
			return nil
		}
		if IsSourceFile(d.Name()) {
			count++
			if count > s.opts.RelevantFileLimit {
				return errStop
			}
		}
		return nil
	})
	return count
}

// countFiles counts every regular file below dir, hidden ones included, up
// to limit.
func countFiles(dir string, limit int) int {
	count := 0
	errStop := errors.New("limit reached")
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			count++
			if count >= limit {
				return errStop
			}
		}
		return nil
	})
	return count
}
