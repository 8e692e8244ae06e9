package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitconfig "github.com/go-git/go-git/v5/config"

	"src2purl/internal/logging"
)

// scanStable adds the named stable subdirectories one level below root.
// They rarely change between releases, so they often match when the root does not.
func (s *Scanner) scanStable(ctx context.Context, root string) []DirectoryCandidate {
	var out []DirectoryCandidate
	for _, name := range s.opts.StableDirs {
		if s.opts.MaxStable > 0 && len(out) >= s.opts.MaxStable {
			break
		}
		if ctx.Err() != nil {
			return out
		}
		if c, ok := s.buildAuxiliary(ctx, filepath.Join(root, name), ModeStable); ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *Scanner) scanSubmodules(ctx context.Context, root string) []DirectoryCandidate {
	subs, err := Submodules(root)
	if err != nil {
		s.logger.Debug("submodule detection failed", logging.String("root", root), logging.Error(err))
		return nil
	}
	var out []DirectoryCandidate
	for _, sub := range subs {
		if ctx.Err() != nil {
			return out
		}
		if c, ok := s.buildAuxiliary(ctx, sub.Path, ModeSubmodule); ok {
			out = append(out, c)
		}
	}
	return out
}

func (s *Scanner) buildAuxiliary(ctx context.Context, dir string, mode Mode) (DirectoryCandidate, bool) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() || !readable(dir) {
		return DirectoryCandidate{}, false
	}
	minFiles := max(s.opts.StableMinFiles, 1)
	count := countFiles(dir, max(minFiles, s.opts.RelevantFileLimit))
	if count < minFiles {
		return DirectoryCandidate{}, false
	}
	id, err := s.ids.Dir(ctx, dir)
	if err != nil {
		s.logger.Debug("auxiliary candidate skipped", logging.Candidate(dir), logging.Error(err))
		return DirectoryCandidate{}, false
	}
	return DirectoryCandidate{
		Path:           dir,
		ContentID:      id,
		Depth:          AuxiliaryDepth,
		Specificity:    s.opts.StableSpecificity,
		FileCount:      count,
		IndicatorScore: IndicatorScore(dir),
		Mode:           mode,
	}, true
}

// Submodule is one entry of a .gitmodules file whose checkout exists on disk.
type Submodule struct {
	Name string
	Path string
	URL  string
}

// Submodules parses repo/.gitmodules and returns the submodules that are
// checked out, ordered by name. A missing .gitmodules yields no entries.
func Submodules(repo string) ([]Submodule, error) {
	data, err := os.ReadFile(filepath.Join(repo, ".gitmodules"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read .gitmodules: %w", err)
	}
	modules := gitconfig.NewModules()
	if err := modules.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("parse .gitmodules: %w", err)
	}

	names := make([]string, 0, len(modules.Submodules))
	for name := range modules.Submodules {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Submodule
	for _, name := range names {
		sub := modules.Submodules[name]
		if sub == nil || strings.TrimSpace(sub.Path) == "" {
			continue
		}
		path := filepath.Join(repo, filepath.FromSlash(sub.Path))
		rel, err := filepath.Rel(repo, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if info, err := os.Stat(path); err != nil || !info.IsDir() {
			continue
		}
		out = append(out, Submodule{Name: name, Path: path, URL: sub.URL})
	}
	return out, nil
}

// Files samples up to MaxFileCandidates source files below dir for
// file-hash strategies, largest first with ties broken by path.
func (s *Scanner) Files(dir string) []FileCandidate {
	limit := s.opts.MaxFileCandidates
	if limit <= 0 {
		return nil
	}
	type entry struct {
		path string
		size int64
	}
	var pool []entry
	visited := 0
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
		if isHidden(d.Name()) || !d.Type().IsRegular() || !IsSourceFile(d.Name()) {
			return nil
		}
		visited++
		if visited > s.opts.RelevantFileLimit {
			return errStop
		}
		info, err := d.Info()
		if err != nil || info.Size() == 0 || (s.opts.MaxFileBytes > 0 && info.Size() > s.opts.MaxFileBytes) {
			return nil
		}
		pool = append(pool, entry{path: path, size: info.Size()})
		return nil
	})
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].size != pool[j].size {
			return pool[i].size > pool[j].size
		}
		return pool[i].path < pool[j].path
	})

	out := make([]FileCandidate, 0, min(limit, len(pool)))
	for _, e := range pool {
		if len(out) >= limit {
			break
		}
		id, err := s.ids.File(e.path)
		if err != nil {
			continue
		}
		out = append(out, FileCandidate{Path: e.path, ContentID: id, Size: e.size})
	}
	return out
}
