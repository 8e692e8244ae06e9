package manifest

import (
	"context"
	"errors"
	"log/slog"

	"src2purl/internal/coords"
	"src2purl/internal/logging"
	pkgmanifest "src2purl/internal/manifest"
	"src2purl/internal/provider"
)

// Name is the strategy name of the local manifest provider.
const Name = "manifest"

// Similarities assigned to declared URLs.
const (
	RepositorySimilarity = 0.9
	HomepageSimilarity   = 0.7
)

// Provider reads build descriptors in the candidate directory. It makes no
// network calls.
type Provider struct {
	logger *slog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// New creates a manifest provider.
func New(logger *slog.Logger) *Provider {
	return &Provider{logger: logging.NewComponentLogger(logger, "provider.manifest")}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Kind() provider.MatchKind { return provider.MatchFuzzy }

func (p *Provider) Close() error { return nil }

// Find yields one hit per declared repository or homepage URL.
func (p *Provider) Find(ctx context.Context, c provider.Candidate) ([]provider.RawHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	manifests, err := pkgmanifest.Read(c.Path)
	if err != nil {
		if !errors.Is(err, pkgmanifest.ErrMalformed) {
			return nil, provider.Wrap(provider.ErrContract, Name, "read", "read candidate directory", err)
		}
		logging.WarnWithContext(p.logger, "manifest skipped", "manifest_malformed",
			logging.Candidate(c.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the descriptor syntax"),
			logging.String(logging.FieldImpact, "declared metadata from that file is ignored"),
		)
	}
	var hits []provider.RawHit
	seen := make(map[string]struct{})
	for _, m := range manifests {
		target := m.URL()
		if target == "" {
			continue
		}
		if _, ok := coords.Parse(target); !ok {
			continue
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		similarity := HomepageSimilarity
		if m.Repository != "" {
			similarity = RepositorySimilarity
		}
		meta := map[string]string{
			"manifest":  m.File,
			"ecosystem": m.Ecosystem,
		}
		for key, value := range map[string]string{
			provider.MetaName:    m.Name,
			provider.MetaVersion: m.Version,
			provider.MetaLicense: m.License,
		} {
			if value != "" {
				meta[key] = value
			}
		}
		hits = append(hits, provider.RawHit{
			Provider:   Name,
			OriginURL:  target,
			ContentID:  c.ContentID,
			Kind:       provider.MatchFuzzy,
			Similarity: similarity,
			Metadata:   meta,
		}.Normalized())
	}
	return hits, nil
}
