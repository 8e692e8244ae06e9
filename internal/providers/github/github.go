package github

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"src2purl/internal/gateway"
	"src2purl/internal/logging"
	"src2purl/internal/manifest"
	"src2purl/internal/provider"
	"src2purl/internal/providers/internal/similarity"
	"src2purl/internal/scoring"
)

// Name is the strategy name of the repository search provider.
const Name = "github"

const defaultPerPage = 10

type searchResponse struct {
	TotalCount int          `json:"total_count"`
	Items      []repository `json:"items"`
}

type repository struct {
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	HTMLURL         string `json:"html_url"`
	Description     string `json:"description"`
	StargazersCount int    `json:"stargazers_count"`
	PushedAt        string `json:"pushed_at"`
	Fork            bool   `json:"fork"`
	License         *struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
}

// Provider searches GitHub repositories by project-name hints.
type Provider struct {
	baseURL  string
	token    string
	perPage  int
	endpoint *gateway.Endpoint
	hints    func(dir string) []string
	logger   *slog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithHints overrides how name hints are derived from a candidate directory.
func WithHints(fn func(dir string) []string) Option {
	return func(p *Provider) {
		if fn != nil {
			p.hints = fn
		}
	}
}

// New creates a repository search provider. The token is optional but
// unauthenticated search is heavily rate limited.
func New(baseURL, token string, endpoint *gateway.Endpoint, logger *slog.Logger, opts ...Option) (*Provider, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("github base url required")
	}
	if endpoint == nil {
		return nil, errors.New("github endpoint required")
	}
	p := &Provider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    strings.TrimSpace(token),
		perPage:  defaultPerPage,
		endpoint: endpoint,
		hints:    manifest.NameHints,
		logger:   logging.NewComponentLogger(logger, "provider.github"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Kind() provider.MatchKind { return provider.MatchFuzzy }

func (p *Provider) Close() error { return nil }

// Find searches for the strongest name hint of the candidate.
func (p *Provider) Find(ctx context.Context, c provider.Candidate) ([]provider.RawHit, error) {
	hints := p.hints(c.Path)
	if len(hints) == 0 {
		return nil, nil
	}
	hint := hints[0]
	repos, err := p.Search(ctx, hint)
	if err != nil {
		return nil, err
	}
	hits := make([]provider.RawHit, 0, len(repos))
	for _, repo := range repos {
		if repo.HTMLURL == "" {
			continue
		}
		hit := provider.RawHit{
			Provider:   Name,
			OriginURL:  repo.HTMLURL,
			VisitCount: repo.StargazersCount,
			Kind:       provider.MatchFuzzy,
			Similarity: similarity.Name(hint, repo.Name),
			Metadata: map[string]string{
				provider.MetaName:      repo.Name,
				provider.MetaSourceURL: p.baseURL + "/repos/" + repo.FullName,
				"description":          repo.Description,
				"fork":                 strconv.FormatBool(repo.Fork),
			},
		}
		if repo.License != nil && repo.License.SPDXID != "" && repo.License.SPDXID != "NOASSERTION" {
			hit.Metadata[provider.MetaLicense] = repo.License.SPDXID
		}
		if ts, ok := scoring.ParseTimestamp(repo.PushedAt); ok {
			hit.LastSeen = ts
		}
		hits = append(hits, hit.Normalized())
	}
	p.logger.Debug("repository search complete",
		logging.String("hint", hint),
		logging.Int("results", len(hits)),
	)
	return hits, nil
}

// Search runs one repository search restricted to repository names.
func (p *Provider) Search(ctx context.Context, hint string) ([]repository, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return nil, errors.New("search hint must not be empty")
	}
	header := http.Header{
		"Accept":               []string{"application/vnd.github+json"},
		"X-GitHub-Api-Version": []string{"2022-11-28"},
	}
	if p.token != "" {
		header.Set("Authorization", "Bearer "+p.token)
	}
	resp, err := p.endpoint.Do(ctx, gateway.Request{
		Operation: "search_repositories",
		URL:       p.baseURL + "/search/repositories",
		Query: url.Values{
			"q":        []string{hint + " in:name"},
			"per_page": []string{strconv.Itoa(p.perPage)},
		},
		Header: header,
	})
	if err != nil {
		return nil, err
	}
	var body searchResponse
	if err := resp.DecodeJSON(Name, "search_repositories", &body); err != nil {
		return nil, err
	}
	return body.Items, nil
}
