package websearch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"src2purl/internal/coords"
	"src2purl/internal/gateway"
	"src2purl/internal/logging"
	"src2purl/internal/manifest"
	"src2purl/internal/provider"
	"src2purl/internal/providers/internal/similarity"
)

// Name is the strategy name of the web search provider.
const Name = "web_search"

const maxResults = 10

// Provider searches an HTML web search endpoint and keeps result links that
// point at recognised forges or registries.
type Provider struct {
	baseURL  string
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

// New creates a web search provider.
func New(baseURL string, endpoint *gateway.Endpoint, logger *slog.Logger, opts ...Option) (*Provider, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("web search base url required")
	}
	if endpoint == nil {
		return nil, errors.New("web search endpoint required")
	}
	p := &Provider{
		baseURL:  baseURL,
		endpoint: endpoint,
		hints:    manifest.NameHints,
		logger:   logging.NewComponentLogger(logger, "provider.web_search"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Kind() provider.MatchKind { return provider.MatchFuzzy }

func (p *Provider) Close() error { return nil }

// Find searches for "<hint> source code repository".
func (p *Provider) Find(ctx context.Context, c provider.Candidate) ([]provider.RawHit, error) {
	hints := p.hints(c.Path)
	if len(hints) == 0 {
		return nil, nil
	}
	hint := hints[0]
	resp, err := p.endpoint.Do(ctx, gateway.Request{
		Operation: "search",
		URL:       p.baseURL,
		Query:     url.Values{"q": []string{hint + " source code repository"}},
		Header:    http.Header{"Accept": []string{"text/html"}},
	})
	if err != nil {
		return nil, err
	}
	links, err := ResultLinks(resp.Body)
	if err != nil {
		return nil, provider.Wrap(provider.ErrMalformed, Name, "search", "parse results page", err)
	}
	var hits []provider.RawHit
	seen := make(map[string]struct{})
	for _, link := range links {
		loc, ok := coords.Parse(link)
		if !ok || loc.Ecosystem == "" {
			continue
		}
		name := loc.Name
		if name == "" && len(loc.Segments) > 0 {
			name = loc.Segments[len(loc.Segments)-1]
		}
		if name == "" {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		hits = append(hits, provider.RawHit{
			Provider:   Name,
			OriginURL:  link,
			Kind:       provider.MatchFuzzy,
			Similarity: similarity.Name(hint, name),
			Metadata:   map[string]string{provider.MetaSourceURL: link},
		}.Normalized())
		if len(hits) >= maxResults {
			break
		}
	}
	p.logger.Debug("web search complete", logging.String("hint", hint), logging.Int("links", len(links)), logging.Int("results", len(hits)))
	return hits, nil
}

// ResultLinks extracts result URLs from a search results page. Redirect
// wrappers carrying the target in a uddg parameter are unwrapped. Anchors
// marked with the result__a class are preferred; pages without them fall
// back to every absolute http(s) anchor.
func ResultLinks(page []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}
	var marked, all []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href, class := attr(n, "href"), attr(n, "class")
			if target := unwrap(href); target != "" {
				all = append(all, target)
				if strings.Contains(class, "result__a") {
					marked = append(marked, target)
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	if len(marked) > 0 {
		return marked, nil
	}
	return all, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func unwrap(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return unwrap(target)
	}
	return u.String()
}
