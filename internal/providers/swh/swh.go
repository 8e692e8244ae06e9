package swh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"src2purl/internal/gateway"
	"src2purl/internal/logging"
	"src2purl/internal/provider"
	"src2purl/internal/scan"
	"src2purl/internal/scoring"
	"src2purl/internal/swhid"
)

// Name is the strategy name of the archive provider.
const Name = "swh"

// origin is one entry of an origins listing.
type origin struct {
	URL        string         `json:"url"`
	LastSeen   any            `json:"last_seen"`
	VisitCount json.Number    `json:"visit_count"`
	Metadata   map[string]any `json:"metadata"`
}

// Provider queries the Software Heritage archive for origins containing a
// directory or, failing that, its sampled files.
type Provider struct {
	baseURL  string
	token    string
	endpoint *gateway.Endpoint
	logger   *slog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// New creates an archive provider. Calls go through endpoint.
func New(baseURL, token string, endpoint *gateway.Endpoint, logger *slog.Logger) (*Provider, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("swh base url required")
	}
	if endpoint == nil {
		return nil, errors.New("swh endpoint required")
	}
	return &Provider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    strings.TrimSpace(token),
		endpoint: endpoint,
		logger:   logging.NewComponentLogger(logger, "provider.swh"),
	}, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Kind() provider.MatchKind { return provider.MatchExact }

func (p *Provider) Close() error { return nil }

// Find returns directory origins, or the union of file origins when the
// directory itself is unknown to the archive.
func (p *Provider) Find(ctx context.Context, c provider.Candidate) ([]provider.RawHit, error) {
	dirHash := swhid.Hash(c.ContentID)
	if dirHash == "" {
		return nil, provider.Wrap(provider.ErrContract, Name, "directory_origins", "candidate has no directory identifier", nil)
	}
	hits, err := p.origins(ctx, "directory_origins", "/directory/"+dirHash+"/origins/", c.ContentID, "/directory/"+dirHash+"/")
	if err != nil {
		return nil, err
	}
	if len(hits) > 0 {
		return hits, nil
	}
	return p.fileOrigins(ctx, c.Files())
}

func (p *Provider) fileOrigins(ctx context.Context, files []scan.FileCandidate) ([]provider.RawHit, error) {
	if len(files) == 0 {
		return nil, nil
	}
	results := make([][]provider.RawHit, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		hash := swhid.Hash(f.ContentID)
		if hash == "" {
			continue
		}
		g.Go(func() error {
			hits, err := p.origins(gctx, "content_origins", "/content/sha1_git:"+hash+"/origins/", f.ContentID, "/content/sha1_git:"+hash+"/")
			if err != nil {
				return err
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []provider.RawHit
	seen := make(map[string]struct{})
	for _, hits := range results {
		for _, h := range hits {
			if _, dup := seen[h.OriginURL]; dup {
				continue
			}
			seen[h.OriginURL] = struct{}{}
			out = append(out, h)
		}
	}
	return out, nil
}

func (p *Provider) origins(ctx context.Context, op, path, contentID, browsePath string) ([]provider.RawHit, error) {
	req := gateway.Request{
		Operation:     op,
		URL:           p.baseURL + path,
		AllowNotFound: true,
	}
	if p.token != "" {
		req.Header = http.Header{"Authorization": []string{"Bearer " + p.token}}
	}
	resp, err := p.endpoint.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.NotFound || len(resp.Body) == 0 {
		return nil, nil
	}
	var listing []origin
	if err := resp.DecodeJSON(Name, op, &listing); err != nil {
		// some deployments answer with a single object
		var single origin
		if json.Unmarshal(resp.Body, &single) != nil || single.URL == "" {
			return nil, err
		}
		listing = []origin{single}
	}
	hits := make([]provider.RawHit, 0, len(listing))
	for _, o := range listing {
		if strings.TrimSpace(o.URL) == "" {
			p.logger.Debug("origin without url skipped", logging.String("operation", op))
			continue
		}
		hit := provider.RawHit{
			Provider:   Name,
			OriginURL:  strings.TrimSpace(o.URL),
			ContentID:  contentID,
			VisitCount: visitCount(o.VisitCount),
			Kind:       provider.MatchExact,
			Metadata:   flattenMetadata(o.Metadata),
		}
		if ts, ok := scoring.ParseTimestamp(o.LastSeen); ok {
			hit.LastSeen = ts
		}
		hit.Metadata[provider.MetaSourceURL] = p.baseURL + browsePath
		hits = append(hits, hit.Normalized())
	}
	return hits, nil
}

func visitCount(n json.Number) int {
	if n == "" {
		return 1
	}
	if v, err := n.Int64(); err == nil {
		return int(v)
	}
	if f, err := n.Float64(); err == nil {
		return int(f)
	}
	return 1
}

// flattenMetadata keeps scalar metadata values as strings.
func flattenMetadata(in map[string]any) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		case nil:
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}
