package scanoss

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"src2purl/internal/gateway"
	"src2purl/internal/logging"
	"src2purl/internal/provider"
	"src2purl/internal/scan"
	"src2purl/internal/scoring"
)

// Name is the strategy name of the fingerprint provider.
const Name = "scanoss"

// match is one entry of a scan result.
type match struct {
	ID          string    `json:"id"`
	Matched     string    `json:"matched"`
	Component   string    `json:"component"`
	Vendor      string    `json:"vendor"`
	Version     string    `json:"version"`
	URL         string    `json:"url"`
	ReleaseDate string    `json:"release_date"`
	Licenses    []license `json:"licenses"`
	Purl        []string  `json:"purl"`
}

type license struct {
	Name string `json:"name"`
}

// Provider submits file fingerprints to a SCANOSS knowledge base.
type Provider struct {
	baseURL  string
	apiKey   string
	endpoint *gateway.Endpoint
	logger   *slog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// New creates a fingerprint provider. apiKey may be empty for the public
// knowledge base.
func New(baseURL, apiKey string, endpoint *gateway.Endpoint, logger *slog.Logger) (*Provider, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("scanoss base url required")
	}
	if endpoint == nil {
		return nil, errors.New("scanoss endpoint required")
	}
	return &Provider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   strings.TrimSpace(apiKey),
		endpoint: endpoint,
		logger:   logging.NewComponentLogger(logger, "provider.scanoss"),
	}, nil
}

func (p *Provider) Name() string { return Name }

// Kind reports exact: whole-file matches are content identity. Snippet
// matches in the same response come back as fuzzy hits.
func (p *Provider) Kind() provider.MatchKind { return provider.MatchExact }

func (p *Provider) Close() error { return nil }

// Find fingerprints the candidate's sampled files and submits them in one
// request.
func (p *Provider) Find(ctx context.Context, c provider.Candidate) ([]provider.RawHit, error) {
	files := c.Files()
	if len(files) == 0 {
		return nil, nil
	}
	wfp, err := Fingerprint(c.Path, files)
	if err != nil {
		return nil, provider.Wrap(provider.ErrContract, Name, "fingerprint", "read sampled files", err)
	}
	body, contentType, err := formBody(wfp)
	if err != nil {
		return nil, provider.Wrap(provider.ErrContract, Name, "fingerprint", "encode request", err)
	}
	header := http.Header{"Content-Type": []string{contentType}}
	if p.apiKey != "" {
		header.Set("X-Session", p.apiKey)
	}
	resp, err := p.endpoint.Do(ctx, gateway.Request{
		Operation: "scan_direct",
		Method:    http.MethodPost,
		URL:       p.baseURL + "/scan/direct",
		Header:    header,
		Body:      body,
	})
	if err != nil {
		return nil, err
	}
	var results map[string][]match
	if err := resp.DecodeJSON(Name, "scan_direct", &results); err != nil {
		return nil, err
	}
	return p.hits(results), nil
}

// Fingerprint renders file-level WFP records ("file=<md5>,<size>,<path>")
// with paths relative to root.
func Fingerprint(root string, files []scan.FileCandidate) ([]byte, error) {
	var buf bytes.Buffer
	for _, f := range files {
		sum, size, err := md5File(f.Path)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(root, f.Path)
		if err != nil || strings.HasPrefix(rel, "..") {
			rel = filepath.Base(f.Path)
		}
		fmt.Fprintf(&buf, "file=%s,%d,%s\n", sum, size, filepath.ToSlash(rel))
	}
	return buf.Bytes(), nil
}

func md5File(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := md5.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

const formBoundary = "src2purl-wfp-3c1f9a7e52"

func formBody(wfp []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	// a fixed boundary keeps identical fingerprints on the same cache key
	if err := w.SetBoundary(formBoundary); err != nil {
		return nil, "", err
	}
	part, err := w.CreateFormFile("file", "scan.wfp")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(wfp); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func (p *Provider) hits(results map[string][]match) []provider.RawHit {
	paths := make([]string, 0, len(results))
	for path := range results {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var out []provider.RawHit
	seen := make(map[string]int)
	for _, path := range paths {
		for _, m := range results[path] {
			hit, ok := p.toHit(path, m)
			if !ok {
				continue
			}
			// keep the strongest evidence per origin
			if i, dup := seen[hit.OriginURL]; dup {
				if hit.Kind == provider.MatchExact && out[i].Kind != provider.MatchExact ||
					hit.Kind == out[i].Kind && hit.Similarity > out[i].Similarity {
					out[i] = hit
				}
				continue
			}
			seen[hit.OriginURL] = len(out)
			out = append(out, hit)
		}
	}
	return out
}

func (p *Provider) toHit(path string, m match) (provider.RawHit, bool) {
	url := strings.TrimSpace(m.URL)
	if m.ID == "none" || m.ID == "" || url == "" {
		return provider.RawHit{}, false
	}
	hit := provider.RawHit{
		Provider: Name,
		// SCANOSS reports no visit data; one observation is all it attests
		VisitCount: 1,
		OriginURL:  url,
		Metadata: map[string]string{
			provider.MetaName:    m.Component,
			provider.MetaVersion: m.Version,
			"vendor":             m.Vendor,
			"file":               path,
		},
	}
	if len(m.Licenses) > 0 {
		hit.Metadata[provider.MetaLicense] = m.Licenses[0].Name
	}
	if len(m.Purl) > 0 {
		hit.Metadata["purl"] = m.Purl[0]
	}
	if ts, ok := scoring.ParseTimestamp(m.ReleaseDate); ok {
		hit.LastSeen = ts
	}
	switch m.ID {
	case "file":
		hit.Kind = provider.MatchExact
	case "snippet":
		hit.Kind = provider.MatchFuzzy
		hit.Similarity = parsePercent(m.Matched)
	default:
		p.logger.Debug("unknown match id skipped", logging.String("id", m.ID))
		return provider.RawHit{}, false
	}
	return hit.Normalized(), true
}

func parsePercent(v string) float64 {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f / 100
}
