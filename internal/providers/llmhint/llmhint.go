package llmhint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"src2purl/internal/coords"
	"src2purl/internal/gateway"
	"src2purl/internal/logging"
	"src2purl/internal/manifest"
	"src2purl/internal/provider"
)

// Name is the strategy name of the language-model hint provider.
const Name = "llm"

// MaxSimilarity caps model-reported confidence; an answer is a guess.
const MaxSimilarity = 0.6

const (
	readmeExcerptBytes = 1500
	defaultTimeout     = 60 * time.Second
)

const systemPrompt = `You identify the upstream source repository of a local source directory.
Answer with a single JSON object: {"url": "<repository or package page URL>", "name": "<project name>", "confidence": <0..1>}.
Use an empty url when unsure.`

type answer struct {
	URL        string  `json:"url"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Provider asks an OpenAI-compatible chat model for the likely upstream.
type Provider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	hints   func(dir string) []string
	logger  *slog.Logger
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

// WithTimeout bounds each chat completion. Model calls are slower than the
// gateway's default deadline, which the SDK path does not apply.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// New creates the provider. Requests go through endpoint so the shared
// in-flight limit and throttle apply.
func New(baseURL, apiKey, model string, endpoint *gateway.Endpoint, logger *slog.Logger, opts ...Option) (*Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm api key required")
	}
	if endpoint == nil {
		return nil, errors.New("llm endpoint required")
	}
	if strings.TrimSpace(model) == "" {
		model = openai.GPT4oMini
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	clientCfg.HTTPClient = endpoint.Doer()
	p := &Provider{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		timeout: defaultTimeout,
		hints:   manifest.NameHints,
		logger:  logging.NewComponentLogger(logger, "provider.llm"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Kind() provider.MatchKind { return provider.MatchFuzzy }

func (p *Provider) Close() error { return nil }

// Find returns at most one hit: the model's suggested origin.
func (p *Provider) Find(ctx context.Context, c provider.Candidate) ([]provider.RawHit, error) {
	hints := p.hints(c.Path)
	if len(hints) == 0 {
		return nil, nil
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(hints, manifest.ReadmeExcerpt(c.Path, readmeExcerptBytes))},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0,
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, provider.Wrap(provider.ErrMalformed, Name, "chat", "no choices in response", nil)
	}
	content := stripFence(resp.Choices[0].Message.Content)
	var ans answer
	if err := json.Unmarshal([]byte(content), &ans); err != nil {
		return nil, provider.Wrap(provider.ErrMalformed, Name, "chat", "decode answer", err)
	}
	ans.URL = manifest.NormalizeRepoURL(ans.URL)
	if ans.URL == "" {
		return nil, nil
	}
	if _, ok := coords.Parse(ans.URL); !ok {
		p.logger.Debug("llm answer ignored", logging.String("url", ans.URL))
		return nil, nil
	}
	hit := provider.RawHit{
		Provider:   Name,
		OriginURL:  ans.URL,
		ContentID:  c.ContentID,
		Kind:       provider.MatchFuzzy,
		Similarity: min(ans.Confidence, MaxSimilarity),
	}
	if name := strings.TrimSpace(ans.Name); name != "" {
		hit.Metadata = map[string]string{provider.MetaName: name}
	}
	return []provider.RawHit{hit.Normalized()}, nil
}

func userPrompt(hints []string, readme string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project name candidates: %s\n", strings.Join(hints, ", "))
	if readme != "" {
		fmt.Fprintf(&b, "README excerpt:\n%s\n", readme)
	}
	return b.String()
}

// stripFence removes a Markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return provider.StatusError(Name, "chat", apiErr.HTTPStatusCode, 0, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return provider.StatusError(Name, "chat", reqErr.HTTPStatusCode, 0, string(reqErr.Body))
	}
	return provider.Wrap(nil, Name, "chat", "request failed", err)
}
