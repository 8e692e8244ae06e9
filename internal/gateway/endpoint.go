package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"src2purl/internal/cache"
	"src2purl/internal/logging"
	"src2purl/internal/metrics"
	"src2purl/internal/provider"
)

// Request describes one logical provider call. Retries reuse it verbatim.
type Request struct {
	// Operation names the call for cache keys, logs, and errors.
	Operation string
	Method    string
	URL       string
	Query     url.Values
	Header    http.Header
	Body      []byte
	// AllowNotFound turns a 404 into an empty response instead of an error.
	AllowNotFound bool
	// NoCache bypasses the response cache in both directions.
	NoCache bool
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Cached     bool
	NotFound   bool
}

// DecodeJSON unmarshals the body into v, tagging failures as malformed.
func (r Response) DecodeJSON(providerName, operation string, v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return provider.Wrap(provider.ErrMalformed, providerName, operation, "decode response", err)
	}
	return nil
}

// Endpoint carries the per-provider throttle. All endpoints of one gateway
// share its permit pool and cache.
type Endpoint struct {
	gateway     *Gateway
	name        string
	minInterval time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	nextSlot time.Time
}

// Name returns the provider name the endpoint was created for.
func (e *Endpoint) Name() string { return e.name }

// Do runs req through cache lookup, permit acquisition, throttling, the
// network call, status classification, and bounded retry.
func (e *Endpoint) Do(ctx context.Context, req Request) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Operation == "" {
		req.Operation = strings.ToLower(req.Method)
	}

	key := e.cacheKey(req)
	if !req.NoCache {
		if cached, ok := e.lookup(ctx, key); ok {
			return cached, nil
		}
	}

	g := e.gateway
	var hint time.Duration
	policy := &hintedBackOff{
		BackOff: backoff.WithMaxRetries(newExponential(g.opts.InitialBackoff, g.opts.MaxBackoff), uint64(g.opts.MaxRetries)),
		hint:    &hint,
		max:     g.opts.MaxBackoff,
	}
	attempt := 0
	var resp Response
	operation := func() error {
		attempt++
		hint = 0
		r, err := e.attempt(ctx, req)
		if err == nil {
			resp = r
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		if !provider.Retryable(err) {
			return backoff.Permanent(err)
		}
		if wait, ok := provider.RetryAfterHint(err); ok {
			hint = wait
		} else if errors.Is(err, provider.ErrRateLimited) {
			hint = g.opts.DefaultRetryAfter
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		e.logger.Warn("provider call failed, retrying",
			logging.String("operation", req.Operation),
			logging.Duration("backoff", wait),
			logging.Int("attempt", attempt),
			logging.Int("max_retries", g.opts.MaxRetries),
			logging.Error(err),
			logging.String(logging.FieldEventType, "provider_retry"),
			logging.String(logging.FieldErrorHint, "wait for rate limits or check network connectivity"),
		)
	}
	err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, ctxErr
		}
		return Response{}, err
	}

	if !req.NoCache && !resp.NotFound && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if setErr := g.cache.Set(ctx, key, resp.Body); setErr != nil {
			e.logger.Debug("cache write failed", logging.String("operation", req.Operation), logging.Error(setErr))
		}
	}
	return resp, nil
}

func (e *Endpoint) lookup(ctx context.Context, key string) (Response, bool) {
	g := e.gateway
	body, ok, err := g.cache.Get(ctx, key)
	switch {
	case err != nil:
		g.metrics.CacheLookup("error")
		e.logger.Debug("cache read failed", logging.Error(err))
		return Response{}, false
	case !ok:
		g.metrics.CacheLookup("miss")
		return Response{}, false
	}
	g.metrics.CacheLookup("hit")
	g.metrics.ObserveProvider(e.name, metrics.OutcomeCacheHit, 0)
	return Response{StatusCode: http.StatusOK, Body: body, Cached: true}, true
}

// attempt performs exactly one network call while holding a permit.
func (e *Endpoint) attempt(ctx context.Context, req Request) (Response, error) {
	g := e.gateway
	if err := g.permits.Acquire(ctx, 1); err != nil {
		return Response{}, err
	}
	defer g.permits.Release(1)

	if err := e.waitForWindow(ctx); err != nil {
		return Response{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	httpReq, err := e.buildRequest(callCtx, req)
	if err != nil {
		return Response{}, provider.Wrap(provider.ErrContract, e.name, req.Operation, "build request", err)
	}

	start := time.Now()
	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		elapsed := time.Since(start)
		if ctx.Err() != nil {
			g.metrics.ObserveProvider(e.name, metrics.OutcomeCanceled, elapsed)
			return Response{}, ctx.Err()
		}
		g.metrics.ObserveProvider(e.name, metrics.OutcomeTransient, elapsed)
		return Response{}, provider.Wrap(provider.ErrTransient, e.name, req.Operation, "request failed", err)
	}
	defer httpResp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	elapsed := time.Since(start)
	if readErr != nil {
		if ctx.Err() != nil {
			g.metrics.ObserveProvider(e.name, metrics.OutcomeCanceled, elapsed)
			return Response{}, ctx.Err()
		}
		g.metrics.ObserveProvider(e.name, metrics.OutcomeTransient, elapsed)
		return Response{}, provider.Wrap(provider.ErrTransient, e.name, req.Operation, "read body", readErr)
	}

	status := httpResp.StatusCode
	switch {
	case status >= 200 && status < 300:
		g.metrics.ObserveProvider(e.name, metrics.OutcomeOK, elapsed)
		return Response{StatusCode: status, Header: httpResp.Header, Body: body}, nil
	case status == http.StatusNotFound && req.AllowNotFound:
		g.metrics.ObserveProvider(e.name, metrics.OutcomeNotFound, elapsed)
		return Response{StatusCode: status, Header: httpResp.Header, NotFound: true}, nil
	}

	retryAfter, _ := retryAfterFromHeader(httpResp.Header, time.Now())
	statusErr := provider.StatusError(e.name, req.Operation, status, retryAfter, truncate(string(body), 512))
	g.metrics.ObserveProvider(e.name, outcomeFor(statusErr), elapsed)
	return Response{}, statusErr
}

func (e *Endpoint) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if len(req.Query) > 0 {
		q := target.Query()
		for k, values := range req.Query {
			for _, v := range values {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, err
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", e.gateway.opts.UserAgent)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	return httpReq, nil
}

// waitForWindow reserves the next call slot for this endpoint and sleeps
// until it opens. Slots are spaced minInterval apart from the last call start.
func (e *Endpoint) waitForWindow(ctx context.Context) error {
	if e.minInterval <= 0 {
		return nil
	}
	e.mu.Lock()
	now := time.Now()
	slot := e.nextSlot
	if slot.Before(now) {
		slot = now
	}
	e.nextSlot = slot.Add(e.minInterval)
	e.mu.Unlock()
	return sleepWithContext(ctx, time.Until(slot))
}

// cacheKey derives the cache key from the endpoint, operation, URL, sorted
// query parameters, and a digest of the body.
func (e *Endpoint) cacheKey(req Request) string {
	params := map[string]string{"url": req.URL}
	if req.Method != http.MethodGet {
		params["method"] = req.Method
	}
	for k, values := range req.Query {
		sorted := append([]string(nil), values...)
		sort.Strings(sorted)
		params["q."+k] = strings.Join(sorted, ",")
	}
	if len(req.Body) > 0 {
		sum := sha256.Sum256(req.Body)
		params["body"] = hex.EncodeToString(sum[:])
	}
	return cache.Key(e.name+"."+req.Operation, params)
}

func outcomeFor(err error) string {
	switch provider.Classify(err) {
	case provider.ErrNotFound:
		return metrics.OutcomeNotFound
	case provider.ErrRateLimited:
		return metrics.OutcomeRateLimited
	case provider.ErrTransient:
		return metrics.OutcomeTransient
	default:
		return metrics.OutcomeError
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
