package gateway

import (
	"io"
	"net/http"
	"sync"
	"time"

	"src2purl/internal/metrics"
)

// Doer adapts an endpoint for SDK clients that build their own requests.
// Calls hold a permit until the response body is closed and respect the
// endpoint throttle; caching and retry are left to the SDK.
type Doer struct {
	endpoint *Endpoint
}

// Doer returns an http.Client-compatible adapter for this endpoint.
func (e *Endpoint) Doer() *Doer { return &Doer{endpoint: e} }

func (d *Doer) Do(req *http.Request) (*http.Response, error) {
	e := d.endpoint
	g := e.gateway
	ctx := req.Context()
	if err := g.permits.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	release := sync.OnceFunc(func() { g.permits.Release(1) })
	if err := e.waitForWindow(ctx); err != nil {
		release()
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", g.opts.UserAgent)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		release()
		outcome := metrics.OutcomeTransient
		if ctx.Err() != nil {
			outcome = metrics.OutcomeCanceled
		}
		g.metrics.ObserveProvider(e.name, outcome, time.Since(start))
		return nil, err
	}
	outcome := metrics.OutcomeOK
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		outcome = metrics.OutcomeRateLimited
	case resp.StatusCode >= 500:
		outcome = metrics.OutcomeTransient
	case resp.StatusCode >= 400:
		outcome = metrics.OutcomeError
	}
	g.metrics.ObserveProvider(e.name, outcome, time.Since(start))
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: release}
	return resp, nil
}

type releasingBody struct {
	io.ReadCloser
	release func()
}

func (b *releasingBody) Close() error {
	err := b.ReadCloser.Close()
	b.release()
	return err
}
