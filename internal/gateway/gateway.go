package gateway

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"src2purl/internal/cache"
	"src2purl/internal/config"
	"src2purl/internal/logging"
	"src2purl/internal/metrics"
)

const (
	defaultMaxInFlight       = 5
	defaultTimeout           = 30 * time.Second
	defaultInitialBackoff    = time.Second
	defaultMaxBackoff        = 60 * time.Second
	defaultRetryAfter        = 60 * time.Second
	maxResponseBytes         = 16 << 20
	defaultUserAgent         = "src2purl/dev"
	defaultIdleConnsPerHost  = 4
	defaultIdleConnTimeout   = 30 * time.Second
	defaultHandshakeDeadline = 10 * time.Second
)

// Options configures the shared network discipline.
type Options struct {
	MaxInFlight       int
	Timeout           time.Duration
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	DefaultRetryAfter time.Duration
	UserAgent         string
	HTTPClient        *http.Client
	Cache             cache.Store
	Metrics           *metrics.Metrics
	Logger            *slog.Logger
}

// OptionsFromConfig maps the [network] section onto Options. Cache, metrics,
// and logger are supplied by the caller.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		MaxInFlight:       cfg.Network.MaxInFlight,
		Timeout:           cfg.Timeout(),
		MaxRetries:        cfg.Network.MaxRetries,
		InitialBackoff:    time.Duration(cfg.Network.InitialBackoffMillis) * time.Millisecond,
		MaxBackoff:        time.Duration(cfg.Network.MaxBackoffSeconds) * time.Second,
		DefaultRetryAfter: time.Duration(cfg.Network.DefaultRetryAfterSeconds) * time.Second,
		UserAgent:         cfg.Network.UserAgent,
	}
}

// Gateway is the single path every provider uses to reach the network. It
// bounds in-flight calls with a permit pool shared across providers and owns
// the HTTP client whose connections Close releases.
type Gateway struct {
	opts    Options
	permits *semaphore.Weighted
	client  *http.Client
	cache   cache.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu        sync.Mutex
	endpoints map[string]*Endpoint
}

// New builds a gateway. Zero-valued options fall back to defaults.
func New(opts Options) *Gateway {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = defaultMaxInFlight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = opts.InitialBackoff
	}
	if opts.DefaultRetryAfter <= 0 {
		opts.DefaultRetryAfter = defaultRetryAfter
	}
	opts.UserAgent = strings.TrimSpace(opts.UserAgent)
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	g := &Gateway{
		opts:      opts,
		permits:   semaphore.NewWeighted(int64(opts.MaxInFlight)),
		client:    opts.HTTPClient,
		cache:     opts.Cache,
		metrics:   opts.Metrics,
		logger:    logging.NewComponentLogger(opts.Logger, "gateway"),
		endpoints: make(map[string]*Endpoint),
	}
	if g.client == nil {
		g.client = &http.Client{Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: defaultIdleConnsPerHost,
			IdleConnTimeout:     defaultIdleConnTimeout,
			TLSHandshakeTimeout: defaultHandshakeDeadline,
		}}
	}
	if g.cache == nil {
		g.cache = cache.Nop{}
	}
	return g
}

// Endpoint returns the named endpoint, creating it on first use. The first
// caller's minInterval wins; later calls reuse the existing throttle.
func (g *Gateway) Endpoint(name string, minInterval time.Duration) *Endpoint {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ep, ok := g.endpoints[name]; ok {
		return ep
	}
	ep := &Endpoint{
		gateway:     g,
		name:        name,
		minInterval: minInterval,
		logger:      g.logger.With(logging.Provider(name)),
	}
	g.endpoints[name] = ep
	return ep
}

// Timeout reports the per-call deadline.
func (g *Gateway) Timeout() time.Duration { return g.opts.Timeout }

// InFlightLimit reports the permit pool size.
func (g *Gateway) InFlightLimit() int { return g.opts.MaxInFlight }

// Close drops idle connections held by the gateway's client. In-flight calls
// are ended by cancelling their contexts.
func (g *Gateway) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	g.client.CloseIdleConnections()
	return nil
}
