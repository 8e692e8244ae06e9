package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sys/unix"

	"src2purl/internal/cache"
	"src2purl/internal/config"
	"src2purl/internal/deps"
	"src2purl/internal/logging"
)

const (
	endpointTimeout = 5 * time.Second
	llmTimeout      = 30 * time.Second
)

// CheckEndpoint issues a single GET against baseURL. Any response below 500
// other than 401/403 counts as reachable; the provider's own paths are not
// probed.
func CheckEndpoint(ctx context.Context, name, baseURL string, header http.Header) Result {
	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing base_url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, endpointTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid base_url (%v)", err)}
	}
	for k, v := range header {
		req.Header[k] = v
	}

	client := &http.Client{Timeout: endpointTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	auth := "anonymous"
	if len(header) > 0 {
		auth = "token set"
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: fmt.Sprintf("auth failed (%d)", resp.StatusCode)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable, rate limited (%s)", auth)}
	case resp.StatusCode >= http.StatusInternalServerError:
		return Result{Name: name, Detail: fmt.Sprintf("unhealthy (%d)", resp.StatusCode)}
	default:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Reachable (%s)", auth)}
	}
}

// CheckLLM lists models once to confirm the key and base URL.
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: llmTimeout}
	client := openai.NewClientWithConfig(clientCfg)

	if _, err := client.ListModels(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckCache verifies the configured cache backend can be used.
func CheckCache(ctx context.Context, cfg *config.Config) Result {
	const name = "Cache"
	if !cfg.Cache.Enabled {
		return Result{Name: name, Passed: true, Detail: "disabled"}
	}
	switch cfg.Cache.Backend {
	case config.CacheBackendSQLite:
		dir := filepath.Dir(cfg.Cache.Path)
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (created on first use)", cfg.Cache.Path)}
		}
		result := CheckDirectoryAccess(name, dir)
		if result.Passed {
			result.Detail = fmt.Sprintf("sqlite %s", cfg.Cache.Path)
		}
		return result
	case config.CacheBackendRedis:
		checkCtx, cancel := context.WithTimeout(ctx, endpointTimeout)
		defer cancel()
		store, err := cache.Open(checkCtx, cfg, logging.NewNop())
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("redis %s (%v)", cfg.Cache.RedisAddr, err)}
		}
		defer store.Close()
		stats, err := store.Stats(checkCtx)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("redis %s (%v)", cfg.Cache.RedisAddr, err)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("redis %s (%d entries)", cfg.Cache.RedisAddr, stats.Entries)}
	default:
		return Result{Name: name, Passed: true, Detail: cfg.Cache.Backend}
	}
}

// CheckLicenseDetector resolves the license detector binary. It is only
// required when license enhancement is enabled.
func CheckLicenseDetector(cfg *config.Config) Result {
	status := deps.Check(deps.Requirement{
		Name:        "License detector",
		Command:     cfg.License.Command,
		Description: "Used for license enhancement",
		Optional:    !cfg.Strategies.EnhanceLicenses,
	})
	result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional, Detail: status.Detail}
	if status.Available {
		result.Detail = status.Resolved
	} else if status.Optional {
		result.Detail += " (enhance_licenses off)"
	}
	return result
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return fmt.Sprintf("unreachable (%v)", err)
}

func summarizeLLMError(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "auth failed (invalid api key)"
		case http.StatusTooManyRequests:
			return "rate limited"
		}
		return fmt.Sprintf("api error (%d)", apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("api error (%d)", reqErr.HTTPStatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
