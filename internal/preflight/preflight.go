package preflight

import (
	"context"
	"net/http"

	"src2purl/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Failed reports whether any non-optional check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

// RunAll executes the checks that apply to cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, strategy := range cfg.Strategies.Order {
		switch strategy {
		case config.StrategyManifest:
			results = append(results, Result{Name: "Manifest", Passed: true, Detail: "local"})
		case config.StrategySWH:
			p := cfg.Providers.SWH
			results = append(results, CheckEndpoint(ctx, "Software Heritage", p.BaseURL, bearer(p.Token)))
		case config.StrategyGitHub:
			p := cfg.Providers.GitHub
			results = append(results, CheckEndpoint(ctx, "GitHub", p.BaseURL, bearer(p.Token)))
		case config.StrategySCANOSS:
			p := cfg.Providers.SCANOSS
			results = append(results, CheckEndpoint(ctx, "SCANOSS", p.BaseURL, sessionHeader(p.Token)))
		case config.StrategyWebSearch:
			results = append(results, CheckEndpoint(ctx, "Web search", cfg.Providers.WebSearch.BaseURL, nil))
		case config.StrategyLLM:
			results = append(results, CheckLLM(ctx, "LLM hints", cfg.Providers.LLM))
		}
	}

	results = append(results, CheckCache(ctx, cfg))
	results = append(results, CheckLicenseDetector(cfg))
	return results
}

func bearer(token string) http.Header {
	if token == "" {
		return nil
	}
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func sessionHeader(key string) http.Header {
	if key == "" {
		return nil
	}
	return http.Header{"X-Session": []string{key}}
}
