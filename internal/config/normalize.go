package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeScan()
	c.normalizeScoring()
	c.normalizeStrategies()
	c.normalizeNetwork()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeProviders()
	c.normalizeLicense()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	if c.Server.Token == "" {
		c.Server.Token = lookupEnv("SRC2PURL_API_TOKEN")
	}
	return nil
}

func (c *Config) normalizeScan() {
	dirs := make([]string, 0, len(c.Scan.StableDirs))
	seen := make(map[string]struct{}, len(c.Scan.StableDirs))
	for _, dir := range c.Scan.StableDirs {
		dir = strings.Trim(strings.TrimSpace(dir), "/")
		if dir == "" {
			continue
		}
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}
	c.Scan.StableDirs = dirs
	if c.Scan.RelevantFileLimit <= 0 {
		c.Scan.RelevantFileLimit = defaultRelevantFileLimit
	}
}

func (c *Config) normalizeScoring() {
	c.Scoring.MissingTimestamp = strings.ToLower(strings.TrimSpace(c.Scoring.MissingTimestamp))
	if c.Scoring.MissingTimestamp == "" {
		c.Scoring.MissingTimestamp = defaultMissingTimestamp
	}
	if c.Scoring.RecencyHalfLifeDays <= 0 {
		c.Scoring.RecencyHalfLifeDays = defaultRecencyHalfLifeDays
	}
	if c.Scoring.PopularityPivot <= 0 {
		c.Scoring.PopularityPivot = defaultPopularityPivot
	}
}

func (c *Config) normalizeStrategies() {
	order := make([]string, 0, len(c.Strategies.Order))
	seen := make(map[string]struct{}, len(c.Strategies.Order))
	for _, name := range c.Strategies.Order {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		order = append(order, name)
	}
	if c.Strategies.LLMHints {
		if _, ok := seen[StrategyLLM]; !ok {
			order = append(order, StrategyLLM)
		}
	}
	c.Strategies.Order = order
	c.Strategies.DedupMode = strings.ToLower(strings.TrimSpace(c.Strategies.DedupMode))
	if c.Strategies.DedupMode == "" {
		c.Strategies.DedupMode = defaultDedupMode
	}
}

func (c *Config) normalizeNetwork() {
	c.Network.UserAgent = strings.TrimSpace(c.Network.UserAgent)
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = defaultUserAgent
	}
	if c.Network.DefaultRetryAfterSeconds <= 0 {
		c.Network.DefaultRetryAfterSeconds = defaultRetryAfterSeconds
	}
}

func (c *Config) normalizeCache() error {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = defaultCachePath()
	}
	var err error
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	if value, ok := os.LookupEnv("SRC2PURL_REDIS_ADDR"); ok && strings.TrimSpace(value) != "" {
		c.Cache.RedisAddr = strings.TrimSpace(value)
	}
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	if c.Cache.RedisPrefix == "" {
		c.Cache.RedisPrefix = defaultRedisPrefix
	}
	return nil
}

func (c *Config) normalizeProviders() {
	p := &c.Providers
	if p.SWH.Token == "" {
		p.SWH.Token = lookupEnv("SRC2PURL_SWH_TOKEN")
	}
	if p.GitHub.Token == "" {
		p.GitHub.Token = lookupEnv("SRC2PURL_GITHUB_TOKEN", "GITHUB_TOKEN")
	}
	if p.SCANOSS.Token == "" {
		p.SCANOSS.Token = lookupEnv("SRC2PURL_SCANOSS_API_KEY")
	}
	if p.LLM.APIKey == "" {
		p.LLM.APIKey = lookupEnv("SRC2PURL_OPENAI_API_KEY", "OPENAI_API_KEY")
	}
	p.SWH.BaseURL = trimBaseURL(p.SWH.BaseURL, defaultSWHBaseURL)
	p.SCANOSS.BaseURL = trimBaseURL(p.SCANOSS.BaseURL, defaultSCANOSSBaseURL)
	p.GitHub.BaseURL = trimBaseURL(p.GitHub.BaseURL, defaultGitHubBaseURL)
	p.WebSearch.BaseURL = strings.TrimSpace(p.WebSearch.BaseURL)
	if p.WebSearch.BaseURL == "" {
		p.WebSearch.BaseURL = defaultWebSearchBaseURL
	}
	p.LLM.BaseURL = trimBaseURL(p.LLM.BaseURL, defaultLLMBaseURL)
	p.LLM.Model = strings.TrimSpace(p.LLM.Model)
	if p.LLM.Model == "" {
		p.LLM.Model = defaultLLMModel
	}
	if p.LLM.TimeoutSeconds <= 0 {
		p.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeLicense() {
	c.License.Command = strings.TrimSpace(c.License.Command)
	if c.License.Command == "" {
		c.License.Command = defaultLicenseCommand
	}
	if c.License.TimeoutSeconds <= 0 {
		c.License.TimeoutSeconds = defaultLicenseTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return fmt.Errorf("logging.file: %w", err)
	}
	return nil
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.Textfile, err = expandPath(strings.TrimSpace(c.Metrics.Textfile)); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func trimBaseURL(value, fallback string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if value == "" {
		return fallback
	}
	return value
}

func lookupEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
