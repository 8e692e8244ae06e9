package config

const (
	defaultMaxDepth                 = 2
	defaultMinFiles                 = 3
	defaultStableMinFiles           = 3
	defaultStableSpecificity        = 0.8
	defaultMaxStable                = 10
	defaultMaxFileCandidates        = 5
	defaultMaxFileBytes             = 1 << 20
	defaultRelevantFileLimit        = 1000
	defaultRecencyHalfLifeDays      = 365
	defaultPopularityPivot          = 10
	defaultMissingTimestamp         = MissingTimestampNow
	defaultHighConfidenceVisitFloor = 10
	defaultPurlGenerationThreshold  = 0.85
	defaultReportMatchThreshold     = 0.3
	defaultFuzzyConsideration       = 0.5
	defaultDedupMode                = DedupModeSegments
	defaultMaxInFlight              = 5
	defaultTimeoutSeconds           = 30
	defaultMaxRetries               = 3
	defaultInitialBackoffMillis     = 1000
	defaultMaxBackoffSeconds        = 60
	defaultRetryAfterSeconds        = 60
	defaultUserAgent                = "src2purl/dev"
	defaultCacheBackend             = CacheBackendSQLite
	defaultCacheFile                = "~/.cache/src2purl/cache.db"
	defaultCacheTTLHours            = 168
	defaultRedisPrefix              = "src2purl:"
	defaultSWHBaseURL               = "https://archive.softwareheritage.org/api/1"
	defaultSWHMinIntervalMillis     = 500
	defaultSCANOSSBaseURL           = "https://api.osskb.org"
	defaultSCANOSSMinIntervalMillis = 1000
	defaultGitHubBaseURL            = "https://api.github.com"
	defaultGitHubMinIntervalMillis  = 2000
	defaultWebSearchBaseURL         = "https://html.duckduckgo.com/html/"
	defaultWebSearchMinInterval     = 2000
	defaultLLMBaseURL               = "https://api.openai.com/v1"
	defaultLLMModel                 = "gpt-4o-mini"
	defaultLLMMinIntervalMillis     = 1000
	defaultLLMTimeoutSeconds        = 60
	defaultLicenseCommand           = "oslili"
	defaultLicensePrimary           = 0.7
	defaultLicenseOverride          = 0.85
	defaultLicenseTimeoutSeconds    = 120
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultServerBind               = "127.0.0.1:8787"
)

// Missing-timestamp policies.
const (
	MissingTimestampNow     = "now"
	MissingTimestampEpoch   = "epoch"
	MissingTimestampNeutral = "neutral"
)

// Dedup modes.
const (
	DedupModeSegments  = "segments"
	DedupModeCanonical = "canonical"
)

// Cache backends.
const (
	CacheBackendSQLite = "sqlite"
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Strategy names recognised in strategies.order.
const (
	StrategyManifest  = "manifest"
	StrategySWH       = "swh"
	StrategyWebSearch = "web_search"
	StrategyGitHub    = "github"
	StrategySCANOSS   = "scanoss"
	StrategyLLM       = "llm"
)

// KnownStrategies lists every strategy name the registry can construct.
func KnownStrategies() []string {
	return []string{StrategyManifest, StrategySWH, StrategyWebSearch, StrategyGitHub, StrategySCANOSS, StrategyLLM}
}

func defaultStableDirs() []string {
	return []string{"cmake", "docs", "doc", "tools", "packaging", "data", "po", "translations", "config", "scripts"}
}

// DefaultStrategyOrder runs local and quota-free sources before quota-limited ones.
func DefaultStrategyOrder() []string {
	return []string{StrategyManifest, StrategySWH, StrategyWebSearch, StrategyGitHub, StrategySCANOSS}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Scan: Scan{
			MaxDepth:          defaultMaxDepth,
			MinFiles:          defaultMinFiles,
			StableDirsEnabled: true,
			StableDirs:        defaultStableDirs(),
			StableMinFiles:    defaultStableMinFiles,
			StableSpecificity: defaultStableSpecificity,
			MaxStable:         defaultMaxStable,
			IncludeSubmodules: true,
			MaxFileCandidates: defaultMaxFileCandidates,
			MaxFileBytes:      defaultMaxFileBytes,
			RelevantFileLimit: defaultRelevantFileLimit,
		},
		Scoring: Scoring{
			Weights: Weights{
				Recency:     0.1,
				Popularity:  0.1,
				Authority:   0.1,
				Specificity: 0.2,
			},
			RecencyHalfLifeDays:      defaultRecencyHalfLifeDays,
			PopularityPivot:          defaultPopularityPivot,
			MissingTimestamp:         defaultMissingTimestamp,
			HighConfidenceVisitFloor: defaultHighConfidenceVisitFloor,
		},
		Thresholds: Thresholds{
			PurlGeneration:     defaultPurlGenerationThreshold,
			ReportMatch:        defaultReportMatchThreshold,
			FuzzyConsideration: defaultFuzzyConsideration,
		},
		Strategies: Strategies{
			Order:       DefaultStrategyOrder(),
			EnableFuzzy: true,
			DedupMode:   defaultDedupMode,
		},
		Network: Network{
			MaxInFlight:              defaultMaxInFlight,
			TimeoutSeconds:           defaultTimeoutSeconds,
			MaxRetries:               defaultMaxRetries,
			InitialBackoffMillis:     defaultInitialBackoffMillis,
			MaxBackoffSeconds:        defaultMaxBackoffSeconds,
			DefaultRetryAfterSeconds: defaultRetryAfterSeconds,
			UserAgent:                defaultUserAgent,
		},
		Cache: Cache{
			Enabled:     true,
			Backend:     defaultCacheBackend,
			Path:        defaultCachePath(),
			TTLHours:    defaultCacheTTLHours,
			RedisPrefix: defaultRedisPrefix,
		},
		Providers: Providers{
			SWH:       Provider{BaseURL: defaultSWHBaseURL, MinIntervalMillis: defaultSWHMinIntervalMillis},
			SCANOSS:   Provider{BaseURL: defaultSCANOSSBaseURL, MinIntervalMillis: defaultSCANOSSMinIntervalMillis},
			GitHub:    Provider{BaseURL: defaultGitHubBaseURL, MinIntervalMillis: defaultGitHubMinIntervalMillis},
			WebSearch: Provider{BaseURL: defaultWebSearchBaseURL, MinIntervalMillis: defaultWebSearchMinInterval},
			LLM: LLM{
				BaseURL:           defaultLLMBaseURL,
				Model:             defaultLLMModel,
				MinIntervalMillis: defaultLLMMinIntervalMillis,
				TimeoutSeconds:    defaultLLMTimeoutSeconds,
			},
		},
		License: License{
			Command:            defaultLicenseCommand,
			PrimaryConfidence:  defaultLicensePrimary,
			OverrideConfidence: defaultLicenseOverride,
			TimeoutSeconds:     defaultLicenseTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
	}
}
