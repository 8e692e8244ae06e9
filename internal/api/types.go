package api

// IdentifyRequest carries a path and optional per-run overrides. Nil pointers
// keep the configured value.
type IdentifyRequest struct {
	Path                string   `json:"path"`
	MaxDepth            *int     `json:"max_depth,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	Strategies          []string `json:"strategies,omitempty"`
	NoFuzzy             bool     `json:"no_fuzzy,omitempty"`
	EnhanceLicenses     *bool    `json:"enhance_licenses,omitempty"`
	Explain             bool     `json:"explain,omitempty"`
	// NoCache is a CLI-only switch; the server shares one cache.
	NoCache bool `json:"-"`
}

// Report is the identification result in its transport form.
type Report struct {
	Matches          []Match  `json:"matches"`
	Count            int      `json:"count"`
	Threshold        float64  `json:"threshold"`
	StrategiesRun    []string `json:"strategies_run"`
	StrategiesFailed []string `json:"strategies_failed,omitempty"`
	TerminatedBy     string   `json:"terminated_by,omitempty"`
	RunID            string   `json:"run_id,omitempty"`
}

// Match describes one reported package.
type Match struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Confidence float64  `json:"confidence"`
	Type       string   `json:"type"`
	URL        string   `json:"url"`
	Purl       string   `json:"purl"`
	License    string   `json:"license"`
	Official   bool     `json:"official"`
	Explain    *Explain `json:"explain,omitempty"`
}

// Explain is the per-term confidence breakdown plus provenance.
type Explain struct {
	Base          float64 `json:"base"`
	Recency       float64 `json:"recency"`
	Popularity    float64 `json:"popularity"`
	Authority     float64 `json:"authority"`
	Total         float64 `json:"total"`
	Provider      string  `json:"provider"`
	Candidate     string  `json:"candidate,omitempty"`
	SourceURL     string  `json:"source_url,omitempty"`
	VisitCount    int     `json:"visit_count"`
	LastSeen      string  `json:"last_seen,omitempty"`
	LicenseSource string  `json:"license_source,omitempty"`
}

// CacheStats summarises the response cache.
type CacheStats struct {
	Backend   string `json:"backend"`
	Location  string `json:"location,omitempty"`
	Entries   int64  `json:"entries"`
	Expired   int64  `json:"expired"`
	SizeBytes int64  `json:"size_bytes"`
	TTL       string `json:"ttl,omitempty"`
}

// ErrorResponse is the body of a failed HTTP request.
type ErrorResponse struct {
	Error string `json:"error"`
}
