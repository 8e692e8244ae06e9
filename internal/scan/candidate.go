package scan

// Mode records which scan pass produced a candidate.
type Mode string

const (
	ModeAncestor  Mode = "ancestor"
	ModeStable    Mode = "stable"
	ModeSubmodule Mode = "submodule"
)

// AuxiliaryDepth is the depth assigned to stable subdirectories and
// submodules. They are siblings of the start path, not ancestors.
const AuxiliaryDepth = 1

// DirectoryCandidate is a local directory considered for external matching.
// Values are created once per scan and never mutated afterwards.
type DirectoryCandidate struct {
	Path           string  `json:"path"`
	ContentID      string  `json:"content_id"`
	Depth          int     `json:"depth"`
	Specificity    float64 `json:"specificity_score"`
	FileCount      int     `json:"file_count"`
	IndicatorScore float64 `json:"indicator_score"`
	Mode           Mode    `json:"mode"`
}

// FileCandidate is a single file used by file-hash strategies.
type FileCandidate struct {
	Path      string `json:"path"`
	ContentID string `json:"content_id"`
	Size      int64  `json:"size"`
}
