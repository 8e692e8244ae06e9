// Package deps resolves the external binaries src2purl shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary a src2purl feature needs.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Optional requirements only degrade a feature when missing.
	Optional bool
}

// Status is the resolution outcome for one Requirement.
type Status struct {
	Requirement
	// Resolved is the absolute path found on PATH.
	Resolved  string
	Available bool
	Detail    string
}

// Check resolves a single requirement with exec.LookPath.
func Check(req Requirement) Status {
	req.Command = strings.TrimSpace(req.Command)
	req.Description = strings.TrimSpace(req.Description)
	st := Status{Requirement: req}
	if req.Command == "" {
		st.Detail = "command not configured"
		return st
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		st.Detail = fmt.Sprintf("binary %q not found", req.Command)
		return st
	}
	st.Resolved, st.Available = path, true
	return st
}
