package license

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"src2purl/internal/config"
)

// Result is the detector's verdict for one directory. Licenses are ordered
// most prevalent first.
type Result struct {
	Licenses   []string            `json:"licenses"`
	Confidence float64             `json:"confidence"`
	Files      map[string][]string `json:"files,omitempty"`
	Summary    string              `json:"summary,omitempty"`
}

// Primary returns the first detected license or "".
func (r Result) Primary() string {
	if len(r.Licenses) == 0 {
		return ""
	}
	return r.Licenses[0]
}

// ErrUnavailable is returned when the detector binary cannot be found.
var ErrUnavailable = errors.New("license detector unavailable")

// Executor abstracts command execution for testability.
type Executor interface {
	Output(ctx context.Context, binary string, args []string) ([]byte, error)
	LookPath(binary string) (string, error)
}

// Option configures a Detector.
type Option func(*Detector)

// WithExecutor injects a custom executor.
func WithExecutor(e Executor) Option {
	return func(d *Detector) {
		if e != nil {
			d.exec = e
		}
	}
}

// Detector wraps the oslili command line.
type Detector struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// New constructs a detector for binary.
func New(binary string, timeoutSeconds int, opts ...Option) (*Detector, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("license detector command required")
	}
	d := &Detector{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// NewFromConfig uses the [license] section.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Detector, error) {
	return New(cfg.License.Command, cfg.License.TimeoutSeconds, opts...)
}

// Available reports whether the binary resolves on PATH.
func (d *Detector) Available() bool {
	_, err := d.exec.LookPath(d.binary)
	return err == nil
}

// Detect runs "<binary> scan <dir> --json" and decodes its report.
func (d *Detector) Detect(ctx context.Context, dir string) (Result, error) {
	if !d.Available() {
		return Result{}, fmt.Errorf("%w: %s not found", ErrUnavailable, d.binary)
	}
	runCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	out, err := d.exec.Output(runCtx, d.binary, []string{"scan", dir, "--json"})
	if err != nil {
		if runCtx.Err() != nil && ctx.Err() == nil {
			return Result{}, fmt.Errorf("license scan timed out after %s: %w", d.timeout, err)
		}
		return Result{}, fmt.Errorf("license scan: %w", err)
	}
	return parseReport(out)
}

func parseReport(data []byte) (Result, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Result{}, errors.New("license scan: empty output")
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("license scan: decode report: %w", err)
	}
	licenses := res.Licenses[:0]
	for _, l := range res.Licenses {
		if l = strings.TrimSpace(l); l != "" {
			licenses = append(licenses, l)
		}
	}
	res.Licenses = licenses
	if len(res.Licenses) == 0 && len(res.Files) > 0 {
		res.Licenses = rankFileLicenses(res.Files)
	}
	res.Confidence = min(max(res.Confidence, 0), 1)
	return res, nil
}

// rankFileLicenses orders licenses by the number of files declaring them.
func rankFileLicenses(files map[string][]string) []string {
	counts := make(map[string]int)
	for _, ids := range files {
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				counts[id]++
			}
		}
	}
	out := make([]string, 0, len(counts))
	for id := range counts {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

type commandExecutor struct{}

func (commandExecutor) Output(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

func (commandExecutor) LookPath(binary string) (string, error) {
	return exec.LookPath(binary)
}
