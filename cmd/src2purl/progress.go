package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"src2purl/internal/identify"
)

// progressReporter draws a candidate progress bar on interactive terminals
// and does nothing otherwise.
type progressReporter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newProgressReporter(w io.Writer) *progressReporter {
	if !isTerminal(w) {
		return &progressReporter{}
	}
	return &progressReporter{w: w}
}

func (p *progressReporter) update(pr identify.Progress) {
	if p.w == nil || pr.Total <= 0 {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(pr.Total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription("identifying"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	if pr.Candidate != "" {
		p.bar.Describe(filepath.Base(pr.Candidate))
	}
	_ = p.bar.Set(pr.Done)
}

func (p *progressReporter) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
