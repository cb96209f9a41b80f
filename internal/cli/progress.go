package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// JobProgress renders a server-side job's percentage as a progress bar.
type JobProgress struct {
	bar     *progressbar.ProgressBar
	writer  io.Writer
	message string
	last    int
	mu      sync.Mutex
	done    bool
}

// NewJobProgress creates a bar out of 100 with description as its label.
func NewJobProgress(writer io.Writer, description string) *JobProgress {
	if writer == nil {
		writer = os.Stderr
	}
	jp := &JobProgress{writer: writer, message: description}
	jp.bar = progressbar.NewOptions(100,
		progressbar.OptionSetWriter(writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription(label(description)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return jp
}

// Update moves the bar to percent and relabels it when message changes.
// Percentages outside 0..100 are clamped and the bar never moves backwards.
func (p *JobProgress) Update(percent int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}

	if message != "" && message != p.message {
		p.message = message
		p.bar.Describe(label(message))
	}

	percent = min(max(percent, 0), 100)
	if percent <= p.last {
		return
	}
	p.last = percent
	if err := p.bar.Set(percent); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Finish completes the bar. Later updates are ignored.
func (p *JobProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}

// Percent returns the last percentage drawn.
func (p *JobProgress) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func label(s string) string {
	return "[cyan][bold]" + s + "[reset]"
}
