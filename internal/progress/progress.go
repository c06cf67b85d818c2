// Package progress renders a single-line download progress bar for interactive terminals.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
)

const (
	barWidth    = 40
	redrawEvery = 100 * time.Millisecond
	bytesPerMiB = 1 << 20
)

// Bar draws download progress to an output stream, redrawing in place with a carriage return.
type Bar struct {
	mu    sync.Mutex
	out   io.Writer
	model progress.Model
	label string
	total int64
	done  int64
	last  time.Time
	now   func() time.Time
}

// NewBar returns a Bar writing to out, prefixed by label.
func NewBar(out io.Writer, label string) *Bar {
	return &Bar{
		out:   out,
		label: label,
		model: progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
		now:   time.Now,
	}
}

// Start resets the bar for a transfer of total bytes; total is -1 when unknown.
func (b *Bar) Start(total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total = total
	b.done = 0
	b.last = time.Time{}
	b.draw()
}

// Advance records n more bytes and redraws at most every redrawEvery.
func (b *Bar) Advance(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done += n
	if now := b.now(); now.Sub(b.last) >= redrawEvery {
		b.last = now
		b.draw()
	}
}

// Finish draws the final state and ends the line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draw()
	_, _ = fmt.Fprintln(b.out)
}

func (b *Bar) draw() {
	doneMiB := float64(b.done) / bytesPerMiB
	if b.total <= 0 {
		_, _ = fmt.Fprintf(b.out, "\r%s %.1f MiB", b.label, doneMiB)
		return
	}
	percent := float64(b.done) / float64(b.total)
	if percent > 1 {
		percent = 1
	}
	totalMiB := float64(b.total) / bytesPerMiB
	_, _ = fmt.Fprintf(b.out, "\r%s %s %.1f/%.1f MiB", b.label, b.model.ViewAs(percent), doneMiB, totalMiB)
}
