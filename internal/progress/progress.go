// Package progress renders terminal progress for long-running pipeline phases.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
)

const (
	labelWidth   = 24
	barWidth     = 30
	redrawEvery  = 100 * time.Millisecond
	bytesPerUnit = 1024
)

// Bar is a single-line terminal progress bar. A nil writer disables all
// rendering while keeping the counters usable, so callers never need to
// branch on whether progress display is enabled.
type Bar struct {
	mu       sync.Mutex
	w        io.Writer
	label    string
	total    int64
	current  int64
	bytes    bool
	lastDraw time.Time
	finished bool
}

// NewBar creates a count-mode bar. A total of 0 means the total is unknown
// and only the running count is shown.
func NewBar(w io.Writer, label string, total int64) *Bar {
	return &Bar{w: w, label: label, total: total}
}

// NewByteBar creates a byte-mode bar that renders sizes in binary units.
func NewByteBar(w io.Writer, label string, total int64) *Bar {
	return &Bar{w: w, label: label, total: total, bytes: true}
}

// Add advances the bar by n.
func (b *Bar) Add(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current += n
	b.draw(false)
}

// Set moves the bar to an absolute position.
func (b *Bar) Set(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = n
	b.draw(false)
}

// Current returns the bar position.
func (b *Bar) Current() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.current
}

// Finish draws the final state and terminates the line. Further updates are
// ignored.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return
	}

	b.draw(true)
	b.finished = true

	if b.w != nil {
		fmt.Fprintln(b.w)
	}
}

// Writer returns an io.Writer that advances the bar by the size of each
// write. It reports full writes so it can sit inside an io.MultiWriter next
// to the real destination.
func (b *Bar) Writer() io.Writer {
	return &barWriter{b: b}
}

type barWriter struct {
	b *Bar
}

func (bw *barWriter) Write(p []byte) (int, error) {
	bw.b.Add(int64(len(p)))
	return len(p), nil
}

// draw renders the current state. Redraws are throttled except when forced.
// Callers must hold the mutex.
func (b *Bar) draw(force bool) {
	if b.w == nil || b.finished {
		return
	}

	now := time.Now()
	if !force && now.Sub(b.lastDraw) < redrawEvery {
		return
	}

	b.lastDraw = now

	label := runewidth.FillRight(runewidth.Truncate(b.label, labelWidth, "…"), labelWidth)

	if b.total <= 0 {
		fmt.Fprintf(b.w, "\r%s %s", label, b.format(b.current))
		return
	}

	ratio := float64(b.current) / float64(b.total)
	if ratio > 1 {
		ratio = 1
	}

	filled := int(ratio * barWidth)
	bar := strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled)

	fmt.Fprintf(b.w, "\r%s [%s] %5.1f%% (%s/%s)",
		label, bar, ratio*100, b.format(b.current), b.format(b.total))
}

func (b *Bar) format(n int64) string {
	if !b.bytes {
		return fmt.Sprintf("%d", n)
	}

	switch {
	case n >= bytesPerUnit*bytesPerUnit*bytesPerUnit:
		return fmt.Sprintf("%.1f GiB", float64(n)/(bytesPerUnit*bytesPerUnit*bytesPerUnit))
	case n >= bytesPerUnit*bytesPerUnit:
		return fmt.Sprintf("%.1f MiB", float64(n)/(bytesPerUnit*bytesPerUnit))
	case n >= bytesPerUnit:
		return fmt.Sprintf("%.1f KiB", float64(n)/bytesPerUnit)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
