package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// ProgressBar renders a single-line counter bar such as
//
//	inserting [████████░░░░] 66% (10.6M/16.0M, 4.1M/s)
type ProgressBar struct {
	mu      sync.Mutex
	w       io.Writer
	title   string
	width   int
	current int64
	total   int64
	start   time.Time
	now     func() time.Time
}

// NewProgressBar creates a progress bar writing to w.
func NewProgressBar(w io.Writer, title string) *ProgressBar {
	return &ProgressBar{
		w:     w,
		title: title,
		width: 40,
		start: time.Now(),
		now:   time.Now,
	}
}

// Update sets the progress and redraws the bar. Its signature matches
// bench.ProgressFunc.
func (p *ProgressBar) Update(current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
	p.total = total
	p.render()
}

// Finish draws the final state and ends the line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render()
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) render() {
	rate := ""
	if secs := p.now().Sub(p.start).Seconds(); secs > 0 {
		rate = ", " + FormatCount(int64(float64(p.current)/secs)) + "/s"
	}
	if p.total <= 0 {
		fmt.Fprintf(p.w, "\r%s %s%s", p.title, FormatCount(p.current), rate)
		return
	}

	ratio := min(float64(p.current)/float64(p.total), 1)
	filled := int(float64(p.width) * ratio)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)

	fmt.Fprintf(p.w, "\r%s [%s] %3.0f%% (%s/%s%s)",
		p.title, bar, ratio*100, FormatCount(p.current), FormatCount(p.total), rate)
}

// FormatCount abbreviates large counts: 950, 12.5K, 16.0M.
func FormatCount(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fG", float64(n)/1e9)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 10_000:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// FormatBytes renders n with a binary unit suffix, e.g. "1.5 MiB".
func FormatBytes(n uint64) string {
	return humanize.IBytes(n)
}
