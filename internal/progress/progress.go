// Package progress draws a single-line progress bar for each experiment arm
// on a terminal.
//
// A Tracker is safe for concurrent use: query goroutines call Advance as
// they finish. When the output is not a terminal nothing is drawn, so piped
// runs keep a clean stderr. A nil *Tracker is valid and does nothing.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/mattn/go-isatty"
)

const barWidth = 40

// Tracker renders per-arm progress to a writer.
type Tracker struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool
	bar     progress.Model
	styles  styles

	arm    string
	total  int
	done   int
	failed int
}

// New returns a Tracker writing to w. Drawing is enabled only when w is a
// terminal.
func New(w io.Writer, theme Theme) *Tracker {
	return newTracker(w, theme, IsTerminal(w))
}

func newTracker(w io.Writer, theme Theme, enabled bool) *Tracker {
	return &Tracker{
		out:     w,
		enabled: enabled,
		bar: progress.New(
			progress.WithGradient(string(theme.Secondary), string(theme.Success)),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
		styles: newStyles(theme),
	}
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start resets the tracker for a new arm of total queries.
func (t *Tracker) Start(arm string, total int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.arm, t.total, t.done, t.failed = arm, total, 0, 0
	t.draw()
}

// Advance marks one query as finished. failed counts it as an error.
func (t *Tracker) Advance(failed bool) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	if failed {
		t.failed++
	}
	t.draw()
}

// Finish ends the current arm's line.
func (t *Tracker) Finish() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enabled {
		fmt.Fprintln(t.out)
	}
}

// counts returns the finished and failed query counts of the current arm.
func (t *Tracker) counts() (done, failed int) {
	if t == nil {
		return 0, 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done, t.failed
}

// draw redraws the line in place. Callers hold t.mu.
func (t *Tracker) draw() {
	if !t.enabled {
		return
	}
	fmt.Fprint(t.out, "\r"+t.line())
}

func (t *Tracker) line() string {
	pct := 0.0
	if t.total > 0 {
		pct = float64(t.done) / float64(t.total)
	}
	label := t.styles.label.Render(fmt.Sprintf("%-10s", t.arm))
	if t.total > 0 && t.done == t.total {
		label = t.styles.done.Render(fmt.Sprintf("%-10s", t.arm))
	}
	s := fmt.Sprintf("%s %s %s", label, t.bar.ViewAs(pct),
		t.styles.dim.Render(fmt.Sprintf("%d/%d", t.done, t.total)))
	if t.failed > 0 {
		s += " " + t.styles.err.Render(fmt.Sprintf("%d failed", t.failed))
	}
	return s
}
