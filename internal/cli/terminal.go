package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"
)

// TerminalDetector defines the interface for terminal detection
// This allows for mocking in tests and dependency injection
type TerminalDetector interface {
	IsTerminal(fd int) bool
}

// DefaultTerminalDetector is the default implementation using golang.org/x/term
type DefaultTerminalDetector struct{}

func (d *DefaultTerminalDetector) IsTerminal(fd int) bool {
	isTerminal := term.IsTerminal(fd)
	slog.Debug("terminal detection result", "fd", fd, "is_terminal", isTerminal)
	return isTerminal
}

// isInteractive reports whether w is a terminal. Anything that is not an *os.File,
// such as a test buffer, is not.
func (c *CLI) isInteractive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if c.terminalDetector == nil {
		c.terminalDetector = &DefaultTerminalDetector{}
	}
	return c.terminalDetector.IsTerminal(int(f.Fd()))
}

// progressLine redraws a single status line on an interactive terminal and stays
// silent otherwise
type progressLine struct {
	w       io.Writer
	enabled bool
	last    time.Time
	every   time.Duration
}

func newProgressLine(w io.Writer, enabled bool) *progressLine {
	return &progressLine{w: w, enabled: enabled, every: 250 * time.Millisecond}
}

// Update redraws the line at most every quarter second. A zero total prints the
// position alone.
func (p *progressLine) Update(label string, pos, total time.Duration) {
	if !p.enabled {
		return
	}
	now := time.Now()
	if now.Sub(p.last) < p.every {
		return
	}
	p.last = now

	if total > 0 {
		fmt.Fprintf(p.w, "\r\033[K%s  %s / %s", label, formatClock(pos), formatClock(total))
	} else {
		fmt.Fprintf(p.w, "\r\033[K%s  %s", label, formatClock(pos))
	}
}

// Done ends the status line
func (p *progressLine) Done() {
	if p.enabled && !p.last.IsZero() {
		fmt.Fprintln(p.w)
	}
}

// formatClock renders d as m:ss
func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d/time.Minute), int(d%time.Minute/time.Second))
}
