package cli

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

type fakeTerminal struct {
	terminal bool
	asked    []int
}

func (f *fakeTerminal) IsTerminal(fd int) bool {
	f.asked = append(f.asked, fd)
	return f.terminal
}

func TestIsInteractive(t *testing.T) {
	tests := []struct {
		name     string
		w        io.Writer
		terminal bool
		want     bool
	}{
		{"buffer is never interactive", &bytes.Buffer{}, true, false},
		{"file on a terminal", os.Stdout, true, true},
		{"file not on a terminal", os.Stdout, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector := &fakeTerminal{terminal: tt.terminal}
			c := NewCLI(WithTerminalDetector(detector))
			if got := c.isInteractive(tt.w); got != tt.want {
				t.Errorf("isInteractive = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgressLine(t *testing.T) {
	var buf bytes.Buffer
	disabled := newProgressLine(&buf, false)
	disabled.Update("bell.wav", time.Second, 2*time.Second)
	disabled.Done()
	if buf.Len() != 0 {
		t.Errorf("disabled progress wrote %q", buf.String())
	}

	p := newProgressLine(&buf, true)
	p.Update("bell.wav", 5*time.Second, 65*time.Second)
	p.Update("bell.wav", 6*time.Second, 65*time.Second) // throttled
	p.Done()
	out := buf.String()
	if !strings.Contains(out, "bell.wav  0:05 / 1:05") {
		t.Errorf("unexpected progress output %q", out)
	}
	if strings.Contains(out, "0:06") {
		t.Errorf("second update should have been throttled: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Done should end the line")
	}

	buf.Reset()
	p = newProgressLine(&buf, true)
	p.Update("tone:sine:440Hz", 3*time.Second, 0)
	if !strings.HasSuffix(buf.String(), "tone:sine:440Hz  0:03") {
		t.Errorf("unexpected open-ended progress %q", buf.String())
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{1499 * time.Millisecond, "0:01"},
		{59 * time.Second, "0:59"},
		{61 * time.Second, "1:01"},
		{90 * time.Minute, "90:00"},
	}
	for _, tt := range tests {
		if got := formatClock(tt.d); got != tt.want {
			t.Errorf("formatClock(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{2 * time.Minute, "2:00"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
