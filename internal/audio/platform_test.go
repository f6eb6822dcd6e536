package audio

import (
	"testing"
)

func TestDetectWSLFromData(t *testing.T) {
	tests := []struct {
		name        string
		procVersion string
		wslEnv      string
		expected    bool
	}{
		{"env var set", "", "Ubuntu", true},
		{"microsoft kernel", "Linux version 5.15.90.1-microsoft-standard-WSL2", "", true},
		{"wsl marker", "Linux version 4.4.0-19041-wsl", "", true},
		{"native kernel", "Linux version 6.5.0-generic (buildd@lcy02)", "", false},
		{"nothing", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectWSLFromData(tt.procVersion, tt.wslEnv); got != tt.expected {
				t.Errorf("detectWSLFromData() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetPreferredSystemCommand(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		want      string
	}{
		{"paplay first", []string{"aplay", "ffplay", "paplay"}, "paplay"},
		{"ffplay over aplay", []string{"aplay", "ffplay"}, "ffplay"},
		{"aplay alone", []string{"aplay"}, "aplay"},
		{"none", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getPreferredSystemCommandWithChecker(commandChecker(tt.available...)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandExistsEmpty(t *testing.T) {
	if CommandExists("") {
		t.Error("empty command should not exist")
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("abcdef", 3); got != "abc..." {
		t.Errorf("got %q", got)
	}
	if got := truncateString("abc", 5); got != "abc" {
		t.Errorf("got %q", got)
	}
}
