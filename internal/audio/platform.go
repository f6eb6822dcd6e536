package audio

import (
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// IsWSL checks if the current environment is Windows Subsystem for Linux
func IsWSL() bool {
	return detectWSLFromData(readProcVersion(), os.Getenv("WSL_DISTRO_NAME"))
}

// detectWSLFromData checks for WSL indicators in the provided data (for testing)
func detectWSLFromData(procVersion, wslEnv string) bool {
	if wslEnv != "" {
		slog.Debug("WSL detected via environment variable", "distro", wslEnv)
		return true
	}

	procLower := strings.ToLower(procVersion)
	if strings.Contains(procLower, "microsoft") || strings.Contains(procLower, "wsl") {
		slog.Debug("WSL detected via /proc/version", "proc_version", truncateString(procVersion, 50))
		return true
	}
	return false
}

// readProcVersion reads /proc/version file content
func readProcVersion() string {
	content, err := os.ReadFile("/proc/version")
	if err != nil {
		slog.Debug("failed to read /proc/version", "error", err)
		return ""
	}
	return string(content)
}

// CommandExists checks if a command is available in the system's PATH using exec.LookPath
func CommandExists(command string) bool {
	if command == "" {
		return false
	}
	_, err := exec.LookPath(command)
	exists := err == nil
	slog.Debug("command existence check", "command", command, "exists", exists)
	return exists
}

// DetectBackendOrder returns the autodetect preference order for the current system
func DetectBackendOrder() []string {
	return detectBackendOrderWithChecker(IsWSL(), CommandExists)
}

// detectBackendOrderWithChecker allows dependency injection for testing
func detectBackendOrderWithChecker(isWSL bool, commandChecker func(string) bool) []string {
	hasCommand := getPreferredSystemCommandWithChecker(commandChecker) != ""

	var order []string
	if isWSL {
		// miniaudio crackles under WSL; pipe to a system player when one exists
		slog.Debug("WSL detected, preferring system commands over malgo")
		if hasCommand {
			order = append(order, BackendSystemCommand)
		}
		order = append(order, BackendMalgo, BackendOto)
	} else {
		order = append(order, BackendMalgo, BackendOto)
		if hasCommand {
			order = append(order, BackendSystemCommand)
		}
	}
	return append(order, BackendNull)
}

// getPreferredSystemCommandWithChecker allows dependency injection for testing
func getPreferredSystemCommandWithChecker(commandChecker func(string) bool) string {
	// Priority order: paplay (PulseAudio) > ffplay (FFmpeg) > aplay (ALSA)
	preferredCommands := []string{
		"paplay",
		"ffplay",
		"aplay",
	}

	for _, cmd := range preferredCommands {
		if commandChecker(cmd) {
			slog.Debug("preferred system command found", "command", cmd)
			return cmd
		}
	}

	slog.Debug("no preferred system audio commands found")
	return ""
}

// truncateString truncates a string to maxLen characters for logging
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
