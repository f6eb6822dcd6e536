package config

import (
	"log/slog"
	"os"
	"strconv"
)

// HistoryConfig represents playback history configuration
type HistoryConfig struct {
	Enabled      bool   `json:"enabled"`       // Whether played files are recorded
	DatabasePath string `json:"database_path"` // Custom database path (empty = XDG cache path)
}

// GetDefaultHistoryConfig returns the default playback history configuration
func GetDefaultHistoryConfig() *HistoryConfig {
	return &HistoryConfig{
		Enabled:      true,
		DatabasePath: "",
	}
}

// ApplyHistoryEnvironmentOverrides applies MIXDOWN_HISTORY and MIXDOWN_HISTORY_DB to a
// copy of config
func ApplyHistoryEnvironmentOverrides(config *HistoryConfig) *HistoryConfig {
	result := *config

	if enabledStr := os.Getenv("MIXDOWN_HISTORY"); enabledStr != "" {
		if enabled, err := strconv.ParseBool(enabledStr); err == nil {
			result.Enabled = enabled
			slog.Debug("applied history override from environment", "value", enabled)
		} else {
			slog.Warn("invalid MIXDOWN_HISTORY environment variable", "value", enabledStr, "error", err)
		}
	}

	if dbPath := os.Getenv("MIXDOWN_HISTORY_DB"); dbPath != "" {
		result.DatabasePath = dbPath
		slog.Debug("applied history database override from environment", "value", dbPath)
	}

	return &result
}
