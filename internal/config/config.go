package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"mixdown.dev/internal/audio"
)

// FileLoggingConfig represents file-based logging configuration
type FileLoggingConfig struct {
	Enabled    bool   `json:"enabled"`      // Whether file logging is enabled
	Filename   string `json:"filename"`     // Log file path (empty = XDG cache path)
	MaxSizeMB  int    `json:"max_size_mb"`  // Max file size in MB before rotation
	MaxBackups int    `json:"max_backups"`  // Max number of backup files to keep
	MaxAgeDays int    `json:"max_age_days"` // Max age in days before deletion
	Compress   bool   `json:"compress"`     // Whether to compress rotated files
}

// Config represents mixdown configuration
type Config struct {
	Volume       float64            `json:"volume"`                 // Master volume (0.0 to 1.0)
	OutputDevice string             `json:"output_device"`          // Backend name, "" or "autodetect"
	Parameters   string             `json:"parameters"`             // Backend parameters, "key=value,..."
	SoundMode    string             `json:"sound_mode"`             // "stream" or "buffer"
	SoundPaths   []string           `json:"sound_paths"`            // Extra directories searched by play
	LogLevel     string             `json:"log_level"`              // Log level (debug, info, warn, error)
	FileLogging  *FileLoggingConfig `json:"file_logging,omitempty"` // File logging configuration
	History      *HistoryConfig     `json:"history,omitempty"`      // Playback history configuration
}

// XDGInterface defines the interface for XDG directory operations
type XDGInterface interface {
	GetConfigPaths(filename string) []string
	GetSoundPaths() []string
	GetCachePath(purpose string) string
	CreateCacheDir(purpose string) error
}

// ConfigManager handles loading, saving, and validating configuration
type ConfigManager struct {
	xdg XDGInterface
	fs  afero.Fs
}

// NewConfigManager creates a configuration manager on the OS filesystem
func NewConfigManager() *ConfigManager {
	return NewConfigManagerWithFilesystem(afero.NewOsFs())
}

// NewConfigManagerWithFilesystem creates a configuration manager that reads and writes
// through fs
func NewConfigManagerWithFilesystem(fs afero.Fs) *ConfigManager {
	slog.Debug("creating new config manager")
	return &ConfigManager{
		xdg: NewXDGDirsWithFilesystem(fs),
		fs:  fs,
	}
}

// newConfigManagerWithXDG is used by tests to point discovery at fixed paths
func newConfigManagerWithXDG(fs afero.Fs, xdg XDGInterface) *ConfigManager {
	return &ConfigManager{xdg: xdg, fs: fs}
}

// XDG returns the directory resolver in use
func (cm *ConfigManager) XDG() XDGInterface {
	return cm.xdg
}

// GetDefaultConfig returns the default configuration
func (cm *ConfigManager) GetDefaultConfig() *Config {
	defaultConfig := &Config{
		Volume:       1.0,
		OutputDevice: audio.DeviceAutodetect,
		Parameters:   "",
		SoundMode:    audio.SoundStream.String(),
		SoundPaths:   []string{},
		LogLevel:     "warn",
		FileLogging: &FileLoggingConfig{
			Enabled:    false,
			Filename:   "",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		History: GetDefaultHistoryConfig(),
	}

	slog.Debug("generated default config",
		"volume", defaultConfig.Volume,
		"output_device", defaultConfig.OutputDevice,
		"sound_mode", defaultConfig.SoundMode,
		"log_level", defaultConfig.LogLevel,
		"history_enabled", defaultConfig.History.Enabled)

	return defaultConfig
}

// LoadFromFile loads configuration from a specific file. Fields missing from the file
// keep their default values.
func (cm *ConfigManager) LoadFromFile(filePath string) (*Config, error) {
	slog.Debug("loading config from file", "file_path", filePath)

	data, err := afero.ReadFile(cm.fs, filePath)
	if err != nil {
		slog.Error("failed to read config file", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := cm.GetDefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		slog.Error("failed to parse config JSON", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cm.ValidateConfig(config); err != nil {
		return nil, err
	}

	slog.Debug("config loaded successfully",
		"file_path", filePath,
		"volume", config.Volume,
		"output_device", config.OutputDevice)

	return config, nil
}

// SaveToFile saves configuration to a specific file
func (cm *ConfigManager) SaveToFile(config *Config, filePath string) error {
	slog.Debug("saving config to file", "file_path", filePath)

	if err := cm.ValidateConfig(config); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	dir := filepath.Dir(filePath)
	if err := cm.fs.MkdirAll(dir, 0755); err != nil {
		slog.Error("failed to create config directory", "directory", dir, "error", err)
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(cm.fs, filePath, data, 0644); err != nil {
		slog.Error("failed to write config file", "file_path", filePath, "error", err)
		return fmt.Errorf("failed to write config file: %w", err)
	}

	slog.Info("config saved successfully", "file_path", filePath)
	return nil
}

// LoadConfig loads configuration using XDG path discovery
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	configPaths := cm.xdg.GetConfigPaths("config.json")
	slog.Debug("searching for config file", "paths", configPaths)

	for _, configPath := range configPaths {
		if _, err := cm.fs.Stat(configPath); err == nil {
			slog.Debug("found config file", "path", configPath)
			return cm.LoadFromFile(configPath)
		}
	}

	slog.Debug("no config file found, using defaults")
	return cm.GetDefaultConfig(), nil
}

// ValidateConfig validates configuration values and reports every problem at once
func (cm *ConfigManager) ValidateConfig(config *Config) error {
	var errors []string

	if math.IsNaN(config.Volume) || config.Volume < 0.0 || config.Volume > 1.0 {
		errors = append(errors, fmt.Sprintf("volume must be between 0.0 and 1.0, got %f", config.Volume))
	}

	if config.LogLevel != "" {
		if _, err := ParseLogLevel(config.LogLevel); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if !cm.IsValidOutputDevice(config.OutputDevice) {
		errors = append(errors, fmt.Sprintf("invalid output device '%s', must be one of: %s",
			config.OutputDevice, strings.Join(cm.GetSupportedOutputDevices(), ", ")))
	}

	switch config.SoundMode {
	case "", audio.SoundStream.String(), audio.SoundBuffer.String():
	default:
		errors = append(errors, fmt.Sprintf("invalid sound mode '%s', must be one of: stream, buffer", config.SoundMode))
	}

	if config.FileLogging != nil {
		fileLogging := config.FileLogging
		if fileLogging.MaxSizeMB < 0 {
			errors = append(errors, fmt.Sprintf("file logging max_size_mb must be >= 0, got %d", fileLogging.MaxSizeMB))
		}
		if fileLogging.MaxBackups < 0 {
			errors = append(errors, fmt.Sprintf("file logging max_backups must be >= 0, got %d", fileLogging.MaxBackups))
		}
		if fileLogging.MaxAgeDays < 0 {
			errors = append(errors, fmt.Sprintf("file logging max_age_days must be >= 0, got %d", fileLogging.MaxAgeDays))
		}
	}

	if len(errors) > 0 {
		errMsg := strings.Join(errors, "; ")
		slog.Error("config validation failed", "errors", errMsg)
		return fmt.Errorf("config validation failed: %s", errMsg)
	}

	slog.Debug("config validation passed")
	return nil
}

// ApplyEnvironmentOverrides applies MIXDOWN_* environment variables to a copy of config
func (cm *ConfigManager) ApplyEnvironmentOverrides(config *Config) *Config {
	result := *config

	if volStr := os.Getenv("MIXDOWN_VOLUME"); volStr != "" {
		if vol, err := strconv.ParseFloat(volStr, 64); err == nil {
			result.Volume = vol
			slog.Debug("applied volume override from environment", "value", vol)
		} else {
			slog.Warn("invalid MIXDOWN_VOLUME environment variable", "value", volStr, "error", err)
		}
	}

	if device := os.Getenv("MIXDOWN_DEVICE"); device != "" {
		if cm.IsValidOutputDevice(device) {
			result.OutputDevice = device
			slog.Debug("applied output device override from environment", "value", device)
		} else {
			slog.Warn("invalid MIXDOWN_DEVICE environment variable", "value", device)
		}
	}

	if params, ok := os.LookupEnv("MIXDOWN_PARAMETERS"); ok {
		result.Parameters = params
		slog.Debug("applied parameters override from environment", "value", params)
	}

	if logLevel := os.Getenv("MIXDOWN_LOG_LEVEL"); logLevel != "" {
		result.LogLevel = logLevel
		slog.Debug("applied log level override from environment", "value", logLevel)
	}

	if mode := os.Getenv("MIXDOWN_SOUND_MODE"); mode != "" {
		result.SoundMode = mode
		slog.Debug("applied sound mode override from environment", "value", mode)
	}

	history := result.History
	if history == nil {
		history = GetDefaultHistoryConfig()
	}
	result.History = ApplyHistoryEnvironmentOverrides(history)

	return &result
}

// ParseLogLevel maps debug, info, warn and error to their slog levels
func ParseLogLevel(logLevel string) (slog.Level, error) {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", logLevel)
	}
}

// ApplyLogLevelWithWriter configures slog with the specified log level and writer
func (cm *ConfigManager) ApplyLogLevelWithWriter(logLevel string, writer io.Writer) error {
	if logLevel == "" {
		slog.Debug("no log level specified, keeping current slog configuration")
		return nil
	}

	level, err := ParseLogLevel(logLevel)
	if err != nil {
		slog.Error("invalid log level for slog configuration", "log_level", logLevel, "error", err)
		return err
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))

	slog.Debug("slog configured successfully", "log_level", logLevel)
	return nil
}

// ResolveLogFilePath resolves the log file path using XDG cache directory when filename is empty
func (cm *ConfigManager) ResolveLogFilePath(filename string) string {
	if filename != "" {
		return filename
	}
	return filepath.Join(cm.xdg.GetCachePath("logs"), "mixdown.log")
}

// ResolveHistoryPath resolves the history database path, defaulting to the XDG cache
// directory
func (cm *ConfigManager) ResolveHistoryPath(history *HistoryConfig) string {
	if history != nil && history.DatabasePath != "" {
		return history.DatabasePath
	}
	return filepath.Join(cm.xdg.GetCachePath(""), "history.db")
}

// GetSupportedOutputDevices returns the names accepted for output_device
func (cm *ConfigManager) GetSupportedOutputDevices() []string {
	return audio.NewBackendFactory().GetSupportedBackends()
}

// IsValidOutputDevice checks if an output device name is supported
func (cm *ConfigManager) IsValidOutputDevice(device string) bool {
	if device == "" || device == "auto" {
		return true
	}
	return audio.NewBackendFactory().IsValidBackendType(device)
}

// SoundSearchPaths returns the directories play searches for a sound named by relative
// path: config.SoundPaths first, then the XDG sound directories
func (cm *ConfigManager) SoundSearchPaths(config *Config) []string {
	dirs := append([]string{}, config.SoundPaths...)
	return append(dirs, cm.xdg.GetSoundPaths()...)
}
