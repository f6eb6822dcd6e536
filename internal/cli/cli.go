package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
	"mixdown.dev/internal/audio"
	"mixdown.dev/internal/config"
	"mixdown.dev/internal/fs"
	"mixdown.dev/internal/history"
)

const Version = "0.9.0"

// CLI represents the command-line interface
type CLI struct {
	rootCmd          *cobra.Command
	configManager    *config.ConfigManager
	fsFactory        fs.Factory
	backendFactory   audio.BackendFactory
	terminalDetector TerminalDetector
	historyStore     *history.Store
	tracker          *history.Tracker
	config           *config.Config
	logFile          io.Closer
}

// Option configures a CLI, mostly to inject test doubles
type Option func(*CLI)

// WithConfigManager replaces the XDG backed configuration manager
func WithConfigManager(cm *config.ConfigManager) Option {
	return func(c *CLI) { c.configManager = cm }
}

// WithFilesystemFactory replaces the OS filesystems
func WithFilesystemFactory(f fs.Factory) Option {
	return func(c *CLI) { c.fsFactory = f }
}

// WithBackendFactory replaces the backend factory handed to every device
func WithBackendFactory(f audio.BackendFactory) Option {
	return func(c *CLI) { c.backendFactory = f }
}

// WithTerminalDetector replaces the x/term based detector
func WithTerminalDetector(d TerminalDetector) Option {
	return func(c *CLI) { c.terminalDetector = d }
}

// NewCLI creates a new CLI instance
func NewCLI(opts ...Option) *CLI {
	c := &CLI{}
	for _, opt := range opts {
		opt(c)
	}
	if c.configManager == nil {
		c.configManager = config.NewConfigManager()
	}
	if c.fsFactory == nil {
		c.fsFactory = fs.NewDefaultFactory()
	}
	if c.backendFactory == nil {
		c.backendFactory = audio.NewBackendFactory()
	}

	rootCmd := &cobra.Command{
		Use:   "mixdown",
		Short: "Pull-based audio playback and mixing",
		Long: `mixdown plays, mixes, renders and exports sounds through a pluggable set of
audio backends: miniaudio, oto, system players, a WAV file writer, a silent null
device and dynamically loaded driver modules.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if handled, err := handleVersionFlag(cmd); handled || err != nil {
				return err
			}
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("volume", "", "Master volume (0.0 to 1.0)")
	rootCmd.PersistentFlags().StringP("device", "d", "", "Output device: autodetect, null, malgo, oto, system_command, wavfile or dll")
	rootCmd.PersistentFlags().StringP("params", "p", "", "Device parameters, e.g. \"rate=48000,buffer=50\"")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(
		newPlayCommand(c),
		newToneCommand(c),
		newRenderCommand(c),
		newExportCommand(c),
		newBackendsCommand(c),
		newHistoryCommand(c),
		newConfigCommand(c),
		newVersionCommand(),
	)

	c.rootCmd = rootCmd
	return c
}

// handleVersionFlag checks and handles the version flag
// Returns true if version was handled and processing should stop
func handleVersionFlag(cmd *cobra.Command) (bool, error) {
	version, _ := cmd.Flags().GetBool("version")
	if version {
		printVersion(cmd.OutOrStdout())
		return true, nil
	}
	return false, nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "mixdown version %s\n", Version)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		// version needs no configuration
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

// Run executes the CLI with the given arguments and I/O streams and returns the exit
// code
func (c *CLI) Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	slog.Debug("CLI run started", "args", args)

	// answer --version before any configuration is read or device opened
	if len(args) > 1 && (args[1] == "--version" || args[1] == "-v") {
		printVersion(stdout)
		return 0
	}

	defer c.cleanup()

	// until the configuration is read only warnings reach stderr
	bootstrapLevel := os.Getenv("MIXDOWN_LOG_LEVEL")
	if _, err := config.ParseLogLevel(bootstrapLevel); err != nil {
		bootstrapLevel = "warn"
	}
	c.configManager.ApplyLogLevelWithWriter(bootstrapLevel, stderr)

	c.rootCmd.SetArgs(args[1:])
	c.rootCmd.SetIn(stdin)
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := c.rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		slog.Debug("command failed", "error", err)
		return 1
	}
	return 0
}

func (c *CLI) cleanup() {
	if c.historyStore != nil {
		if err := c.historyStore.Close(); err != nil {
			slog.Error("error closing history database", "error", err)
		}
		c.historyStore = nil
	}
	c.tracker = nil
	if c.logFile != nil {
		c.logFile.Close()
		c.logFile = nil
	}
}

// prepare loads configuration and sets up logging before any subcommand runs
func (c *CLI) prepare(cmd *cobra.Command) error {
	cfg, err := loadAndValidateConfig(cmd, c.configManager)
	if err != nil {
		return err
	}
	c.config = cfg
	c.setupLogging(cfg, cmd.ErrOrStderr())
	return nil
}

// loadAndValidateConfig loads configuration from flags and files, applies overrides, and validates
func loadAndValidateConfig(cmd *cobra.Command, cm *config.ConfigManager) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	volumeStr, _ := cmd.Flags().GetString("volume")
	device, _ := cmd.Flags().GetString("device")
	params, _ := cmd.Flags().GetString("params")
	logLevel, _ := cmd.Flags().GetString("log-level")

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = cm.LoadFromFile(configFile)
	} else {
		cfg, err = cm.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	cfg = cm.ApplyEnvironmentOverrides(cfg)

	if volumeStr != "" {
		vol, err := strconv.ParseFloat(volumeStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid volume value '%s': %w", volumeStr, err)
		}
		cfg.Volume = vol
	}
	if device != "" {
		cfg.OutputDevice = device
	}
	if cmd.Flags().Changed("params") {
		cfg.Parameters = params
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cm.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Debug("configuration ready",
		"volume", cfg.Volume,
		"output_device", cfg.OutputDevice,
		"parameters", cfg.Parameters)
	return cfg, nil
}

// setupLogging sends records at the configured level to stderr and, when file logging
// is on, every record from debug up to a rotating log file
func (c *CLI) setupLogging(cfg *config.Config, stderr io.Writer) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
	}

	if cfg.FileLogging != nil && cfg.FileLogging.Enabled {
		logFilePath := c.configManager.ResolveLogFilePath(cfg.FileLogging.Filename)
		if cfg.FileLogging.Filename == "" {
			err = c.configManager.XDG().CreateCacheDir("logs")
		} else {
			err = c.fsFactory.Production().MkdirAll(filepath.Dir(logFilePath), 0755)
		}
		if err != nil {
			slog.Error("failed to create log directory, continuing without file logging", "path", logFilePath, "error", err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   logFilePath,
				MaxSize:    cfg.FileLogging.MaxSizeMB,
				MaxBackups: cfg.FileLogging.MaxBackups,
				MaxAge:     cfg.FileLogging.MaxAgeDays,
				Compress:   cfg.FileLogging.Compress,
			}
			c.logFile = fileWriter
			handlers = append(handlers, slog.NewTextHandler(fileWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
	}

	slog.SetDefault(slog.New(NewMultiLevelHandler(handlers...)))
	slog.Debug("logging setup completed", "level", level.String(), "handlers", len(handlers))
}

// initializeHistory builds the tracker once. A history database that cannot be opened
// is logged and playback continues without it.
func (c *CLI) initializeHistory() *history.Tracker {
	if c.tracker != nil {
		return c.tracker
	}

	opts := []history.TrackerOption{history.WithHook(history.NewSlogHook(nil).GetHook())}

	if c.config != nil && c.config.History != nil && c.config.History.Enabled {
		store, err := c.openHistoryStore()
		if err != nil {
			slog.Error("failed to open history database, continuing without history", "error", err)
		} else {
			opts = append(opts, history.WithHook(history.NewDBHook(store).GetHook()))
		}
	}

	c.tracker = history.NewTracker(opts...)
	return c.tracker
}

func (c *CLI) openHistoryStore() (*history.Store, error) {
	if c.historyStore != nil {
		return c.historyStore, nil
	}
	dbPath := c.configManager.ResolveHistoryPath(c.config.History)
	store, err := history.Open(dbPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("history database initialized", "path", dbPath)
	c.historyStore = store
	return store, nil
}

// deviceParameters parses the configured parameter list
func (c *CLI) deviceParameters() audio.Parameters {
	return audio.ParseParameters(c.config.Parameters)
}

// openDevice opens the configured output device with params and applies the master
// volume
func (c *CLI) openDevice(outputDevice string, params audio.Parameters) (*audio.Device, error) {
	device, err := audio.OpenDevice(audio.Attributes{
		OutputDevice: outputDevice,
		Parameters:   params.Encode(),
		Fs:           c.fsFactory.Production(),
		Factory:      c.backendFactory,
	})
	if err != nil {
		return nil, err
	}
	device.SetVolume(float32(c.config.Volume))
	return device, nil
}

// soundLoader searches the read-only filesystem and the configured sound directories
func (c *CLI) soundLoader() *SoundLoader {
	return NewSoundLoader(c.fsFactory.ReadOnly(), c.configManager.SoundSearchPaths(c.config))
}
