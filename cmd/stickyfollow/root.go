package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/1broseidon/stickyfollow/internal/config"
	"github.com/1broseidon/stickyfollow/internal/logging"
)

// Build-time variables (set via ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

var (
	cfg        *config.Config
	loadResult *config.LoadResult
	globalOpts struct {
		configPath string
		logLevel   string
		jsonOutput bool
	}
	logger    *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "stickyfollow",
	Short: "Stickers that follow your windows",
	Long: `stickyfollow keeps small overlay "stickers" glued to other application
windows. A sticker either follows one remembered window or attaches a copy
to every window matching a class, process or title filter.

Run "stickyfollow daemon" to start the engine; the other commands talk to
the running daemon over a unix socket or edit the stickers file.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		return setupLogger(cmd.Name() == "daemon")
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/stickyfollow/config.yaml, or $"+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&globalOpts.logLevel, "log-level", "",
		"Override log_level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&globalOpts.jsonOutput, "json", false,
		"Print machine-readable JSON")
}

func loadConfig() error {
	var err error
	if globalOpts.configPath != "" {
		loadResult, err = config.LoadFromPath(globalOpts.configPath)
	} else {
		loadResult, err = config.LoadWithSources()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg = loadResult.Config
	return nil
}

// setupLogger builds the global logger from config. Only the daemon writes
// to logging.file; other commands log to stderr.
func setupLogger(toFile bool) error {
	level := cfg.LogLevel
	if globalOpts.logLevel != "" {
		level = globalOpts.logLevel
	}
	opts := logging.Options{Level: level}
	if toFile {
		opts.File = cfg.Logging.File
		opts.MaxSizeMB = cfg.Logging.MaxSizeMB
		opts.MaxFiles = cfg.Logging.MaxFiles
	}

	var err error
	logger, logCloser, err = logging.New(opts)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
