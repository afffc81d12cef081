package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPollIntervalMs        = 100
	DefaultMessagePollIntervalMs = 50
	DefaultMessageTimeoutMs      = 4000
	MinPollIntervalMs            = 16
	DefaultLogMaxSizeMB          = 10
	DefaultLogMaxFiles           = 3
)

// LoggingConfig configures the daemon log file. An empty File logs to
// stderr.
type LoggingConfig struct {
	File      string `yaml:"file,omitempty"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// MessageConfig configures ephemeral message bubbles.
type MessageConfig struct {
	// TimeoutMs is how long a bubble stays up. 0 keeps it until dismissed.
	TimeoutMs int `yaml:"timeout_ms"`
}

// Config holds the daemon configuration.
type Config struct {
	LogLevel              string `yaml:"log_level"`
	Display               string `yaml:"display,omitempty"`
	XAuthority            string `yaml:"xauthority,omitempty"`
	StickersFile          string `yaml:"stickers_file"`
	WatchStickers         bool   `yaml:"watch_stickers"`
	DefaultPollIntervalMs int    `yaml:"default_poll_interval_ms"`
	MessagePollIntervalMs int    `yaml:"message_poll_interval_ms"`
	HideWhenMinimized     bool   `yaml:"hide_when_minimized"`
	LockHotkey            string `yaml:"lock_hotkey"`
	UnlockHotkey          string `yaml:"unlock_hotkey"`
	// HotkeySticker names the sticker the hotkeys act on. Empty means the
	// first enabled sticker that is not in batch mode.
	HotkeySticker string `yaml:"hotkey_sticker,omitempty"`
	// DisplayScales maps RandR output names to a scale factor.
	DisplayScales map[string]float64 `yaml:"display_scales"`
	Message       MessageConfig      `yaml:"message"`
	Logging       LoggingConfig      `yaml:"logging"`
}

func DefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "stickyfollow"), nil
}

func DefaultConfig() *Config {
	stickers := "stickers.yaml"
	if dir, err := DefaultConfigDir(); err == nil {
		stickers = filepath.Join(dir, stickers)
	}
	return &Config{
		LogLevel:              "info",
		StickersFile:          stickers,
		WatchStickers:         true,
		DefaultPollIntervalMs: DefaultPollIntervalMs,
		MessagePollIntervalMs: DefaultMessagePollIntervalMs,
		HideWhenMinimized:     true,
		LockHotkey:            "Mod4-Shift-l",
		UnlockHotkey:          "Mod4-Shift-u",
		DisplayScales:         map[string]float64{},
		Message: MessageConfig{
			TimeoutMs: DefaultMessageTimeoutMs,
		},
		Logging: LoggingConfig{
			MaxSizeMB: DefaultLogMaxSizeMB,
			MaxFiles:  DefaultLogMaxFiles,
		},
	}
}

// Save writes the configuration to path.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ScaleFor returns the configured scale for a RandR output, or 0.
func (c *Config) ScaleFor(output string) float64 {
	if c == nil {
		return 0
	}
	return c.DisplayScales[output]
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	if strings.TrimSpace(c.StickersFile) == "" {
		return &ValidationError{Path: "stickers_file", Err: fmt.Errorf("stickers_file is required")}
	}
	if c.DefaultPollIntervalMs < MinPollIntervalMs {
		return &ValidationError{Path: "default_poll_interval_ms", Err: fmt.Errorf("default_poll_interval_ms must be >= %d", MinPollIntervalMs)}
	}
	if c.MessagePollIntervalMs < MinPollIntervalMs {
		return &ValidationError{Path: "message_poll_interval_ms", Err: fmt.Errorf("message_poll_interval_ms must be >= %d", MinPollIntervalMs)}
	}
	if c.Message.TimeoutMs < 0 {
		return &ValidationError{Path: "message.timeout_ms", Err: fmt.Errorf("timeout_ms must be >= 0")}
	}
	if c.Logging.MaxSizeMB < 1 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 1")}
	}
	if c.Logging.MaxFiles < 1 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("max_files must be >= 1")}
	}
	if c.DisplayScales == nil {
		return &ValidationError{Path: "display_scales", Err: fmt.Errorf("display_scales must not be null")}
	}
	for output, scale := range c.DisplayScales {
		if strings.TrimSpace(output) == "" {
			return &ValidationError{Path: "display_scales", Err: fmt.Errorf("display_scales contains an empty output name")}
		}
		if scale <= 0 || scale > 8 {
			return &ValidationError{Path: "display_scales." + output, Err: fmt.Errorf("scale must be in (0, 8]")}
		}
	}
	if c.LockHotkey != "" && c.LockHotkey == c.UnlockHotkey {
		return &ValidationError{Path: "unlock_hotkey", Err: fmt.Errorf("unlock_hotkey must differ from lock_hotkey")}
	}
	return nil
}

// expandHome resolves a leading ~ in path.
func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
