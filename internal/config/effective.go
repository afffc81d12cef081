package config

import (
	"fmt"
	"maps"
	"slices"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw over DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.XAuthority != nil {
		path, err := expandHome(*raw.XAuthority)
		if err != nil {
			return nil, &ValidationError{Path: "xauthority", Err: err}
		}
		cfg.XAuthority = path
	}
	if raw.StickersFile != nil {
		path, err := expandHome(*raw.StickersFile)
		if err != nil {
			return nil, &ValidationError{Path: "stickers_file", Err: err}
		}
		cfg.StickersFile = path
	}
	if raw.WatchStickers != nil {
		cfg.WatchStickers = *raw.WatchStickers
	}
	cfg.DefaultPollIntervalMs = derefInt(raw.DefaultPollIntervalMs, cfg.DefaultPollIntervalMs)
	cfg.MessagePollIntervalMs = derefInt(raw.MessagePollIntervalMs, cfg.MessagePollIntervalMs)
	if raw.HideWhenMinimized != nil {
		cfg.HideWhenMinimized = *raw.HideWhenMinimized
	}
	if raw.LockHotkey != nil {
		cfg.LockHotkey = *raw.LockHotkey
	}
	if raw.UnlockHotkey != nil {
		cfg.UnlockHotkey = *raw.UnlockHotkey
	}
	if raw.HotkeySticker != nil {
		cfg.HotkeySticker = *raw.HotkeySticker
	}
	if raw.DisplayScales != nil {
		maps.Copy(cfg.DisplayScales, raw.DisplayScales)
	}
	if raw.Message != nil {
		cfg.Message.TimeoutMs = derefInt(raw.Message.TimeoutMs, cfg.Message.TimeoutMs)
	}
	if raw.Logging != nil {
		if raw.Logging.File != nil {
			path, err := expandHome(*raw.Logging.File)
			if err != nil {
				return nil, &ValidationError{Path: "logging.file", Err: err}
			}
			cfg.Logging.File = path
		}
		cfg.Logging.MaxSizeMB = derefInt(raw.Logging.MaxSizeMB, cfg.Logging.MaxSizeMB)
		cfg.Logging.MaxFiles = derefInt(raw.Logging.MaxFiles, cfg.Logging.MaxFiles)
	}

	return cfg, nil
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
