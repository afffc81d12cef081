package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawMessageConfig struct {
	TimeoutMs *int `yaml:"timeout_ms"`
}

type RawLoggingConfig struct {
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

type RawConfig struct {
	Include               IncludeList        `yaml:"include"`
	LogLevel              *string            `yaml:"log_level"`
	Display               *string            `yaml:"display"`
	XAuthority            *string            `yaml:"xauthority"`
	StickersFile          *string            `yaml:"stickers_file"`
	WatchStickers         *bool              `yaml:"watch_stickers"`
	DefaultPollIntervalMs *int               `yaml:"default_poll_interval_ms"`
	MessagePollIntervalMs *int               `yaml:"message_poll_interval_ms"`
	HideWhenMinimized     *bool              `yaml:"hide_when_minimized"`
	LockHotkey            *string            `yaml:"lock_hotkey"`
	UnlockHotkey          *string            `yaml:"unlock_hotkey"`
	HotkeySticker         *string            `yaml:"hotkey_sticker"`
	DisplayScales         map[string]float64 `yaml:"display_scales"`
	Message               *RawMessageConfig  `yaml:"message"`
	Logging               *RawLoggingConfig  `yaml:"logging"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.XAuthority != nil {
		out.XAuthority = overlay.XAuthority
	}
	if overlay.StickersFile != nil {
		out.StickersFile = overlay.StickersFile
	}
	if overlay.WatchStickers != nil {
		out.WatchStickers = overlay.WatchStickers
	}
	if overlay.DefaultPollIntervalMs != nil {
		out.DefaultPollIntervalMs = overlay.DefaultPollIntervalMs
	}
	if overlay.MessagePollIntervalMs != nil {
		out.MessagePollIntervalMs = overlay.MessagePollIntervalMs
	}
	if overlay.HideWhenMinimized != nil {
		out.HideWhenMinimized = overlay.HideWhenMinimized
	}
	if overlay.LockHotkey != nil {
		out.LockHotkey = overlay.LockHotkey
	}
	if overlay.UnlockHotkey != nil {
		out.UnlockHotkey = overlay.UnlockHotkey
	}
	if overlay.HotkeySticker != nil {
		out.HotkeySticker = overlay.HotkeySticker
	}
	if overlay.DisplayScales != nil {
		merged := make(map[string]float64, len(out.DisplayScales)+len(overlay.DisplayScales))
		for output, scale := range out.DisplayScales {
			merged[output] = scale
		}
		for output, scale := range overlay.DisplayScales {
			merged[output] = scale
		}
		out.DisplayScales = merged
	}
	if overlay.Message != nil {
		msg := RawMessageConfig{}
		if out.Message != nil {
			msg = *out.Message
		}
		if overlay.Message.TimeoutMs != nil {
			msg.TimeoutMs = overlay.Message.TimeoutMs
		}
		out.Message = &msg
	}
	if overlay.Logging != nil {
		lc := RawLoggingConfig{}
		if out.Logging != nil {
			lc = *out.Logging
		}
		if overlay.Logging.File != nil {
			lc.File = overlay.Logging.File
		}
		if overlay.Logging.MaxSizeMB != nil {
			lc.MaxSizeMB = overlay.Logging.MaxSizeMB
		}
		if overlay.Logging.MaxFiles != nil {
			lc.MaxFiles = overlay.Logging.MaxFiles
		}
		out.Logging = &lc
	}

	return out
}
