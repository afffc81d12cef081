package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	log_level
//	display
//	xauthority
//	stickers_file
//	watch_stickers
//	default_poll_interval_ms
//	message_poll_interval_ms
//	hide_when_minimized
//	lock_hotkey
//	unlock_hotkey
//	hotkey_sticker
//	display_scales
//	display_scales.<output>
//	message
//	message.timeout_ms
//	logging
//	logging.file
//	logging.max_size_mb
//	logging.max_files
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	// Exact-path file source wins.
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

// Paths lists every scalar path Explain accepts for cfg.
func Paths(cfg *Config) []string {
	paths := []string{
		"log_level",
		"display",
		"xauthority",
		"stickers_file",
		"watch_stickers",
		"default_poll_interval_ms",
		"message_poll_interval_ms",
		"hide_when_minimized",
		"lock_hotkey",
		"unlock_hotkey",
		"hotkey_sticker",
		"message.timeout_ms",
		"logging.file",
		"logging.max_size_mb",
		"logging.max_files",
	}
	if cfg != nil {
		for _, output := range sortedKeys(cfg.DisplayScales) {
			paths = append(paths, "display_scales."+output)
		}
	}
	return paths
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	scalar := func(v any) (any, error) {
		if len(parts) != 1 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		return v, nil
	}

	switch parts[0] {
	case "log_level":
		return scalar(cfg.LogLevel)
	case "display":
		return scalar(cfg.Display)
	case "xauthority":
		return scalar(cfg.XAuthority)
	case "stickers_file":
		return scalar(cfg.StickersFile)
	case "watch_stickers":
		return scalar(cfg.WatchStickers)
	case "default_poll_interval_ms":
		return scalar(cfg.DefaultPollIntervalMs)
	case "message_poll_interval_ms":
		return scalar(cfg.MessagePollIntervalMs)
	case "hide_when_minimized":
		return scalar(cfg.HideWhenMinimized)
	case "lock_hotkey":
		return scalar(cfg.LockHotkey)
	case "unlock_hotkey":
		return scalar(cfg.UnlockHotkey)
	case "hotkey_sticker":
		return scalar(cfg.HotkeySticker)
	case "display_scales":
		if len(parts) == 1 {
			return cfg.DisplayScales, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		scale, ok := cfg.DisplayScales[parts[1]]
		if !ok {
			return nil, fmt.Errorf("unknown display_scales entry %q", parts[1])
		}
		return scale, nil
	case "message":
		if len(parts) == 1 {
			return cfg.Message, nil
		}
		if len(parts) == 2 && parts[1] == "timeout_ms" {
			return cfg.Message.TimeoutMs, nil
		}
		return nil, fmt.Errorf("unknown path: %s", path)
	case "logging":
		if len(parts) == 1 {
			return cfg.Logging, nil
		}
		if len(parts) != 2 {
			return nil, fmt.Errorf("unknown path: %s", path)
		}
		switch parts[1] {
		case "file":
			return cfg.Logging.File, nil
		case "max_size_mb":
			return cfg.Logging.MaxSizeMB, nil
		case "max_files":
			return cfg.Logging.MaxFiles, nil
		}
		return nil, fmt.Errorf("unknown path: %s", path)
	default:
		return nil, fmt.Errorf("unknown path: %s", path)
	}
}
