package mcp

// StatusInput is the input for the status tool.
type StatusInput struct{}

// StatusOutput is the output for the status tool.
type StatusOutput struct {
	Backend          string `json:"backend"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	Stickers         int    `json:"stickers"`
	Instances        int    `json:"instances"`
	Messages         int    `json:"messages"`
	FollowActive     bool   `json:"follow_active"`
	FollowIntervalMs int64  `json:"follow_interval_ms"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct {
	Filter string `json:"filter,omitempty" jsonschema:"Optional case-insensitive substring matched against title, class and process"`
}

// WindowInfo describes a top-level window.
type WindowInfo struct {
	Handle    string  `json:"handle"`
	Title     string  `json:"title"`
	Class     string  `json:"class"`
	Process   string  `json:"process"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Minimized bool    `json:"minimized"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
}

// ListStickersInput is the input for the list_stickers tool.
type ListStickersInput struct{}

// StickerInfo describes a sticker and what it follows.
type StickerInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	Enabled       bool   `json:"enabled"`
	Batch         bool   `json:"batch"`
	Active        bool   `json:"active"`
	FilterKind    string `json:"filter_kind,omitempty"`
	FilterPattern string `json:"filter_pattern,omitempty"`
	TargetProcess string `json:"target_process,omitempty"`
	Target        string `json:"target,omitempty"`
	Instances     int    `json:"instances"`
}

// ListStickersOutput is the output for the list_stickers tool.
type ListStickersOutput struct {
	Stickers []StickerInfo `json:"stickers"`
}

// LockStickerInput is the input for the lock_sticker tool.
type LockStickerInput struct {
	Sticker string `json:"sticker,omitempty" jsonschema:"Sticker id, id prefix or name (default: the last used sticker)"`
	Window  string `json:"window,omitempty" jsonschema:"Window handle from list_windows, e.g. 0x3a00007 (default: the active window)"`
}

// UnlockStickerInput is the input for the unlock_sticker tool.
type UnlockStickerInput struct {
	Sticker string `json:"sticker,omitempty" jsonschema:"Sticker id, id prefix or name (default: the last used sticker)"`
}

// StickerOutput is the output for lock_sticker and unlock_sticker.
type StickerOutput struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	Enabled       bool   `json:"enabled"`
	TargetProcess string `json:"target_process,omitempty"`
}

// SuggestFilterInput is the input for the suggest_filter tool.
type SuggestFilterInput struct {
	Window string `json:"window,omitempty" jsonschema:"Window handle from list_windows (default: the active window)"`
	Kind   string `json:"kind,omitempty" jsonschema:"One of window-class, process-name or title-regex (default: window-class)"`
}

// SuggestFilterOutput is the output for the suggest_filter tool.
type SuggestFilterOutput struct {
	Window  WindowInfo `json:"window"`
	Kind    string     `json:"kind"`
	Pattern string     `json:"pattern"`
}

// ShowMessageInput is the input for the show_message tool.
type ShowMessageInput struct {
	Sticker   string `json:"sticker,omitempty" jsonschema:"Sticker to attach the bubble to (default: the last used sticker)"`
	Text      string `json:"text" jsonschema:"Text to show in the bubble"`
	TimeoutMs int    `json:"timeout_ms,omitempty" jsonschema:"How long the bubble stays up in milliseconds (default: daemon setting; negative keeps it until dismissed)"`
}

// ShowMessageOutput is the output for the show_message tool.
type ShowMessageOutput struct {
	ID string `json:"id"`
}

// DismissMessageInput is the input for the dismiss_message tool.
type DismissMessageInput struct {
	ID string `json:"id" jsonschema:"Message id returned by show_message"`
}

// DismissMessageOutput is the output for the dismiss_message tool.
type DismissMessageOutput struct {
	Found bool `json:"found"`
}
