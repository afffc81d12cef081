package follow

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

const (
	// DefaultPollIntervalMs is used when a follow config leaves the poll
	// interval unset.
	DefaultPollIntervalMs = 100
	// MinPollIntervalMs is the floor applied to every poll interval.
	MinPollIntervalMs = 16
)

// FilterKind selects which window attribute a batch filter pattern is
// matched against.
type FilterKind int

const (
	WindowClass FilterKind = iota
	ProcessName
	TitleRegex
)

var filterKindNames = map[FilterKind]string{
	WindowClass: "window-class",
	ProcessName: "process-name",
	TitleRegex:  "title-regex",
}

func (k FilterKind) String() string {
	if name, ok := filterKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("filter-kind(%d)", int(k))
}

// ParseFilterKind accepts window-class, process-name and title-regex along
// with the short forms class, process and title.
func ParseFilterKind(s string) (FilterKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "window-class", "class":
		return WindowClass, nil
	case "process-name", "process":
		return ProcessName, nil
	case "title-regex", "title":
		return TitleRegex, nil
	}
	return WindowClass, fmt.Errorf("unknown filter kind %q (want window-class, process-name or title-regex)", s)
}

func (k FilterKind) MarshalText() ([]byte, error) {
	if _, ok := filterKindNames[k]; !ok {
		return nil, fmt.Errorf("invalid filter kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *FilterKind) UnmarshalText(text []byte) error {
	parsed, err := ParseFilterKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Config describes how a sticker template follows other windows.
type Config struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Batch attaches one instance to every window matching the filter
	// instead of a single remembered target.
	Batch         bool       `yaml:"batch,omitempty" json:"batch,omitempty"`
	FilterKind    FilterKind `yaml:"filter_kind" json:"filter_kind"`
	FilterPattern string     `yaml:"filter_pattern,omitempty" json:"filter_pattern,omitempty"`
	// TargetProcess is the remembered process name used to re-acquire a
	// single target after it disappears.
	TargetProcess     string            `yaml:"target_process,omitempty" json:"target_process,omitempty"`
	Anchor            anchor.Corner     `yaml:"anchor" json:"anchor"`
	OffsetMode        anchor.OffsetMode `yaml:"offset_mode" json:"offset_mode"`
	Offset            anchor.Point      `yaml:"offset" json:"offset"`
	PollIntervalMs    int               `yaml:"poll_interval_ms,omitempty" json:"poll_interval_ms,omitempty"`
	HideWhenMinimized bool              `yaml:"hide_when_minimized" json:"hide_when_minimized"`
}

// PollInterval returns the effective tick period for this follow.
func (c Config) PollInterval() time.Duration {
	ms := c.PollIntervalMs
	if ms == 0 {
		ms = DefaultPollIntervalMs
	}
	return time.Duration(max(MinPollIntervalMs, ms)) * time.Millisecond
}

// Template is the follow-bearing part of a sticker template.
type Template struct {
	ID      string `yaml:"id" json:"id"`
	Visible bool   `yaml:"visible" json:"visible"`
	// Position is the top-left of the template's own widget in logical
	// pixels.
	Position image.Point `yaml:"position" json:"position"`
	Size     anchor.Size `yaml:"size" json:"size"`
	Follow   Config      `yaml:"follow" json:"follow"`
}

// InstanceID names the follow instance of templateID attached to h.
func InstanceID(templateID string, h platform.WindowHandle) string {
	return fmt.Sprintf("%s@%x", templateID, uint64(h))
}
