package platform

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/1broseidon/stickyfollow/internal/anchor"
)

// ErrWindowGone is returned when a handle no longer names a live window.
var ErrWindowGone = errors.New("window no longer exists")

// WindowHandle is an opaque native top-level window identifier. Zero means
// "no window".
type WindowHandle uint64

func (h WindowHandle) String() string {
	return fmt.Sprintf("0x%x", uint64(h))
}

// WindowSnapshot is a point-in-time view of a top-level window. Bounds are
// in logical (DPI-independent) coordinates.
type WindowSnapshot struct {
	Handle      WindowHandle `json:"handle"`
	Title       string       `json:"title"`
	Class       string       `json:"class"`
	Process     string       `json:"process"`
	Bounds      anchor.Rect  `json:"bounds"`
	Visible     bool         `json:"visible"`
	Minimized   bool         `json:"minimized"`
	AlwaysOnTop bool         `json:"always_on_top"`
}

// Found reports whether the snapshot refers to a live window.
func (s WindowSnapshot) Found() bool {
	return s.Handle != 0
}

// Provider is the read-only window query boundary.
type Provider interface {
	// ListWindows enumerates top-level windows in OS-defined order.
	ListWindows(visibleOnly bool) ([]WindowSnapshot, error)
	// QueryWindow returns a snapshot with a zero handle when h is gone.
	QueryWindow(h WindowHandle) WindowSnapshot
	IsValid(h WindowHandle) bool
}

// Attacher manages native ownership and z-order of overlay windows.
type Attacher interface {
	// Attach makes target the native owner of overlay and fixes z-order.
	Attach(overlay, target WindowHandle) error
	Detach(overlay WindowHandle) error
	// EnsureZOrder matches overlay's topmost flag to target and stacks it
	// directly above target. Repeated calls with unchanged state are no-ops.
	EnsureZOrder(overlay, target WindowHandle) error
	// Owner returns the current native owner of overlay, or 0.
	Owner(overlay WindowHandle) WindowHandle
}

// Backend is a native windowing backend.
type Backend interface {
	Provider
	Attacher
	Name() string
	ActiveWindow() (WindowHandle, error)
	Close()
}

// Options configure Open.
type Options struct {
	// Display overrides $DISPLAY on X11.
	Display string
	// DisplayScales maps output names to a logical scale factor.
	DisplayScales map[string]float64
	// IncludeSelf keeps windows owned by this process in enumerations.
	IncludeSelf bool
	Logger      *slog.Logger
	// Headless selects the inert backend regardless of OS.
	Headless bool
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
