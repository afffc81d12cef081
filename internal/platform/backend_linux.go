//go:build linux

package platform

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"github.com/1broseidon/stickyfollow/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// LinuxBackend implements Backend on an X11 connection using EWMH/ICCCM.
type LinuxBackend struct {
	conn        *x11.Connection
	scales      map[string]float64
	includeSelf bool
	selfPID     int
	logger      *slog.Logger

	layoutMu   sync.Mutex
	layout     Layout
	haveLayout bool
}

var _ Backend = (*LinuxBackend)(nil)

// Open connects to the X server unless opts.Headless is set.
func Open(opts Options) (Backend, error) {
	if opts.Headless {
		return NewInert(), nil
	}
	return NewLinuxBackend(opts)
}

// NewLinuxBackend opens a fresh X11 connection.
func NewLinuxBackend(opts Options) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(opts.Display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{
		conn:        conn,
		scales:      opts.DisplayScales,
		includeSelf: opts.IncludeSelf,
		selfPID:     os.Getpid(),
		logger:      opts.logger(),
	}, nil
}

func (b *LinuxBackend) Name() string { return "x11" }

// Connection exposes the X11 connection for overlay surfaces.
func (b *LinuxBackend) Connection() *x11.Connection {
	if b == nil {
		return nil
	}
	return b.conn
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// EventLoop runs the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// Close stops the event loop and disconnects.
func (b *LinuxBackend) Close() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
		b.conn.Close()
	}
}

func (b *LinuxBackend) ActiveWindow() (WindowHandle, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	wid, err := conn.GetActiveWindow()
	if err != nil {
		return 0, err
	}
	return WindowHandle(wid), nil
}

func (b *LinuxBackend) ListWindows(visibleOnly bool) ([]WindowSnapshot, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	clients, err := conn.ClientWindows()
	if err != nil {
		return nil, fmt.Errorf("failed to read client list: %w", err)
	}

	sc := b.newScaleContext()
	out := make([]WindowSnapshot, 0, len(clients))
	for _, win := range clients {
		if !conn.IsNormalWindow(win) {
			continue
		}
		pid := conn.PID(win)
		if !b.includeSelf && pid == b.selfPID {
			continue
		}
		snap, ok := b.snapshot(win, pid, sc)
		if !ok {
			continue
		}
		if visibleOnly && !snap.Visible {
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

func (b *LinuxBackend) QueryWindow(h WindowHandle) WindowSnapshot {
	conn, err := b.connection()
	if err != nil || h == 0 {
		return WindowSnapshot{}
	}
	win := xproto.Window(h)
	if !conn.Exists(win) {
		return WindowSnapshot{}
	}
	snap, ok := b.snapshot(win, conn.PID(win), b.newScaleContext())
	if !ok {
		return WindowSnapshot{}
	}
	return snap
}

func (b *LinuxBackend) IsValid(h WindowHandle) bool {
	conn, err := b.connection()
	if err != nil {
		return false
	}
	return conn.Exists(xproto.Window(h))
}

func (b *LinuxBackend) Attach(overlay, target WindowHandle) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	if overlay == 0 || target == 0 {
		return fmt.Errorf("attach %s to %s: zero handle", overlay, target)
	}
	ow := xproto.Window(overlay)
	if conn.TransientFor(ow) != xproto.Window(target) {
		if err := conn.SetTransientFor(ow, xproto.Window(target)); err != nil {
			return fmt.Errorf("failed to set WM_TRANSIENT_FOR: %w", err)
		}
	}
	return b.EnsureZOrder(overlay, target)
}

func (b *LinuxBackend) Detach(overlay WindowHandle) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	ow := xproto.Window(overlay)
	if conn.TransientFor(ow) == 0 {
		return nil
	}
	return conn.ClearTransientFor(ow)
}

func (b *LinuxBackend) Owner(overlay WindowHandle) WindowHandle {
	conn, err := b.connection()
	if err != nil {
		return 0
	}
	return WindowHandle(conn.TransientFor(xproto.Window(overlay)))
}

func (b *LinuxBackend) EnsureZOrder(overlay, target WindowHandle) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	ow, tw := xproto.Window(overlay), xproto.Window(target)

	targetAbove := conn.State(tw).Above
	if conn.State(ow).Above != targetAbove {
		if err := conn.SetAbove(ow, targetAbove); err != nil {
			return fmt.Errorf("failed to sync _NET_WM_STATE_ABOVE: %w", err)
		}
	}

	stack, err := conn.StackingOrder()
	if err != nil {
		return fmt.Errorf("failed to read stacking order: %w", err)
	}
	sibling, ok := x11.NearestAbove(stack, tw, func(w xproto.Window) bool {
		return w == ow || conn.State(w).Above == targetAbove
	})
	switch {
	case !ok:
		return nil
	case sibling == ow:
		return nil
	case sibling != 0:
		return conn.RestackBelow(ow, sibling)
	default:
		return conn.RestackAbove(ow, tw)
	}
}

type scaleContext struct {
	monitors []x11.Monitor
	pointer  float64
	primary  float64
	scales   map[string]float64
}

func (b *LinuxBackend) newScaleContext() scaleContext {
	sc := scaleContext{scales: b.scales}
	monitors, err := b.conn.GetMonitors()
	if err != nil {
		b.logger.Debug("monitor query failed", "error", err)
	}
	sc.monitors = monitors

	if px, py, err := b.conn.PointerPosition(); err == nil {
		if mon, ok := x11.MonitorAt(monitors, px, py); ok {
			sc.pointer = sc.scales[mon.Name]
		}
	}
	if mon, ok := x11.PrimaryMonitor(monitors); ok {
		sc.primary = sc.scales[mon.Name]
	}
	if sc.primary <= 0 {
		if dpi := b.conn.XftDPI(); dpi > 0 {
			sc.primary = dpi / BaseDPI
		}
	}

	layout := Layout{Fallback: ResolveScale(0, 0, sc.primary)}
	for _, mon := range monitors {
		layout.Outputs = append(layout.Outputs, Output{
			Bounds: image.Rect(mon.X, mon.Y, mon.X+mon.Width, mon.Y+mon.Height),
			Scale:  sc.scales[mon.Name],
		})
	}
	b.layoutMu.Lock()
	b.layout, b.haveLayout = layout, true
	b.layoutMu.Unlock()
	return sc
}

// Layout returns the output layout seen by the latest window query, querying
// the server when none has run yet.
func (b *LinuxBackend) Layout() Layout {
	if b == nil || b.conn == nil {
		return Layout{}
	}
	b.layoutMu.Lock()
	l, ok := b.layout, b.haveLayout
	b.layoutMu.Unlock()
	if !ok {
		b.newScaleContext()
		b.layoutMu.Lock()
		l = b.layout
		b.layoutMu.Unlock()
	}
	return l
}

// windowDPI is the configured scale of the output under the window centre,
// expressed as DPI. X11 has no per-window DPI of its own.
func (sc scaleContext) windowDPI(x, y, w, h int) float64 {
	mon, ok := x11.MonitorAt(sc.monitors, x+w/2, y+h/2)
	if !ok {
		return 0
	}
	return sc.scales[mon.Name] * BaseDPI
}

func (b *LinuxBackend) snapshot(win xproto.Window, pid int, sc scaleContext) (WindowSnapshot, bool) {
	conn := b.conn
	x, y, w, h, err := conn.Geometry(win)
	if err != nil {
		return WindowSnapshot{}, false
	}
	state := conn.State(win)
	scale := ResolveScale(sc.windowDPI(x, y, w, h), sc.pointer, sc.primary)

	return WindowSnapshot{
		Handle:      WindowHandle(win),
		Title:       conn.Title(win),
		Class:       conn.Class(win),
		Process:     x11.ProcessName(pid),
		Bounds:      ToLogical(x, y, w, h, scale),
		Visible:     state.Hidden || conn.IsMapped(win),
		Minimized:   state.Hidden,
		AlwaysOnTop: state.Above,
	}, true
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}
