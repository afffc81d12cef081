//go:build linux

package overlay

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/motif"
	"github.com/BurntSushi/xgbutil/mousebind"
	"github.com/BurntSushi/xgbutil/xgraphics"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

const windowClass = "stickyfollow"

// X11Factory creates undecorated utility windows. Logical coordinates are
// converted with the scale of the output under the window before they reach
// the X server.
type X11Factory struct {
	xu     *xgbutil.XUtil
	layout func() platform.Layout
	logger *slog.Logger
}

var _ Factory = (*X11Factory)(nil)

// NewX11Factory returns a factory drawing on xu. layout reports the current
// output arrangement; nil means one output at scale 1.
func NewX11Factory(xu *xgbutil.XUtil, layout func() platform.Layout, logger *slog.Logger) *X11Factory {
	if layout == nil {
		layout = func() platform.Layout { return platform.Layout{} }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &X11Factory{xu: xu, layout: layout, logger: logger}
}

func (f *X11Factory) NewSurface(name string) (Surface, error) {
	win, err := xwindow.Generate(f.xu)
	if err != nil {
		return nil, fmt.Errorf("allocate window id: %w", err)
	}
	err = win.CreateChecked(f.xu.RootWin(), 0, 0, 1, 1,
		xproto.CwBackPixel|xproto.CwEventMask,
		0, xproto.EventMaskStructureNotify|xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease)
	if err != nil {
		return nil, fmt.Errorf("create overlay window: %w", err)
	}

	id := win.Id
	if err := icccm.WmClassSet(f.xu, id, &icccm.WmClass{Instance: name, Class: windowClass}); err != nil {
		f.logger.Debug("failed to set WM_CLASS", "window", id, "error", err)
	}
	if err := ewmh.WmNameSet(f.xu, id, name); err != nil {
		f.logger.Debug("failed to set _NET_WM_NAME", "window", id, "error", err)
	}
	// The window provider skips windows carrying our pid.
	if err := ewmh.WmPidSet(f.xu, id, uint(os.Getpid())); err != nil {
		f.logger.Debug("failed to set _NET_WM_PID", "window", id, "error", err)
	}
	if err := ewmh.WmWindowTypeSet(f.xu, id, []string{"_NET_WM_WINDOW_TYPE_UTILITY"}); err != nil {
		f.logger.Debug("failed to set window type", "window", id, "error", err)
	}
	if err := ewmh.WmStateSet(f.xu, id, []string{"_NET_WM_STATE_SKIP_TASKBAR", "_NET_WM_STATE_SKIP_PAGER"}); err != nil {
		f.logger.Debug("failed to set window state", "window", id, "error", err)
	}
	hints := &motif.Hints{Flags: motif.HintDecorations, Decoration: motif.DecorationNone}
	if err := motif.WmHintsSet(f.xu, id, hints); err != nil {
		f.logger.Debug("failed to disable decorations", "window", id, "error", err)
	}

	s := &x11Surface{f: f, win: win}
	mousebind.Drag(f.xu, id, id, "1", true, s.dragBegin, s.dragStep, s.dragEnd)
	return s, nil
}

func physical(v, scale float64) int {
	return int(math.Round(v * scale))
}

type x11Surface struct {
	f   *X11Factory
	win *xwindow.Window

	mu        sync.Mutex
	src       image.Image
	ximg      *xgraphics.Image
	pos       image.Point
	size      anchor.Size
	scale     float64
	visible   bool
	destroyed bool
	onDrag    func(image.Point)
	grab      image.Point
}

func (s *x11Surface) Handle() platform.WindowHandle {
	return platform.WindowHandle(s.win.Id)
}

func (s *x11Surface) SetImage(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src = img
	s.repaint()
}

// repaint must be called with mu held.
func (s *x11Surface) repaint() {
	if s.destroyed || s.src == nil || s.size.Empty() {
		return
	}
	w, h := physical(s.size.Width, s.scale), physical(s.size.Height, s.scale)
	if s.ximg != nil {
		s.ximg.Destroy()
	}
	s.ximg = xgraphics.NewConvert(s.f.xu, Scale(s.src, w, h))
	if err := s.ximg.XSurfaceSet(s.win.Id); err != nil {
		s.f.logger.Warn("failed to set overlay surface", "window", s.win.Id, "error", err)
		return
	}
	s.ximg.XDraw()
	s.ximg.XPaint(s.win.Id)
}

func (s *x11Surface) MoveResize(topLeft image.Point, size anchor.Size) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	layout := s.f.layout()
	scale := layout.ScaleAt(topLeft)
	at := layout.PhysicalPoint(topLeft)
	resized := size != s.size || scale != s.scale
	s.pos = topLeft
	s.size = size
	s.scale = scale
	if !resized {
		s.win.Move(at.X, at.Y)
		return
	}
	s.win.MoveResize(at.X, at.Y, max(1, physical(size.Width, scale)), max(1, physical(size.Height, scale)))
	s.repaint()
}

func (s *x11Surface) Position() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *x11Surface) Size() anchor.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *x11Surface) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed || s.visible == visible {
		return
	}
	s.visible = visible
	if visible {
		s.win.Map()
		return
	}
	s.win.Unmap()
}

func (s *x11Surface) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *x11Surface) OnDragEnd(fn func(image.Point)) {
	s.mu.Lock()
	s.onDrag = fn
	s.mu.Unlock()
}

func (s *x11Surface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true
	if s.ximg != nil {
		s.ximg.Destroy()
		s.ximg = nil
	}
	s.win.Destroy()
}

func (s *x11Surface) dragBegin(_ *xgbutil.XUtil, _, _, eventX, eventY int) (bool, xproto.Cursor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grab = image.Pt(eventX, eventY)
	return !s.destroyed, 0
}

func (s *x11Surface) dragStep(_ *xgbutil.XUtil, rootX, rootY, _, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.win.Move(rootX-s.grab.X, rootY-s.grab.Y)
}

func (s *x11Surface) dragEnd(_ *xgbutil.XUtil, rootX, rootY, _, _ int) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.pos = s.f.layout().LogicalPoint(image.Pt(rootX-s.grab.X, rootY-s.grab.Y))
	pos, fn := s.pos, s.onDrag
	s.mu.Unlock()

	if fn != nil {
		fn(pos)
	}
}
