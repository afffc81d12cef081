// Package overlay owns the windows that display stickers, their follow
// instances and message bubbles.
package overlay

import (
	"image"
	"sync"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

// Surface is one borderless overlay window. Positions and sizes are
// logical pixels. Drag callbacks may arrive on another goroutine.
type Surface interface {
	Handle() platform.WindowHandle
	SetImage(img image.Image)
	MoveResize(topLeft image.Point, size anchor.Size)
	Position() image.Point
	Size() anchor.Size
	SetVisible(visible bool)
	Visible() bool
	// OnDragEnd registers fn to run with the new top-left after the user
	// drops the surface.
	OnDragEnd(fn func(topLeft image.Point))
	Destroy()
}

// Factory creates surfaces.
type Factory interface {
	NewSurface(name string) (Surface, error)
}

// Headless creates in-memory surfaces. It backs the daemon when no display
// is available and the runtime tests.
type Headless struct {
	mu   sync.Mutex
	next platform.WindowHandle
	all  []*HeadlessSurface
}

var _ Factory = (*Headless)(nil)

func NewHeadless() *Headless {
	return &Headless{next: 0x7f000000}
}

func (h *Headless) NewSurface(name string) (Surface, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	s := &HeadlessSurface{name: name, handle: h.next}
	h.all = append(h.all, s)
	return s, nil
}

// Surfaces returns every surface created so far, destroyed ones included.
func (h *Headless) Surfaces() []*HeadlessSurface {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*HeadlessSurface(nil), h.all...)
}

// HeadlessSurface records what a real surface would show.
type HeadlessSurface struct {
	mu        sync.Mutex
	name      string
	handle    platform.WindowHandle
	img       image.Image
	pos       image.Point
	size      anchor.Size
	visible   bool
	destroyed bool
	onDrag    func(image.Point)
}

func (s *HeadlessSurface) Name() string { return s.name }

func (s *HeadlessSurface) Handle() platform.WindowHandle { return s.handle }

func (s *HeadlessSurface) SetImage(img image.Image) {
	s.mu.Lock()
	s.img = img
	s.mu.Unlock()
}

func (s *HeadlessSurface) Image() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img
}

func (s *HeadlessSurface) MoveResize(topLeft image.Point, size anchor.Size) {
	s.mu.Lock()
	s.pos = topLeft
	s.size = size
	s.mu.Unlock()
}

func (s *HeadlessSurface) Position() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *HeadlessSurface) Size() anchor.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *HeadlessSurface) SetVisible(visible bool) {
	s.mu.Lock()
	s.visible = visible
	s.mu.Unlock()
}

func (s *HeadlessSurface) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *HeadlessSurface) OnDragEnd(fn func(image.Point)) {
	s.mu.Lock()
	s.onDrag = fn
	s.mu.Unlock()
}

func (s *HeadlessSurface) Destroy() {
	s.mu.Lock()
	s.destroyed = true
	s.visible = false
	s.mu.Unlock()
}

func (s *HeadlessSurface) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Drop simulates the user dragging the surface to topLeft.
func (s *HeadlessSurface) Drop(topLeft image.Point) {
	s.mu.Lock()
	s.pos = topLeft
	fn := s.onDrag
	s.mu.Unlock()
	if fn != nil {
		fn(topLeft)
	}
}
