package message

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

type stubProvider map[platform.WindowHandle]platform.WindowSnapshot

func (p stubProvider) ListWindows(bool) ([]platform.WindowSnapshot, error)         { return nil, nil }
func (p stubProvider) QueryWindow(h platform.WindowHandle) platform.WindowSnapshot { return p[h] }

func (p stubProvider) IsValid(h platform.WindowHandle) bool {
	_, ok := p[h]
	return ok
}

type stubAttacher struct {
	owners   map[platform.WindowHandle]platform.WindowHandle
	attached int
}

func (a *stubAttacher) Attach(overlay, target platform.WindowHandle) error {
	a.owners[overlay] = target
	a.attached++
	return nil
}

func (a *stubAttacher) Detach(overlay platform.WindowHandle) error {
	delete(a.owners, overlay)
	return nil
}

func (a *stubAttacher) EnsureZOrder(platform.WindowHandle, platform.WindowHandle) error { return nil }

func (a *stubAttacher) Owner(overlay platform.WindowHandle) platform.WindowHandle {
	return a.owners[overlay]
}

type stubTicker struct {
	active bool
	period time.Duration
}

func (t *stubTicker) Reset(d time.Duration) { t.active, t.period = true, d }
func (t *stubTicker) Stop()                 { t.active = false }
func (t *stubTicker) Active() bool          { return t.active }
func (t *stubTicker) C() <-chan time.Time   { return nil }

func (t *stubTicker) Period() time.Duration {
	if !t.active {
		return 0
	}
	return t.period
}

type stubBubble struct {
	id     string
	handle platform.WindowHandle
	size   anchor.Size
	pos    image.Point
	moves  int
	closed bool
}

func (b *stubBubble) ID() string                    { return b.id }
func (b *stubBubble) Handle() platform.WindowHandle { return b.handle }
func (b *stubBubble) Size() anchor.Size             { return b.size }
func (b *stubBubble) Position() image.Point         { return b.pos }
func (b *stubBubble) Alive() bool                   { return !b.closed }

func (b *stubBubble) Move(p image.Point) {
	b.pos = p
	b.moves++
}

const (
	sticker = platform.WindowHandle(0x100)
	editor  = platform.WindowHandle(0x200)
)

func setup() (*Controller, stubProvider, *stubAttacher, *stubTicker) {
	p := stubProvider{
		editor: {Handle: editor, Bounds: anchor.Rect{X: 100, Y: 100, Width: 800, Height: 600}, Visible: true},
	}
	a := &stubAttacher{owners: map[platform.WindowHandle]platform.WindowHandle{sticker: editor}}
	tk := &stubTicker{}
	c := NewController(Config{Provider: p, Attacher: a, Ticker: tk})
	return c, p, a, tk
}

func TestTrackChoosesCornerAndKeepsPosition(t *testing.T) {
	c, p, a, tk := setup()
	b := &stubBubble{id: "m1", handle: 0x300, size: anchor.Size{Width: 100, Height: 40}}

	require.True(t, c.Track(b, sticker, image.Pt(750, 600), 0))
	assert.Equal(t, image.Pt(750, 600), b.pos)
	assert.Equal(t, editor, a.owners[b.handle])
	assert.True(t, tk.active)
	assert.Equal(t, DefaultPollIntervalMs*time.Millisecond, c.Interval())

	tr := c.messages["m1"]
	assert.Equal(t, anchor.BottomRight, tr.corner)
	assert.Equal(t, anchor.Point{X: -50, Y: -60}, tr.offset)

	w := p[editor]
	w.Bounds.X += 40
	w.Bounds.Width += 100
	p[editor] = w
	c.Refresh()

	assert.Equal(t, image.Pt(750+40+100, 600), b.pos)
}

func TestTrackWithoutOwnerJustMoves(t *testing.T) {
	c, _, a, tk := setup()
	b := &stubBubble{id: "m1", handle: 0x300, size: anchor.Size{Width: 10, Height: 10}}

	assert.False(t, c.Track(b, 0x999, image.Pt(5, 6), 50))
	assert.Equal(t, image.Pt(5, 6), b.pos)
	assert.Zero(t, c.Len())
	assert.False(t, tk.active)
	assert.Zero(t, a.attached)
}

func TestRefreshDropsClosedBubblesAndLostTargets(t *testing.T) {
	c, p, _, tk := setup()
	b1 := &stubBubble{id: "m1", handle: 0x301, size: anchor.Size{Width: 10, Height: 10}}
	b2 := &stubBubble{id: "m2", handle: 0x302, size: anchor.Size{Width: 10, Height: 10}}
	require.True(t, c.Track(b1, sticker, image.Pt(120, 120), 100))
	require.True(t, c.Track(b2, sticker, image.Pt(120, 120), 20))
	assert.Equal(t, 20*time.Millisecond, c.Interval())

	b2.closed = true
	c.Refresh()
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 100*time.Millisecond, c.Interval())

	delete(p, editor)
	c.Refresh()
	assert.Zero(t, c.Len())
	assert.False(t, tk.active)
}

func TestRefreshSkipsMoveWhenInPlace(t *testing.T) {
	c, _, _, _ := setup()
	b := &stubBubble{id: "m1", handle: 0x300, size: anchor.Size{Width: 10, Height: 10}}
	require.True(t, c.Track(b, sticker, image.Pt(200, 200), 0))
	moves := b.moves

	c.Refresh()
	c.Refresh()
	assert.Equal(t, moves, b.moves)
}

func TestPollIntervalFloor(t *testing.T) {
	c, _, _, _ := setup()
	b := &stubBubble{id: "m1", handle: 0x300, size: anchor.Size{Width: 10, Height: 10}}
	require.True(t, c.Track(b, sticker, image.Pt(200, 200), 1))
	assert.Equal(t, 16*time.Millisecond, c.Interval())
}

func TestUntrackAndClear(t *testing.T) {
	c, _, _, tk := setup()
	b := &stubBubble{id: "m1", handle: 0x300, size: anchor.Size{Width: 10, Height: 10}}
	require.True(t, c.Track(b, sticker, image.Pt(200, 200), 0))

	c.Untrack("m1")
	assert.Zero(t, c.Len())
	assert.False(t, tk.active)

	require.True(t, c.Track(b, sticker, image.Pt(200, 200), 0))
	c.Clear()
	assert.Zero(t, c.Len())
	assert.False(t, c.IsActive())
}
