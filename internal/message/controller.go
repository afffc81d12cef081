// Package message keeps short-lived message bubbles attached to the window
// that owns the sticker they were spawned from.
package message

import (
	"image"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/follow"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

// DefaultPollIntervalMs is the tick period used when Track is given 0.
const DefaultPollIntervalMs = 33

// Bubble is a transient overlay window.
type Bubble interface {
	ID() string
	// Handle is the bubble's native window.
	Handle() platform.WindowHandle
	Size() anchor.Size
	Position() image.Point
	Move(topLeft image.Point)
	// Alive reports false once the bubble has been closed.
	Alive() bool
}

// Config holds the collaborators of a Controller.
type Config struct {
	Provider platform.Provider
	Attacher platform.Attacher
	Ticker   follow.Ticker
	Logger   *slog.Logger
}

type tracked struct {
	bubble   Bubble
	target   platform.WindowHandle
	corner   anchor.Corner
	offset   anchor.Point
	interval time.Duration
}

// Controller follows message bubbles. Like follow.Controller it must only
// be used from one goroutine.
type Controller struct {
	provider   platform.Provider
	attacher   platform.Attacher
	ticker     follow.Ticker
	logger     *slog.Logger
	messages   map[string]*tracked
	refreshing bool
}

func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ticker := cfg.Ticker
	if ticker == nil {
		ticker = follow.NewTimeTicker()
	}
	provider := cfg.Provider
	if provider == nil {
		provider = platform.Inert{}
	}
	attacher := cfg.Attacher
	if attacher == nil {
		attacher = platform.Inert{}
	}
	return &Controller{
		provider: provider,
		attacher: attacher,
		ticker:   ticker,
		logger:   logger,
		messages: make(map[string]*tracked),
	}
}

// Ticks delivers refresh ticks. It is nil while nothing is tracked.
func (c *Controller) Ticks() <-chan time.Time {
	return c.ticker.C()
}

// Track places b at initialTopLeft and, when anchorWidget has a live native
// owner, keeps it at the same position relative to that owner. It reports
// whether the bubble is being followed.
func (c *Controller) Track(b Bubble, anchorWidget platform.WindowHandle, initialTopLeft image.Point, pollIntervalMs int) bool {
	if b == nil {
		return false
	}
	if pollIntervalMs == 0 {
		pollIntervalMs = DefaultPollIntervalMs
	}

	target := c.resolveOwner(anchorWidget)
	if target != 0 {
		info := c.provider.QueryWindow(target)
		if info.Found() && !(info.Bounds.Width == 0 && info.Bounds.Height == 0) {
			size := b.Size()
			center := anchor.Point{
				X: float64(initialTopLeft.X) + size.Width/2,
				Y: float64(initialTopLeft.Y) + size.Height/2,
			}
			t := &tracked{
				bubble:   b,
				target:   target,
				corner:   anchor.CornerForPosition(info.Bounds, center),
				interval: time.Duration(max(follow.MinPollIntervalMs, pollIntervalMs)) * time.Millisecond,
			}
			t.offset = anchor.OffsetForPosition(info.Bounds, size, initialTopLeft, t.corner, anchor.Pixels)
			b.Move(anchor.AnchoredPosition(info.Bounds, size, t.corner, anchor.Pixels, t.offset))
			if err := c.attacher.Attach(b.Handle(), target); err != nil {
				c.logger.Debug("message attach failed", "message", b.ID(), "error", err)
			}

			c.messages[b.ID()] = t
			c.logger.Debug("message tracked", "message", b.ID(), "target", target, "corner", t.corner)
			c.syncTicker()
			return true
		}
	}

	b.Move(initialTopLeft)
	return false
}

func (c *Controller) resolveOwner(w platform.WindowHandle) platform.WindowHandle {
	if w == 0 {
		return 0
	}
	owner := c.attacher.Owner(w)
	if owner == 0 || !c.provider.IsValid(owner) {
		return 0
	}
	return owner
}

// Untrack stops following a bubble.
func (c *Controller) Untrack(id string) {
	if _, ok := c.messages[id]; !ok {
		return
	}
	delete(c.messages, id)
	c.syncTicker()
}

// Clear drops every tracked bubble and stops the ticker.
func (c *Controller) Clear() {
	clear(c.messages)
	c.ticker.Stop()
}

func (c *Controller) IsActive() bool {
	return c.ticker.Active()
}

func (c *Controller) Interval() time.Duration {
	return c.ticker.Period()
}

// Len returns the number of tracked bubbles.
func (c *Controller) Len() int {
	return len(c.messages)
}

// Refresh moves every tracked bubble to its target and forgets bubbles
// whose window or target has gone away.
func (c *Controller) Refresh() {
	if c.refreshing {
		return
	}
	c.refreshing = true
	defer func() { c.refreshing = false }()

	var stale []string
	for _, id := range slices.Sorted(maps.Keys(c.messages)) {
		t := c.messages[id]
		if !t.bubble.Alive() || t.target == 0 {
			stale = append(stale, id)
			continue
		}
		info := c.provider.QueryWindow(t.target)
		if !info.Found() {
			stale = append(stale, id)
			continue
		}
		if info.Bounds.Width == 0 && info.Bounds.Height == 0 {
			continue
		}

		pos := anchor.AnchoredPosition(info.Bounds, t.bubble.Size(), t.corner, anchor.Pixels, t.offset)
		if t.bubble.Position() != pos {
			t.bubble.Move(pos)
		}
		if err := c.attacher.Attach(t.bubble.Handle(), t.target); err != nil {
			c.logger.Debug("message attach failed", "message", id, "error", err)
		}
	}

	for _, id := range stale {
		delete(c.messages, id)
		c.logger.Debug("message untracked", "message", id)
	}
	c.syncTicker()
}

func (c *Controller) syncTicker() {
	var d time.Duration
	for _, t := range c.messages {
		if !t.bubble.Alive() {
			continue
		}
		if d == 0 || t.interval < d {
			d = t.interval
		}
	}
	if d == 0 {
		c.ticker.Stop()
		return
	}
	if !c.ticker.Active() || c.ticker.Period() != d {
		c.ticker.Reset(d)
	}
}
