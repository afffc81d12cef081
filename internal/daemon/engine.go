package daemon

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"github.com/1broseidon/stickyfollow/internal/follow"
	"github.com/1broseidon/stickyfollow/internal/message"
	"github.com/1broseidon/stickyfollow/internal/overlay"
	"github.com/1broseidon/stickyfollow/internal/platform"
	"github.com/1broseidon/stickyfollow/internal/store"
)

var (
	// ErrStopped is returned by Do once Run has returned.
	ErrStopped = errors.New("engine stopped")
	// ErrNoSticker is returned when no sticker can be picked implicitly.
	ErrNoSticker = errors.New("no lockable sticker")
)

const changeBuffer = 64

// Config holds the collaborators of an Engine.
type Config struct {
	Backend platform.Backend
	Factory overlay.Factory
	Store   *store.Store
	// DefaultPollIntervalMs fills in stickers that leave their poll
	// interval unset.
	DefaultPollIntervalMs int
	MessagePollIntervalMs int
	// MessageTimeout is the default lifetime of a message bubble. Zero
	// keeps bubbles until they are dismissed.
	MessageTimeout time.Duration
	// FollowTicker and MessageTicker default to time.Ticker wrappers.
	FollowTicker  follow.Ticker
	MessageTicker follow.Ticker
	// LoadImage defaults to overlay.LoadImage.
	LoadImage func(path string) (image.Image, error)
	Logger    *slog.Logger
}

type cachedImage struct {
	modTime time.Time
	img     image.Image
}

type bubbleEntry struct {
	bubble *overlay.Bubble
	timer  *time.Timer
}

// Engine owns the follow and message controllers and runs them on a single
// goroutine. Other goroutines reach it through Do.
type Engine struct {
	backend  platform.Backend
	store    *store.Store
	runtime  *overlay.Runtime
	follow   *follow.Controller
	messages *message.Controller
	logger   *slog.Logger

	defaultPollMs int
	messagePollMs int
	msgTimeout    time.Duration
	loadImage     func(string) (image.Image, error)

	cmds    chan func()
	changes chan follow.Template
	events  <-chan store.ChangeEvent
	done    chan struct{}

	images      map[string]cachedImage
	bubbles     map[string]*bubbleEntry
	messageSeq  int
	started     time.Time
	lastSticker string
}

// New wires an engine. Run must be called to start it.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, errors.New("daemon: store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	backend := cfg.Backend
	if backend == nil {
		backend = platform.NewInert()
	}
	factory := cfg.Factory
	if factory == nil {
		factory = overlay.NewHeadless()
	}
	loadImage := cfg.LoadImage
	if loadImage == nil {
		loadImage = overlay.LoadImage
	}
	defaultPoll := cfg.DefaultPollIntervalMs
	if defaultPoll <= 0 {
		defaultPoll = follow.DefaultPollIntervalMs
	}

	e := &Engine{
		backend:       backend,
		store:         cfg.Store,
		logger:        logger,
		defaultPollMs: defaultPoll,
		messagePollMs: cfg.MessagePollIntervalMs,
		msgTimeout:    cfg.MessageTimeout,
		loadImage:     loadImage,
		cmds:          make(chan func(), 64),
		changes:       make(chan follow.Template, changeBuffer),
		done:          make(chan struct{}),
		images:        make(map[string]cachedImage),
		bubbles:       make(map[string]*bubbleEntry),
	}
	e.runtime = overlay.NewRuntime(overlay.RuntimeConfig{
		Factory:         factory,
		Logger:          logger,
		OnInstanceMoved: e.instanceDragged,
		OnTemplateMoved: e.templateDragged,
	})
	e.follow = follow.NewController(follow.ControllerConfig{
		Provider: backend,
		Attacher: backend,
		Runtime:  e.runtime,
		Ticker:   cfg.FollowTicker,
		Sink:     follow.ChangeFunc(e.templateChanged),
		Logger:   logger,
	})
	e.messages = message.NewController(message.Config{
		Provider: backend,
		Attacher: backend,
		Ticker:   cfg.MessageTicker,
		Logger:   logger,
	})
	e.events = cfg.Store.Subscribe()
	return e, nil
}

// Run loads the stickers and processes ticks and commands until ctx is
// cancelled.
func (e *Engine) Run(ctx context.Context) error {
	e.started = time.Now()
	defer close(e.done)
	defer e.shutdown()

	e.safely("initial sync", e.syncTemplates)
	e.logger.Info("engine started", "backend", e.backend.Name(), "stickers", e.store.Count())

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped")
			return nil
		case <-e.follow.Ticks():
			e.safely("follow tick", e.follow.Refresh)
		case <-e.messages.Ticks():
			e.safely("message tick", e.messages.Refresh)
		case fn := <-e.cmds:
			e.safely("command", fn)
		case tpl := <-e.changes:
			e.safely("persist", func() { e.persist(tpl) })
		case ev, ok := <-e.events:
			if !ok {
				e.events = nil
				continue
			}
			if ev.Source == "file" {
				e.logger.Info("stickers file changed, resyncing")
				e.safely("resync", e.syncTemplates)
			}
		}
	}
}

// safely runs fn and recovers from panics so one bad tick cannot take the
// daemon down.
func (e *Engine) safely(what string, fn func()) {
	defer func() {
		if err := recover(); err != nil {
			e.logger.Error("engine panic recovered", "during", what, "error", err)
		}
	}()
	fn()
}

// Do runs fn on the engine goroutine and waits for it to finish.
func (e *Engine) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case e.cmds <- wrapped:
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting for it.
func (e *Engine) post(fn func()) {
	select {
	case e.cmds <- fn:
	case <-e.done:
	}
}

func (e *Engine) shutdown() {
	e.follow.Clear()
	e.messages.Clear()
	for id := range e.bubbles {
		e.dismiss(id)
	}
	e.runtime.Close()
}

// syncTemplates pushes the store contents into the runtime and the follow
// controller.
func (e *Engine) syncTemplates() {
	stickers := e.store.All()
	templates := make([]follow.Template, 0, len(stickers))
	seen := make(map[string]bool, len(stickers))

	for _, st := range stickers {
		tpl := e.withDefaults(st.Template)
		if err := e.runtime.ShowTemplate(tpl, e.image(st)); err != nil {
			e.logger.Warn("failed to show sticker", "sticker", st.ID, "error", err)
			continue
		}
		templates = append(templates, tpl)
		seen[st.ID] = true
	}
	for _, id := range e.runtime.TemplateIDs() {
		if !seen[id] {
			e.runtime.RemoveTemplate(id)
			delete(e.images, id)
		}
	}
	e.follow.SetTemplates(templates)
	e.logger.Debug("templates synced", "count", len(templates))
}

func (e *Engine) withDefaults(tpl follow.Template) follow.Template {
	if tpl.Follow.PollIntervalMs == 0 {
		tpl.Follow.PollIntervalMs = e.defaultPollMs
	}
	return tpl
}

// image returns the sticker's decoded image, reloading it when the file
// changes. A nil result keeps the current image or a placeholder.
func (e *Engine) image(st store.Sticker) image.Image {
	if st.Image == "" {
		return nil
	}
	info, err := os.Stat(st.Image)
	if err != nil {
		e.logger.Warn("sticker image unavailable", "sticker", st.ID, "image", st.Image, "error", err)
		return nil
	}
	if cached, ok := e.images[st.ID]; ok && cached.modTime.Equal(info.ModTime()) {
		return cached.img
	}
	img, err := e.loadImage(st.Image)
	if err != nil {
		e.logger.Warn("failed to load sticker image", "sticker", st.ID, "image", st.Image, "error", err)
		return nil
	}
	e.images[st.ID] = cachedImage{modTime: info.ModTime(), img: img}
	return img
}

// templateChanged is the follow controller's change sink. It runs on the
// engine goroutine.
func (e *Engine) templateChanged(tpl follow.Template) {
	select {
	case e.changes <- tpl:
	default:
		e.persist(tpl)
	}
}

func (e *Engine) persist(tpl follow.Template) {
	st, ok := e.store.Get(tpl.ID)
	if !ok {
		return
	}
	if st.Follow.PollIntervalMs == 0 && tpl.Follow.PollIntervalMs == e.defaultPollMs {
		tpl.Follow.PollIntervalMs = 0
	}
	if err := e.store.UpdateTemplate(tpl); err != nil {
		e.logger.Warn("failed to save sticker", "sticker", tpl.ID, "error", err)
		return
	}
	e.logger.Debug("sticker saved", "sticker", tpl.ID)
}

// instanceDragged runs on the surface event goroutine.
func (e *Engine) instanceDragged(instanceID string, topLeft image.Point) {
	e.post(func() {
		if !e.runtime.SyncsToTemplate(instanceID) {
			return
		}
		if err := e.follow.InstanceMoved(instanceID, topLeft); err != nil {
			e.logger.Debug("instance drag ignored", "instance", instanceID, "error", err)
		}
	})
}

// templateDragged runs on the surface event goroutine.
func (e *Engine) templateDragged(templateID string, topLeft image.Point) {
	e.post(func() {
		tpl, ok := e.follow.Template(templateID)
		if !ok {
			return
		}
		e.lastSticker = templateID
		tpl.Position = topLeft
		if err := e.runtime.ShowTemplate(tpl, nil); err != nil {
			e.logger.Warn("failed to move sticker", "sticker", templateID, "error", err)
		}
		e.follow.UpdateTemplate(tpl)
		e.persist(tpl)
	})
}

func (e *Engine) resolveSticker(ref string) (store.Sticker, error) {
	if ref != "" {
		return e.store.Lookup(ref)
	}
	if e.lastSticker != "" {
		if st, ok := e.store.Get(e.lastSticker); ok {
			return st, nil
		}
	}
	for _, st := range e.store.All() {
		if st.Follow.Enabled && !st.Follow.Batch {
			return st, nil
		}
	}
	return store.Sticker{}, ErrNoSticker
}

// Lock makes window h the follow target of the sticker named by ref. An
// empty ref picks the last used sticker, then the first enabled single
// follow. A zero h means the active window.
func (e *Engine) Lock(ctx context.Context, ref string, h platform.WindowHandle) (store.Sticker, error) {
	var (
		out store.Sticker
		err error
	)
	if doErr := e.Do(ctx, func() { out, err = e.lock(ref, h) }); doErr != nil {
		return store.Sticker{}, doErr
	}
	return out, err
}

func (e *Engine) lock(ref string, h platform.WindowHandle) (store.Sticker, error) {
	st, err := e.resolveSticker(ref)
	if err != nil {
		return store.Sticker{}, err
	}
	if h == 0 {
		h, err = e.backend.ActiveWindow()
		if err != nil {
			return store.Sticker{}, fmt.Errorf("active window: %w", err)
		}
	}
	if e.ownsHandle(h) {
		return store.Sticker{}, fmt.Errorf("%w: cannot follow a sticker window", follow.ErrInvalidHandle)
	}

	tpl, ok := e.follow.Template(st.ID)
	if !ok {
		return store.Sticker{}, follow.ErrUnknownTemplate
	}
	if !tpl.Follow.Enabled || tpl.Follow.Batch {
		tpl.Follow.Enabled = true
		tpl.Follow.Batch = false
		e.follow.UpdateTemplate(tpl)
	}
	tpl, err = e.follow.LockToTargetWindow(st.ID, h)
	if err != nil {
		return store.Sticker{}, err
	}
	e.lastSticker = st.ID
	st.Template = tpl
	return st, nil
}

// ownsHandle reports whether h is one of the daemon's own overlay windows.
func (e *Engine) ownsHandle(h platform.WindowHandle) bool {
	if e.runtime.OwnsHandle(h) {
		return true
	}
	for _, b := range e.bubbles {
		if b.bubble.Handle() == h {
			return true
		}
	}
	return false
}

// Unlock clears the follow target of the sticker named by ref.
func (e *Engine) Unlock(ctx context.Context, ref string) (store.Sticker, error) {
	var (
		out store.Sticker
		err error
	)
	doErr := e.Do(ctx, func() {
		var st store.Sticker
		st, err = e.resolveSticker(ref)
		if err != nil {
			return
		}
		var tpl follow.Template
		tpl, err = e.follow.ClearTarget(st.ID)
		if err != nil {
			return
		}
		e.lastSticker = st.ID
		st.Template = tpl
		out = st
	})
	if doErr != nil {
		return store.Sticker{}, doErr
	}
	return out, err
}

// Reload rereads the stickers file and resyncs every template.
func (e *Engine) Reload(ctx context.Context) error {
	var err error
	doErr := e.Do(ctx, func() {
		if _, err = e.store.Reload(); err != nil {
			return
		}
		e.syncTemplates()
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// Windows lists visible top-level windows.
func (e *Engine) Windows(ctx context.Context) ([]platform.WindowSnapshot, error) {
	var (
		out []platform.WindowSnapshot
		err error
	)
	if doErr := e.Do(ctx, func() { out, err = e.backend.ListWindows(true) }); doErr != nil {
		return nil, doErr
	}
	return out, err
}

// SuggestFilter proposes a filter pattern matching window h, or the active
// window when h is zero.
func (e *Engine) SuggestFilter(ctx context.Context, h platform.WindowHandle, kind follow.FilterKind) (platform.WindowSnapshot, string, error) {
	var (
		snap platform.WindowSnapshot
		err  error
	)
	doErr := e.Do(ctx, func() {
		if h == 0 {
			if h, err = e.backend.ActiveWindow(); err != nil {
				return
			}
		}
		snap = e.backend.QueryWindow(h)
		if !snap.Found() {
			err = follow.ErrInvalidHandle
		}
	})
	if doErr != nil {
		return platform.WindowSnapshot{}, "", doErr
	}
	if err != nil {
		return platform.WindowSnapshot{}, "", err
	}
	return snap, follow.SuggestFilter(snap, kind), nil
}
