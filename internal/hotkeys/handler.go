package hotkeys

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/stickyfollow/internal/platform"
	"github.com/1broseidon/stickyfollow/internal/store"
)

// ErrNoX11 is returned by Register when the backend has no X connection.
var ErrNoX11 = errors.New("hotkeys require the x11 backend")

const actionTimeout = 5 * time.Second

// Engine is what the hotkeys drive.
type Engine interface {
	Lock(ctx context.Context, ref string, h platform.WindowHandle) (store.Sticker, error)
	Unlock(ctx context.Context, ref string) (store.Sticker, error)
}

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu      *xgbutil.XUtil
	root    xproto.Window
	engine  Engine
	sticker string
	logger  *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler creates a hotkey handler acting on sticker, or on the
// engine's default sticker when sticker is empty.
func NewHandler(backend platform.Backend, engine Engine, sticker string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	var xu *xgbutil.XUtil
	var root xproto.Window
	if accessor, ok := backend.(x11Accessor); ok {
		xu = accessor.XUtil()
		root = accessor.RootWindow()
	}

	if xu != nil {
		ignoreModsOnce.Do(func() {
			configureIgnoreMods(xu)
		})
	}

	return &Handler{
		xu:      xu,
		root:    root,
		engine:  engine,
		sticker: sticker,
		logger:  logger,
	}
}

// Register binds the lock and unlock key sequences. An empty sequence is
// skipped.
func (h *Handler) Register(lockKeys, unlockKeys string) error {
	if lockKeys != "" {
		if err := h.RegisterFunc(lockKeys, h.lockActive); err != nil {
			return err
		}
		h.logger.Info("lock hotkey registered", "keys", lockKeys)
	}
	if unlockKeys != "" {
		if err := h.RegisterFunc(unlockKeys, h.unlock); err != nil {
			return err
		}
		h.logger.Info("unlock hotkey registered", "keys", unlockKeys)
	}
	return nil
}

// RegisterFunc registers an arbitrary hotkey callback. The callback runs
// on its own goroutine so it may block on the engine.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	if h.xu == nil {
		return ErrNoX11
	}
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		go callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

// lockActive attaches the hotkey sticker to the focused window.
func (h *Handler) lockActive() {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	st, err := h.engine.Lock(ctx, h.sticker, 0)
	if err != nil {
		h.logger.Warn("lock hotkey failed", "sticker", h.sticker, "error", err)
		return
	}
	h.logger.Info("sticker locked", "sticker", st.ID, "process", st.Follow.TargetProcess)
}

func (h *Handler) unlock() {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	st, err := h.engine.Unlock(ctx, h.sticker)
	if err != nil {
		h.logger.Warn("unlock hotkey failed", "sticker", h.sticker, "error", err)
		return
	}
	h.logger.Info("sticker unlocked", "sticker", st.ID)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
