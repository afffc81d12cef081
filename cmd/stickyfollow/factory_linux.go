//go:build linux

package main

import (
	"log/slog"

	"github.com/1broseidon/stickyfollow/internal/overlay"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

// newFactory returns the surface factory for backend and, for X11, the
// event loop that must run for overlays to receive drags.
func newFactory(backend platform.Backend, logger *slog.Logger) (overlay.Factory, func()) {
	lb, ok := backend.(*platform.LinuxBackend)
	if !ok || lb.XUtil() == nil {
		return overlay.NewHeadless(), nil
	}
	return overlay.NewX11Factory(lb.XUtil(), lb.Layout, logger), lb.EventLoop
}
