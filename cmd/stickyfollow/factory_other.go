//go:build !linux

package main

import (
	"log/slog"

	"github.com/1broseidon/stickyfollow/internal/overlay"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

func newFactory(backend platform.Backend, logger *slog.Logger) (overlay.Factory, func()) {
	logger.Info("no native overlay surfaces on this platform, stickers are tracked headless", "backend", backend.Name())
	return overlay.NewHeadless(), nil
}
