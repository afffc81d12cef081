package daemon

import (
	"context"
	"time"

	"github.com/1broseidon/stickyfollow/internal/follow"
	"github.com/1broseidon/stickyfollow/internal/platform"
	"github.com/1broseidon/stickyfollow/internal/store"
)

// Status is a point-in-time summary of the engine.
type Status struct {
	Backend         string        `json:"backend"`
	Started         time.Time     `json:"started"`
	Uptime          time.Duration `json:"uptime"`
	Stickers        int           `json:"stickers"`
	Instances       int           `json:"instances"`
	Messages        int           `json:"messages"`
	MessageInterval time.Duration `json:"message_interval"`
	Follow          follow.Status `json:"follow"`
}

// Status collects a snapshot on the engine goroutine.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	var s Status
	err := e.Do(ctx, func() {
		s = Status{
			Backend:         e.backend.Name(),
			Started:         e.started,
			Uptime:          time.Since(e.started),
			Stickers:        e.store.Count(),
			Instances:       e.runtime.InstanceCount(),
			Messages:        len(e.bubbles),
			MessageInterval: e.messages.Interval(),
			Follow:          e.follow.Snapshot(),
		}
	})
	return s, err
}

// StickerState pairs a stored sticker with its live follow state.
type StickerState struct {
	store.Sticker
	Active    bool                  `json:"active"`
	Target    platform.WindowHandle `json:"target,omitempty"`
	Instances []string              `json:"instances,omitempty"`
}

// Stickers lists every sticker with what it is currently following.
func (e *Engine) Stickers(ctx context.Context) ([]StickerState, error) {
	var out []StickerState
	err := e.Do(ctx, func() {
		live := make(map[string]follow.TemplateStatus)
		for _, ts := range e.follow.Snapshot().Templates {
			live[ts.ID] = ts
		}
		for _, st := range e.store.All() {
			s := StickerState{Sticker: st}
			if ts, ok := live[st.ID]; ok {
				s.Active = ts.Active
				s.Target = ts.Target
				s.Instances = ts.Instances
			}
			out = append(out, s)
		}
	})
	return out, err
}
