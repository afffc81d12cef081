package daemon

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/1broseidon/stickyfollow/internal/follow"
	"github.com/1broseidon/stickyfollow/internal/overlay"
)

// bubbleGap separates a bubble from the sticker it belongs to.
const bubbleGap = 6

// ShowMessage pops up a text bubble next to the sticker named by ref and
// keeps it attached to whatever window that sticker follows. A zero
// timeout uses the configured default; a negative one keeps the bubble
// until DismissMessage.
func (e *Engine) ShowMessage(ctx context.Context, ref, text string, timeout time.Duration) (string, error) {
	var (
		id  string
		err error
	)
	if doErr := e.Do(ctx, func() { id, err = e.showMessage(ref, text, timeout) }); doErr != nil {
		return "", doErr
	}
	return id, err
}

func (e *Engine) showMessage(ref, text string, timeout time.Duration) (string, error) {
	st, err := e.resolveSticker(ref)
	if err != nil {
		return "", err
	}
	widget, ok := e.runtime.Instance(e.visibleInstance(st.ID))
	if !ok {
		return "", fmt.Errorf("sticker %s has no window", st.ID)
	}

	e.messageSeq++
	id := fmt.Sprintf("msg-%d", e.messageSeq)
	b, err := overlay.NewBubble(e.runtime.Factory(), id, text)
	if err != nil {
		return "", err
	}

	size := b.Size()
	topLeft := image.Pt(widget.Position.X, widget.Position.Y-int(size.Height)-bubbleGap)
	if topLeft.Y < 0 {
		topLeft.Y = widget.Position.Y + int(widget.Size.Height) + bubbleGap
	}
	following := e.messages.Track(b, widget.Handle, topLeft, e.messagePollMs)
	b.Show()

	entry := &bubbleEntry{bubble: b}
	if timeout == 0 {
		timeout = e.msgTimeout
	}
	if timeout > 0 {
		entry.timer = time.AfterFunc(timeout, func() {
			e.post(func() { e.dismiss(id) })
		})
	}
	e.bubbles[id] = entry
	e.logger.Debug("message shown", "message", id, "sticker", st.ID, "following", following)
	return id, nil
}

// visibleInstance returns the id of the surface currently showing a
// sticker: its single follow instance when locked, else its own widget.
func (e *Engine) visibleInstance(templateID string) string {
	for _, ts := range e.follow.Snapshot().Templates {
		if ts.ID == templateID && !ts.Batch && ts.Target != 0 {
			id := follow.InstanceID(templateID, ts.Target)
			if _, ok := e.runtime.Instance(id); ok {
				return id
			}
		}
	}
	return templateID
}

// DismissMessage closes a bubble. It reports whether the bubble existed.
func (e *Engine) DismissMessage(ctx context.Context, id string) (bool, error) {
	var found bool
	if err := e.Do(ctx, func() { found = e.dismiss(id) }); err != nil {
		return false, err
	}
	return found, nil
}

func (e *Engine) dismiss(id string) bool {
	entry, ok := e.bubbles[id]
	if !ok {
		return false
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	e.messages.Untrack(id)
	entry.bubble.Close()
	delete(e.bubbles, id)
	e.logger.Debug("message dismissed", "message", id)
	return true
}
