package follow

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/platform"
)

func TestBatchCreatesInstancePerMatch(t *testing.T) {
	h := newHarness(
		win(1, "XTerm", "xterm", "one"),
		win(2, "XTerm", "xterm", "two"),
		win(3, "Firefox", "firefox", "web"),
	)
	h.runtime.widgets["b"] = &fakeWidget{}

	h.ctrl.SetTemplates([]Template{batchTemplate("b", "xterm", 0)})

	assert.Equal(t, []string{"b@1", "b@2"}, h.runtime.instanceIDs())
	assert.True(t, h.runtime.widgets["b"].hidden)
	assert.False(t, h.runtime.instances["b@1"].sync)
	assert.Equal(t, "b", h.runtime.instances["b@1"].templateID)

	for id, inst := range h.runtime.instances {
		assert.NotZero(t, h.attacher.owners[inst.handle], "instance %s not attached", id)
	}
	assert.Equal(t, platform.WindowHandle(1), h.attacher.owners[h.runtime.instances["b@1"].handle])
}

func TestStaleInstancesAreRemoved(t *testing.T) {
	h := newHarness(
		win(1, "xterm", "xterm", "a"),
		win(2, "xterm", "xterm", "b"),
		win(3, "xterm", "xterm", "c"),
	)
	h.ctrl.SetTemplates([]Template{batchTemplate("b", "term", 0)})
	require.Equal(t, []string{"b@1", "b@2", "b@3"}, h.runtime.instanceIDs())

	delete(h.provider.windows, 1)
	delete(h.provider.windows, 3)
	h.ctrl.Refresh()

	assert.Equal(t, []string{"b@2"}, h.runtime.instanceIDs())
	assert.ElementsMatch(t, []string{"b@1", "b@3"}, h.runtime.destroyed)
	assert.Equal(t, 2, h.runtime.updates["b@2"])

	created := 0
	for _, id := range h.runtime.created {
		if id == "b@2" {
			created++
		}
	}
	assert.Equal(t, 1, created, "surviving instance must be updated, not recreated")
}

func TestBatchWithoutMatchesTearsDownAndShowsWidget(t *testing.T) {
	h := newHarness(win(1, "xterm", "xterm", "a"))
	h.runtime.widgets["b"] = &fakeWidget{}
	h.ctrl.SetTemplates([]Template{batchTemplate("b", "xterm", 0)})
	require.True(t, h.runtime.widgets["b"].hidden)

	delete(h.provider.windows, 1)
	h.ctrl.Refresh()

	assert.Empty(t, h.runtime.instances)
	assert.False(t, h.runtime.widgets["b"].hidden)
	assert.True(t, h.ctrl.IsActive(), "batch follow keeps polling for new matches")
}

func TestEnumerationFailureMeansNoMatches(t *testing.T) {
	h := newHarness(win(1, "xterm", "xterm", "a"))
	h.ctrl.SetTemplates([]Template{batchTemplate("b", "xterm", 0)})
	require.Len(t, h.runtime.instances, 1)

	h.provider.listErr = errors.New("display gone")
	assert.NotPanics(t, h.ctrl.Refresh)
	assert.Empty(t, h.runtime.instances)

	h.provider.listErr = nil
	h.ctrl.Refresh()
	assert.Len(t, h.runtime.instances, 1)
}

func TestAdaptiveInterval(t *testing.T) {
	h := newHarness()
	fast := batchTemplate("fast", "x", 16)
	slow := batchTemplate("slow", "y", 200)

	h.ctrl.SetTemplates([]Template{fast, slow})
	assert.True(t, h.ctrl.IsActive())
	assert.Equal(t, 16*time.Millisecond, h.ctrl.Interval())

	fast.Follow.Enabled = false
	h.ctrl.UpdateTemplate(fast)
	assert.Equal(t, 200*time.Millisecond, h.ctrl.Interval())

	slow.Follow.PollIntervalMs = 3
	h.ctrl.UpdateTemplate(slow)
	assert.Equal(t, 16*time.Millisecond, h.ctrl.Interval(), "interval is floored")
}

func TestIdleShutdownAndRestart(t *testing.T) {
	h := newHarness()
	h.ctrl.SetTemplates(nil)
	assert.False(t, h.ctrl.IsActive())

	single := singleTemplate("s")
	h.ctrl.UpdateTemplate(single)
	assert.False(t, h.ctrl.IsActive(), "unresolved single follow without a remembered process is idle")

	batch := batchTemplate("b", "xterm", 50)
	h.ctrl.UpdateTemplate(batch)
	assert.True(t, h.ctrl.IsActive())

	batch.Follow.Enabled = false
	h.ctrl.UpdateTemplate(batch)
	assert.False(t, h.ctrl.IsActive())
	assert.Zero(t, h.ctrl.Interval())

	batch.Follow.Enabled = true
	h.ctrl.UpdateTemplate(batch)
	assert.True(t, h.ctrl.IsActive())
	assert.Equal(t, 50*time.Millisecond, h.ctrl.Interval())

	h.ctrl.Clear()
	assert.False(t, h.ctrl.IsActive())
	_, ok := h.ctrl.Template("b")
	assert.False(t, ok)
}

func TestMinimizeHide(t *testing.T) {
	target := win(0xa, "Editor", "editor", "doc")
	h := newHarness(target)
	h.runtime.widgets["s"] = &fakeWidget{pos: image.Pt(300, 150), size: anchor.Size{Width: 120, Height: 80}}
	h.ctrl.UpdateTemplate(singleTemplate("s"))

	_, err := h.ctrl.LockToTargetWindow("s", 0xa)
	require.NoError(t, err)
	require.Contains(t, h.runtime.instances, "s@a")
	assert.True(t, h.runtime.instances["s@a"].tpl.Visible)

	target.Minimized = true
	h.provider.put(target)
	h.ctrl.Refresh()
	assert.False(t, h.runtime.instances["s@a"].tpl.Visible)

	target.Minimized = false
	h.provider.put(target)
	h.ctrl.Refresh()
	assert.True(t, h.runtime.instances["s@a"].tpl.Visible)
}

func TestMinimizedStaysVisibleWithoutHideFlag(t *testing.T) {
	target := win(0xa, "Editor", "editor", "doc")
	target.Minimized = true
	h := newHarness(target)
	tpl := singleTemplate("s")
	tpl.Follow.HideWhenMinimized = false
	h.ctrl.UpdateTemplate(tpl)

	_, err := h.ctrl.LockToTargetWindow("s", 0xa)
	require.NoError(t, err)
	assert.True(t, h.runtime.instances["s@a"].tpl.Visible)
}

func TestLockCapturesCurrentLayout(t *testing.T) {
	target := win(0xa, "Editor", "editor", "doc")
	target.Bounds = anchor.Rect{X: 100, Y: 100, Width: 800, Height: 600}
	h := newHarness(target)
	h.runtime.widgets["s"] = &fakeWidget{pos: image.Pt(300, 150), size: anchor.Size{Width: 120, Height: 80}}
	h.ctrl.UpdateTemplate(singleTemplate("s"))

	got, err := h.ctrl.LockToTargetWindow("s", 0xa)
	require.NoError(t, err)

	assert.Equal(t, anchor.Point{X: 200, Y: 50}, got.Follow.Offset)
	assert.Equal(t, "editor", got.Follow.TargetProcess)
	assert.Equal(t, image.Pt(300, 150), h.runtime.instances["s@a"].tpl.Position, "lock must not move the sticker")
	assert.True(t, h.runtime.instances["s@a"].sync)
	assert.True(t, h.runtime.widgets["s"].hidden)

	require.Len(t, h.sink.changes, 1)
	assert.Equal(t, got, h.sink.changes[0])

	stored, ok := h.ctrl.Template("s")
	require.True(t, ok)
	assert.Equal(t, got, stored)
}

func TestLockRatioModeFollowsResize(t *testing.T) {
	target := win(0xa, "Editor", "editor", "doc")
	target.Bounds = anchor.Rect{X: 0, Y: 0, Width: 1000, Height: 500}
	h := newHarness(target)
	tpl := singleTemplate("s")
	tpl.Position = image.Pt(880, 400)
	tpl.Follow.Anchor = anchor.BottomRight
	tpl.Follow.OffsetMode = anchor.Ratio
	h.ctrl.UpdateTemplate(tpl)

	_, err := h.ctrl.LockToTargetWindow("s", 0xa)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(880, 400), h.runtime.instances["s@a"].tpl.Position)

	target.Bounds.Width = 2000
	target.Bounds.Height = 1000
	h.provider.put(target)
	h.ctrl.Refresh()

	// The horizontal offset is zero and the vertical one scales with height.
	assert.Equal(t, image.Pt(2000-120, 1000-40-80), h.runtime.instances["s@a"].tpl.Position)
}

func TestLockErrors(t *testing.T) {
	h := newHarness(win(1, "x", "x", "x"))
	h.ctrl.UpdateTemplate(singleTemplate("s"))

	_, err := h.ctrl.LockToTargetWindow("missing", 1)
	assert.ErrorIs(t, err, ErrUnknownTemplate)

	_, err = h.ctrl.LockToTargetWindow("s", 0)
	assert.ErrorIs(t, err, ErrInvalidHandle)

	_, err = h.ctrl.LockToTargetWindow("s", 99)
	assert.ErrorIs(t, err, ErrInvalidHandle)

	bare := NewController(ControllerConfig{Provider: h.provider, Ticker: &fakeTicker{}})
	bare.UpdateTemplate(singleTemplate("s"))
	_, err = bare.LockToTargetWindow("s", 1)
	assert.ErrorIs(t, err, ErrNoRuntime)

	assert.Empty(t, h.sink.changes)
}

func TestResolvedSingleFollowUsesCheapQuery(t *testing.T) {
	target := win(0xa, "Editor", "", "doc")
	h := newHarness(target)
	h.ctrl.UpdateTemplate(singleTemplate("s"))
	_, err := h.ctrl.LockToTargetWindow("s", 0xa)
	require.NoError(t, err)

	h.provider.listCalls = 0
	h.provider.queryCalls = 0
	h.ctrl.Refresh()

	assert.Zero(t, h.provider.listCalls)
	assert.Equal(t, 1, h.provider.queryCalls)
	assert.Contains(t, h.runtime.instances, "s@a")
}

func TestSingleFollowReacquiresByProcess(t *testing.T) {
	h := newHarness(win(7, "Editor", "Editor", "doc"))
	h.runtime.widgets["s"] = &fakeWidget{}
	tpl := singleTemplate("s")
	tpl.Follow.TargetProcess = "editor"

	h.ctrl.UpdateTemplate(tpl)
	assert.True(t, h.ctrl.IsActive())
	assert.Equal(t, []string{"s@7"}, h.runtime.instanceIDs())
	assert.True(t, h.runtime.widgets["s"].hidden)

	delete(h.provider.windows, 7)
	h.ctrl.Refresh()
	assert.Empty(t, h.runtime.instances)
	assert.False(t, h.runtime.widgets["s"].hidden)
	assert.True(t, h.ctrl.IsActive(), "remembered process keeps the follow polling")

	h.provider.put(win(9, "Editor", "editor", "doc 2"))
	h.ctrl.Refresh()
	assert.Equal(t, []string{"s@9"}, h.runtime.instanceIDs())
	assert.Equal(t, platform.WindowHandle(9), h.ctrl.Snapshot().Templates[0].Target)
}

func TestSingleFollowKeepsHiddenPrimary(t *testing.T) {
	h := newHarness(
		win(0xa, "Editor", "editor", "doc"),
		win(0xb, "Editor", "editor", "other"),
	)
	h.runtime.widgets["s"] = &fakeWidget{}
	h.ctrl.UpdateTemplate(singleTemplate("s"))
	_, err := h.ctrl.LockToTargetWindow("s", 0xa)
	require.NoError(t, err)
	require.Equal(t, []string{"s@a"}, h.runtime.instanceIDs())

	hidden := h.provider.windows[0xa]
	hidden.Visible = false
	h.provider.put(hidden)
	h.ctrl.Refresh()
	h.ctrl.Refresh()

	assert.Empty(t, h.runtime.instances)
	assert.True(t, h.runtime.widgets["s"].hidden)
	assert.Equal(t, platform.WindowHandle(0xa), h.ctrl.Snapshot().Templates[0].Target)

	hidden.Visible = true
	h.provider.put(hidden)
	h.ctrl.Refresh()

	assert.Equal(t, []string{"s@a"}, h.runtime.instanceIDs(), "sticker left its locked window")
	assert.Equal(t, platform.WindowHandle(0xa), h.ctrl.Snapshot().Templates[0].Target)
}

func TestRefreshDropsReentrantTick(t *testing.T) {
	h := newHarness(win(1, "xterm", "xterm", "a"))
	h.provider.onList = func() { h.ctrl.Refresh() }

	h.ctrl.SetTemplates([]Template{batchTemplate("b", "xterm", 0)})

	assert.Equal(t, 1, h.provider.listCalls)
	assert.Len(t, h.runtime.instances, 1)
}

func TestClearTarget(t *testing.T) {
	h := newHarness(win(0xa, "Editor", "editor", "doc"))
	h.runtime.widgets["s"] = &fakeWidget{}
	h.ctrl.UpdateTemplate(singleTemplate("s"))
	_, err := h.ctrl.LockToTargetWindow("s", 0xa)
	require.NoError(t, err)

	got, err := h.ctrl.ClearTarget("s")
	require.NoError(t, err)

	assert.Empty(t, got.Follow.TargetProcess)
	assert.Empty(t, h.runtime.instances)
	assert.False(t, h.runtime.widgets["s"].hidden)
	assert.False(t, h.ctrl.IsActive())
	assert.Len(t, h.sink.changes, 2)

	_, err = h.ctrl.ClearTarget("missing")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestInstanceMovedUpdatesOffset(t *testing.T) {
	target := win(0xa, "Editor", "editor", "doc")
	target.Bounds = anchor.Rect{X: 100, Y: 100, Width: 800, Height: 600}
	h := newHarness(target)
	h.ctrl.UpdateTemplate(singleTemplate("s"))
	_, err := h.ctrl.LockToTargetWindow("s", 0xa)
	require.NoError(t, err)

	require.NoError(t, h.ctrl.InstanceMoved("s@a", image.Pt(400, 200)))

	tpl, _ := h.ctrl.Template("s")
	assert.Equal(t, anchor.Point{X: 300, Y: 100}, tpl.Follow.Offset)
	assert.Equal(t, tpl, h.sink.changes[len(h.sink.changes)-1])

	h.ctrl.Refresh()
	assert.Equal(t, image.Pt(400, 200), h.runtime.instances["s@a"].tpl.Position)

	assert.ErrorIs(t, h.ctrl.InstanceMoved("s@ff", image.Pt(0, 0)), ErrUnknownTemplate)
}

func TestDisableTearsDownInstances(t *testing.T) {
	h := newHarness(win(1, "xterm", "xterm", "a"))
	h.runtime.widgets["b"] = &fakeWidget{}
	tpl := batchTemplate("b", "xterm", 0)
	h.ctrl.SetTemplates([]Template{tpl})
	require.Len(t, h.runtime.instances, 1)

	tpl.Follow.Enabled = false
	h.ctrl.UpdateTemplate(tpl)

	assert.Empty(t, h.runtime.instances)
	assert.False(t, h.runtime.widgets["b"].hidden)
}

func TestSetTemplatesRemovesMissing(t *testing.T) {
	h := newHarness(win(1, "xterm", "xterm", "a"), win(2, "code", "code", "b"))
	h.ctrl.SetTemplates([]Template{
		batchTemplate("a", "xterm", 0),
		batchTemplate("b", "code", 0),
		{ID: ""},
	})
	require.Equal(t, []string{"a@1", "b@2"}, h.runtime.instanceIDs())

	h.ctrl.SetTemplates([]Template{batchTemplate("b", "code", 0)})

	assert.Equal(t, []string{"b@2"}, h.runtime.instanceIDs())
	_, ok := h.ctrl.Template("a")
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	h := newHarness(win(1, "xterm", "xterm", "a"), win(2, "xterm", "xterm", "b"))
	h.ctrl.SetTemplates([]Template{batchTemplate("b", "xterm", 40), singleTemplate("s")})

	s := h.ctrl.Snapshot()
	assert.True(t, s.Active)
	assert.Equal(t, 40*time.Millisecond, s.Interval)
	assert.Equal(t, 2, s.InstanceCount())
	require.Len(t, s.Templates, 2)
	assert.Equal(t, "b", s.Templates[0].ID)
	assert.Equal(t, []string{"b@1", "b@2"}, s.Templates[0].Instances)
	assert.False(t, s.Templates[1].Active)
	assert.False(t, s.LastTick.IsZero())
}

func TestInstanceID(t *testing.T) {
	assert.Equal(t, "note@3e00007", InstanceID("note", 0x3e00007))
}
