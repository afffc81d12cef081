package overlay

import (
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/follow"
)

func testTemplate(id string) follow.Template {
	return follow.Template{
		ID:       id,
		Visible:  true,
		Position: image.Pt(10, 20),
		Size:     anchor.Size{Width: 48, Height: 32},
	}
}

func surfaceByName(t *testing.T, h *Headless, name string) *HeadlessSurface {
	t.Helper()
	for _, s := range h.Surfaces() {
		if s.Name() == name && !s.Destroyed() {
			return s
		}
	}
	t.Fatalf("no live surface named %q", name)
	return nil
}

func TestShowTemplateAndRuntimeHidden(t *testing.T) {
	h := NewHeadless()
	r := NewRuntime(RuntimeConfig{Factory: h})

	require.NoError(t, r.ShowTemplate(testTemplate("note"), nil))
	s := surfaceByName(t, h, "note")
	assert.True(t, s.Visible())
	assert.Equal(t, image.Pt(10, 20), s.Position())
	assert.NotNil(t, s.Image(), "placeholder expected")

	r.Widget("note").SetRuntimeHidden(true)
	assert.False(t, s.Visible())

	tpl := testTemplate("note")
	tpl.Position = image.Pt(50, 60)
	require.NoError(t, r.ShowTemplate(tpl, nil))
	assert.False(t, s.Visible(), "runtime hidden state survives updates")
	assert.Equal(t, image.Pt(50, 60), s.Position())

	r.Widget("note").SetRuntimeHidden(false)
	assert.True(t, s.Visible())

	assert.Nil(t, r.Widget("missing"))
	assert.Equal(t, []string{"note"}, r.TemplateIDs())
}

func TestInstanceLifecycle(t *testing.T) {
	h := NewHeadless()
	r := NewRuntime(RuntimeConfig{Factory: h})
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	require.NoError(t, r.ShowTemplate(testTemplate("note"), img))

	inst := testTemplate("note")
	inst.Position = image.Pt(300, 400)
	info, err := r.CreateOrUpdateInstance(inst, "note@a", "note", true)
	require.NoError(t, err)
	assert.NotZero(t, info.Handle)
	assert.Equal(t, image.Pt(300, 400), info.Position)

	s := surfaceByName(t, h, "note@a")
	assert.Same(t, img, s.Image())
	assert.True(t, s.Visible())
	assert.True(t, r.SyncsToTemplate("note@a"))

	inst.Visible = false
	again, err := r.CreateOrUpdateInstance(inst, "note@a", "note", false)
	require.NoError(t, err)
	assert.Equal(t, info.Handle, again.Handle)
	assert.False(t, s.Visible())
	assert.False(t, r.SyncsToTemplate("note@a"))
	assert.Equal(t, 1, r.InstanceCount())

	got, ok := r.Instance("note@a")
	require.True(t, ok)
	assert.Equal(t, image.Pt(300, 400), got.Position)

	r.DestroyInstance("note@a")
	assert.True(t, s.Destroyed())
	assert.Zero(t, r.InstanceCount())
	_, ok = r.Instance("note@a")
	assert.False(t, ok)
}

func TestOwnsHandle(t *testing.T) {
	h := NewHeadless()
	r := NewRuntime(RuntimeConfig{Factory: h})
	require.NoError(t, r.ShowTemplate(testTemplate("note"), nil))
	info, err := r.CreateOrUpdateInstance(testTemplate("note"), "note@a", "note", false)
	require.NoError(t, err)

	widget, ok := r.Instance("note")
	require.True(t, ok)
	assert.True(t, r.OwnsHandle(widget.Handle))
	assert.True(t, r.OwnsHandle(info.Handle))
	assert.False(t, r.OwnsHandle(0))
	assert.False(t, r.OwnsHandle(info.Handle+1000))

	r.DestroyInstance("note@a")
	assert.False(t, r.OwnsHandle(info.Handle))
}

func TestInstanceSizeFallsBackToImage(t *testing.T) {
	r := NewRuntime(RuntimeConfig{Factory: NewHeadless()})
	tpl := testTemplate("note")
	tpl.Size = anchor.Size{}
	require.NoError(t, r.ShowTemplate(tpl, image.NewRGBA(image.Rect(0, 0, 90, 30))))

	info, err := r.CreateOrUpdateInstance(tpl, "note@1", "note", false)
	require.NoError(t, err)
	assert.Equal(t, anchor.Size{Width: 90, Height: 30}, info.Size)
}

func TestDragCallbacks(t *testing.T) {
	h := NewHeadless()
	var mu sync.Mutex
	moved := map[string]image.Point{}
	record := func(id string, p image.Point) {
		mu.Lock()
		moved[id] = p
		mu.Unlock()
	}
	r := NewRuntime(RuntimeConfig{Factory: h, OnInstanceMoved: record, OnTemplateMoved: record})
	require.NoError(t, r.ShowTemplate(testTemplate("note"), nil))
	_, err := r.CreateOrUpdateInstance(testTemplate("note"), "note@b", "note", true)
	require.NoError(t, err)

	surfaceByName(t, h, "note").Drop(image.Pt(1, 2))
	surfaceByName(t, h, "note@b").Drop(image.Pt(3, 4))

	assert.Equal(t, image.Pt(1, 2), moved["note"])
	assert.Equal(t, image.Pt(3, 4), moved["note@b"])
}

func TestCloseDestroysEverything(t *testing.T) {
	h := NewHeadless()
	r := NewRuntime(RuntimeConfig{Factory: h})
	require.NoError(t, r.ShowTemplate(testTemplate("a"), nil))
	_, err := r.CreateOrUpdateInstance(testTemplate("a"), "a@1", "a", false)
	require.NoError(t, err)

	r.Close()
	for _, s := range h.Surfaces() {
		assert.True(t, s.Destroyed(), s.Name())
	}
	assert.Empty(t, r.TemplateIDs())
}
