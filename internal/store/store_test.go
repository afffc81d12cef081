package store

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/follow"
)

func newSticker(name string) Sticker {
	return Sticker{
		Name:  name,
		Image: "/tmp/" + name + ".png",
		Template: follow.Template{
			Visible:  true,
			Position: image.Pt(10, 20),
			Size:     anchor.Size{Width: 64, Height: 48},
			Follow: follow.Config{
				Enabled:       true,
				Batch:         true,
				FilterKind:    follow.ProcessName,
				FilterPattern: "firefox",
				Anchor:        anchor.BottomRight,
				OffsetMode:    anchor.Ratio,
				Offset:        anchor.Point{X: -0.1, Y: -0.2},
			},
		},
	}
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "stickers.yaml"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	s := openTemp(t)
	assert.Zero(t, s.Count())
	assert.Empty(t, s.Templates())
}

func TestAddPersistsAndReopens(t *testing.T) {
	s := openTemp(t)

	added, err := s.Add(newSticker("todo"))
	require.NoError(t, err)
	assert.Len(t, added.ID, 26)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := Open(s.Path())
	require.NoError(t, err)
	got, ok := reopened.Get(added.ID)
	require.True(t, ok)
	assert.Equal(t, added, got)
	assert.Equal(t, anchor.BottomRight, got.Follow.Anchor)
	assert.Equal(t, follow.ProcessName, got.Follow.FilterKind)
}

func TestFileUsesReadableNames(t *testing.T) {
	s := openTemp(t)
	_, err := s.Add(newSticker("todo"))
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "version: 1")
	assert.Contains(t, text, "anchor: bottom-right")
	assert.Contains(t, text, "filter_kind: process-name")
	assert.Contains(t, text, "offset_mode: ratio")
	assert.Contains(t, text, "name: todo")
}

func TestAddRejectsDuplicateID(t *testing.T) {
	s := openTemp(t)
	st := newSticker("a")
	st.ID = "fixed"
	_, err := s.Add(st)
	require.NoError(t, err)
	_, err = s.Add(st)
	assert.Error(t, err)
	assert.Equal(t, 1, s.Count())
}

func TestUpdateTemplateKeepsNameAndImage(t *testing.T) {
	s := openTemp(t)
	added, err := s.Add(newSticker("todo"))
	require.NoError(t, err)

	tpl := added.Template
	tpl.Follow.Offset = anchor.Point{X: 5, Y: 6}
	tpl.Follow.OffsetMode = anchor.Pixels
	require.NoError(t, s.UpdateTemplate(tpl))

	got, ok := s.Get(added.ID)
	require.True(t, ok)
	assert.Equal(t, "todo", got.Name)
	assert.Equal(t, added.Image, got.Image)
	assert.Equal(t, anchor.Point{X: 5, Y: 6}, got.Follow.Offset)

	tpl.ID = "missing"
	assert.ErrorIs(t, s.UpdateTemplate(tpl), ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := openTemp(t)
	a, err := s.Add(newSticker("a"))
	require.NoError(t, err)
	b, err := s.Add(newSticker("b"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(a.ID))
	assert.ErrorIs(t, s.Delete(a.ID), ErrNotFound)

	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
}

func TestLookup(t *testing.T) {
	s := openTemp(t)
	a := newSticker("Alpha")
	a.ID = "01AAAA"
	b := newSticker("beta")
	b.ID = "01AABB"
	_, err := s.Add(a)
	require.NoError(t, err)
	_, err = s.Add(b)
	require.NoError(t, err)

	got, err := s.Lookup("01AAAA")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Name)

	got, err = s.Lookup("01aab")
	require.NoError(t, err)
	assert.Equal(t, "beta", got.Name)

	got, err = s.Lookup("alpha")
	require.NoError(t, err)
	assert.Equal(t, "01AAAA", got.ID)

	_, err = s.Lookup("01AA")
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = s.Lookup("gamma")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReloadDetectsExternalEdits(t *testing.T) {
	s := openTemp(t)
	_, err := s.Add(newSticker("a"))
	require.NoError(t, err)

	changed, err := s.Reload()
	require.NoError(t, err)
	assert.False(t, changed, "own save is not a change")

	content := "version: 1\nstickers:\n  - id: ext\n    name: external\n    visible: true\n"
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o600))

	changed, err = s.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	got, err := s.Lookup("external")
	require.NoError(t, err)
	assert.Equal(t, "ext", got.ID)
	assert.False(t, got.Follow.Enabled)
}

func TestReloadRejectsBadFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stickers.yaml")

	require.NoError(t, os.WriteFile(path, []byte("stickers:\n  - name: no-id\n"), 0o600))
	_, err := Open(path)
	assert.ErrorContains(t, err, "no id")

	require.NoError(t, os.WriteFile(path, []byte("stickers:\n  - id: a\n  - id: a\n"), 0o600))
	_, err = Open(path)
	assert.ErrorContains(t, err, "duplicate")

	require.NoError(t, os.WriteFile(path, []byte("stickers:\n  - id: a\n    colour: red\n"), 0o600))
	_, err = Open(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("version: 9\n"), 0o600))
	_, err = Open(path)
	assert.ErrorContains(t, err, "unsupported version")
}

func TestSubscribeReceivesChanges(t *testing.T) {
	s := openTemp(t)
	ch := s.Subscribe()

	added, err := s.Add(newSticker("a"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(added.ID))

	assert.Equal(t, ChangeEvent{Type: ChangeTypeAdd, ID: added.ID, Source: "api"}, <-ch)
	assert.Equal(t, ChangeEvent{Type: ChangeTypeDelete, ID: added.ID, Source: "api"}, <-ch)

	require.NoError(t, s.Close())
	_, open := <-ch
	assert.False(t, open)
	_, err = s.Add(newSticker("b"))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestUnchangedUpdateDoesNotNotify(t *testing.T) {
	s := openTemp(t)
	added, err := s.Add(newSticker("a"))
	require.NoError(t, err)
	ch := s.Subscribe()

	require.NoError(t, s.Update(added))
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestFileWatcherReloads(t *testing.T) {
	s := openTemp(t)
	ch := s.Subscribe()

	fw, err := NewFileWatcher(s, nil)
	require.NoError(t, err)
	require.NoError(t, fw.Start())
	defer func() { _ = fw.Stop() }()

	content := "version: 1\nstickers:\n  - id: watched\n"
	require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o600))

	require.Eventually(t, func() bool {
		_, ok := s.Get("watched")
		return ok
	}, 5*time.Second, 20*time.Millisecond)

	ev := <-ch
	assert.Equal(t, ChangeTypeReload, ev.Type)
	assert.Equal(t, "file", ev.Source)
}
