package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/stickyfollow/internal/anchor"
	"github.com/1broseidon/stickyfollow/internal/daemon"
	"github.com/1broseidon/stickyfollow/internal/follow"
	"github.com/1broseidon/stickyfollow/internal/ipc"
	"github.com/1broseidon/stickyfollow/internal/platform"
	"github.com/1broseidon/stickyfollow/internal/store"
)

type fakeDaemon struct {
	lockedSticker string
	lockedWindow  uint64
	shown         string
	timeoutMs     int
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	st := daemon.Status{Backend: "x11", Stickers: 3, Instances: 2}
	st.Follow.Active = true
	st.Follow.Interval = 100 * time.Millisecond
	return &ipc.StatusData{Status: st, UptimeSeconds: 42, DaemonRunning: true}, nil
}

func (f *fakeDaemon) ListWindows() (*ipc.WindowsData, error) {
	return &ipc.WindowsData{Windows: []platform.WindowSnapshot{
		{Handle: 0x10, Title: "notes.md - Code", Class: "Code", Process: "code", Bounds: anchor.Rect{Width: 800, Height: 600}},
		{Handle: 0x20, Title: "Mozilla Firefox", Class: "firefox", Process: "firefox"},
	}}, nil
}

func (f *fakeDaemon) ListStickers() (*ipc.StickersData, error) {
	batch := store.Sticker{Name: "fox", Template: follow.Template{ID: "01J"}}
	batch.Follow = follow.Config{Enabled: true, Batch: true, FilterKind: follow.ProcessName, FilterPattern: "firefox"}
	single := store.Sticker{Template: follow.Template{ID: "todo"}}
	single.Follow = follow.Config{Enabled: true, TargetProcess: "code"}
	return &ipc.StickersData{Stickers: []daemon.StickerState{
		{Sticker: batch, Active: true, Instances: []string{"01J@20"}},
		{Sticker: single, Active: true, Target: 0x10, Instances: []string{"todo@10"}},
	}}, nil
}

func (f *fakeDaemon) Lock(sticker string, window uint64) (*ipc.StickerData, error) {
	if sticker == "missing" {
		return nil, errors.New("daemon error: sticker not found")
	}
	f.lockedSticker, f.lockedWindow = sticker, window
	st := store.Sticker{Template: follow.Template{ID: "todo"}}
	st.Follow = follow.Config{Enabled: true, TargetProcess: "code"}
	return &ipc.StickerData{Sticker: st}, nil
}

func (f *fakeDaemon) Unlock(sticker string) (*ipc.StickerData, error) {
	return &ipc.StickerData{Sticker: store.Sticker{Template: follow.Template{ID: sticker}}}, nil
}

func (f *fakeDaemon) SuggestFilter(window uint64, kind string) (*ipc.SuggestFilterData, error) {
	return &ipc.SuggestFilterData{
		Window:  platform.WindowSnapshot{Handle: platform.WindowHandle(window), Class: "Code"},
		Kind:    "window-class",
		Pattern: "Code",
	}, nil
}

func (f *fakeDaemon) ShowMessage(sticker, text string, timeoutMs int) (string, error) {
	f.shown, f.timeoutMs = text, timeoutMs
	return "msg-1", nil
}

func (f *fakeDaemon) DismissMessage(id string) (bool, error) {
	return id == "msg-1", nil
}

func TestParseHandle(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"", 0, false},
		{"0x3a00007", 0x3a00007, false},
		{"  42 ", 42, false},
		{"window", 0, true},
		{"-1", 0, true},
	}
	for _, tt := range tests {
		got, err := parseHandle(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestHandleStatus(t *testing.T) {
	s := NewServer(&fakeDaemon{}, nil)
	_, out, err := s.handleStatus(context.Background(), nil, StatusInput{})
	require.NoError(t, err)
	assert.Equal(t, "x11", out.Backend)
	assert.Equal(t, int64(42), out.UptimeSeconds)
	assert.Equal(t, 2, out.Instances)
	assert.True(t, out.FollowActive)
	assert.Equal(t, int64(100), out.FollowIntervalMs)
}

func TestHandleListWindowsFilter(t *testing.T) {
	s := NewServer(&fakeDaemon{}, nil)

	_, out, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	require.NoError(t, err)
	require.Len(t, out.Windows, 2)
	assert.Equal(t, "0x10", out.Windows[0].Handle)
	assert.Equal(t, float64(800), out.Windows[0].Width)

	_, out, err = s.handleListWindows(context.Background(), nil, ListWindowsInput{Filter: "FIREFOX"})
	require.NoError(t, err)
	require.Len(t, out.Windows, 1)
	assert.Equal(t, "0x20", out.Windows[0].Handle)
}

func TestHandleListStickers(t *testing.T) {
	s := NewServer(&fakeDaemon{}, nil)
	_, out, err := s.handleListStickers(context.Background(), nil, ListStickersInput{})
	require.NoError(t, err)
	require.Len(t, out.Stickers, 2)

	fox := out.Stickers[0]
	assert.True(t, fox.Batch)
	assert.Equal(t, "process-name", fox.FilterKind)
	assert.Equal(t, "firefox", fox.FilterPattern)
	assert.Empty(t, fox.Target)

	todo := out.Stickers[1]
	assert.Empty(t, todo.FilterKind)
	assert.Equal(t, "0x10", todo.Target)
	assert.Equal(t, "code", todo.TargetProcess)
	assert.Equal(t, 1, todo.Instances)
}

func TestHandleLockSticker(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d, nil)

	_, out, err := s.handleLockSticker(context.Background(), nil, LockStickerInput{Sticker: " todo ", Window: "0x10"})
	require.NoError(t, err)
	assert.Equal(t, "todo", d.lockedSticker)
	assert.Equal(t, uint64(0x10), d.lockedWindow)
	assert.Equal(t, "code", out.TargetProcess)

	_, _, err = s.handleLockSticker(context.Background(), nil, LockStickerInput{Window: "nope"})
	assert.Error(t, err)

	_, _, err = s.handleLockSticker(context.Background(), nil, LockStickerInput{Sticker: "missing"})
	assert.Error(t, err)
}

func TestHandleMessages(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d, nil)

	_, _, err := s.handleShowMessage(context.Background(), nil, ShowMessageInput{Text: "  "})
	assert.Error(t, err)

	_, out, err := s.handleShowMessage(context.Background(), nil, ShowMessageInput{Text: "tests green", TimeoutMs: -1})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", out.ID)
	assert.Equal(t, "tests green", d.shown)
	assert.Equal(t, -1, d.timeoutMs)

	_, dismissed, err := s.handleDismissMessage(context.Background(), nil, DismissMessageInput{ID: "msg-1"})
	require.NoError(t, err)
	assert.True(t, dismissed.Found)

	_, _, err = s.handleDismissMessage(context.Background(), nil, DismissMessageInput{})
	assert.Error(t, err)
}

func TestToolsOverTransport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &fakeDaemon{}
	s := NewServer(d, nil)
	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	ss, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"status", "list_windows", "list_stickers", "lock_sticker",
		"unlock_sticker", "suggest_filter", "show_message", "dismiss_message",
	}, names)

	res, err := cs.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "lock_sticker",
		Arguments: map[string]any{"sticker": "todo", "window": "0x10"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, uint64(0x10), d.lockedWindow)

	res, err = cs.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      "lock_sticker",
		Arguments: map[string]any{"sticker": "missing"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
