package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/stickyfollow/internal/daemon"
	"github.com/1broseidon/stickyfollow/internal/logging"
	"github.com/1broseidon/stickyfollow/internal/platform"
	"github.com/1broseidon/stickyfollow/internal/store"
)

// parseHandle accepts hex (0x3a00007) or decimal window handles. Empty
// means zero.
func parseHandle(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	h, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid window handle %q", s)
	}
	return h, nil
}

func windowInfo(w platform.WindowSnapshot) WindowInfo {
	return WindowInfo{
		Handle:    w.Handle.String(),
		Title:     w.Title,
		Class:     w.Class,
		Process:   w.Process,
		X:         w.Bounds.X,
		Y:         w.Bounds.Y,
		Width:     w.Bounds.Width,
		Height:    w.Bounds.Height,
		Minimized: w.Minimized,
	}
}

func stickerInfo(st daemon.StickerState) StickerInfo {
	info := StickerInfo{
		ID:            st.ID,
		Name:          st.Name,
		Enabled:       st.Follow.Enabled,
		Batch:         st.Follow.Batch,
		Active:        st.Active,
		TargetProcess: st.Follow.TargetProcess,
		Instances:     len(st.Instances),
	}
	if st.Follow.Batch {
		info.FilterKind = st.Follow.FilterKind.String()
		info.FilterPattern = st.Follow.FilterPattern
	}
	if st.Target != 0 {
		info.Target = st.Target.String()
	}
	return info
}

func stickerOutput(st store.Sticker) StickerOutput {
	return StickerOutput{
		ID:            st.ID,
		Name:          st.Name,
		Enabled:       st.Follow.Enabled,
		TargetProcess: st.Follow.TargetProcess,
	}
}

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, StatusOutput{
		Backend:          st.Backend,
		UptimeSeconds:    st.UptimeSeconds,
		Stickers:         st.Stickers,
		Instances:        st.Instances,
		Messages:         st.Messages,
		FollowActive:     st.Follow.Active,
		FollowIntervalMs: st.Follow.Interval.Milliseconds(),
	}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, args ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	data, err := s.daemon.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	filter := strings.ToLower(strings.TrimSpace(args.Filter))
	out := ListWindowsOutput{Windows: make([]WindowInfo, 0, len(data.Windows))}
	for _, w := range data.Windows {
		if filter != "" && !matchesAny(filter, w.Title, w.Class, w.Process) {
			continue
		}
		out.Windows = append(out.Windows, windowInfo(w))
	}
	s.logger.Debug("mcp list_windows", "count", len(out.Windows), "filter", filter)
	return nil, out, nil
}

func matchesAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func (s *Server) handleListStickers(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListStickersInput) (*mcpsdk.CallToolResult, ListStickersOutput, error) {
	data, err := s.daemon.ListStickers()
	if err != nil {
		return nil, ListStickersOutput{}, err
	}
	out := ListStickersOutput{Stickers: make([]StickerInfo, 0, len(data.Stickers))}
	for _, st := range data.Stickers {
		out.Stickers = append(out.Stickers, stickerInfo(st))
	}
	return nil, out, nil
}

func (s *Server) handleLockSticker(_ context.Context, _ *mcpsdk.CallToolRequest, args LockStickerInput) (*mcpsdk.CallToolResult, StickerOutput, error) {
	h, err := parseHandle(args.Window)
	if err != nil {
		return nil, StickerOutput{}, err
	}
	data, err := s.daemon.Lock(strings.TrimSpace(args.Sticker), h)
	if err != nil {
		s.logger.Info("mcp lock_sticker failed", "sticker", args.Sticker, "window", args.Window, "error", err)
		return nil, StickerOutput{}, err
	}
	s.logger.Info("mcp lock_sticker", "sticker", data.Sticker.ID, "process", data.Sticker.Follow.TargetProcess)
	return nil, stickerOutput(data.Sticker), nil
}

func (s *Server) handleUnlockSticker(_ context.Context, _ *mcpsdk.CallToolRequest, args UnlockStickerInput) (*mcpsdk.CallToolResult, StickerOutput, error) {
	data, err := s.daemon.Unlock(strings.TrimSpace(args.Sticker))
	if err != nil {
		return nil, StickerOutput{}, err
	}
	s.logger.Info("mcp unlock_sticker", "sticker", data.Sticker.ID)
	return nil, stickerOutput(data.Sticker), nil
}

func (s *Server) handleSuggestFilter(_ context.Context, _ *mcpsdk.CallToolRequest, args SuggestFilterInput) (*mcpsdk.CallToolResult, SuggestFilterOutput, error) {
	h, err := parseHandle(args.Window)
	if err != nil {
		return nil, SuggestFilterOutput{}, err
	}
	data, err := s.daemon.SuggestFilter(h, strings.TrimSpace(args.Kind))
	if err != nil {
		return nil, SuggestFilterOutput{}, err
	}
	return nil, SuggestFilterOutput{
		Window:  windowInfo(data.Window),
		Kind:    data.Kind,
		Pattern: data.Pattern,
	}, nil
}

func (s *Server) handleShowMessage(_ context.Context, _ *mcpsdk.CallToolRequest, args ShowMessageInput) (*mcpsdk.CallToolResult, ShowMessageOutput, error) {
	if strings.TrimSpace(args.Text) == "" {
		return nil, ShowMessageOutput{}, fmt.Errorf("text is required")
	}
	id, err := s.daemon.ShowMessage(strings.TrimSpace(args.Sticker), args.Text, args.TimeoutMs)
	if err != nil {
		return nil, ShowMessageOutput{}, err
	}
	s.logger.Info("mcp show_message",
		"message", id,
		"sticker", args.Sticker,
		"text_length", len(args.Text),
		"text_preview", logging.Truncate(args.Text, previewLength),
	)
	return nil, ShowMessageOutput{ID: id}, nil
}

func (s *Server) handleDismissMessage(_ context.Context, _ *mcpsdk.CallToolRequest, args DismissMessageInput) (*mcpsdk.CallToolResult, DismissMessageOutput, error) {
	if strings.TrimSpace(args.ID) == "" {
		return nil, DismissMessageOutput{}, fmt.Errorf("id is required")
	}
	found, err := s.daemon.DismissMessage(args.ID)
	if err != nil {
		return nil, DismissMessageOutput{}, err
	}
	return nil, DismissMessageOutput{Found: found}, nil
}
