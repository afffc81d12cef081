package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/stickyfollow/internal/ipc"
)

const (
	ServerName    = "stickyfollow"
	ServerVersion = "0.1.0"

	// previewLength bounds message text echoed into logs.
	previewLength = 50
)

// Daemon is the IPC surface the tools call. *ipc.Client satisfies it.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	ListWindows() (*ipc.WindowsData, error)
	ListStickers() (*ipc.StickersData, error)
	Lock(sticker string, window uint64) (*ipc.StickerData, error)
	Unlock(sticker string) (*ipc.StickerData, error)
	SuggestFilter(window uint64, kind string) (*ipc.SuggestFilterData, error)
	ShowMessage(sticker, text string, timeoutMs int) (string, error)
	DismissMessage(id string) (bool, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Server exposes the running daemon to MCP clients.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards tool calls to d.
func NewServer(d Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		daemon: d,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "status",
		Description: "Report whether the stickyfollow daemon is running, which windowing backend it uses, and how many stickers, follow instances and message bubbles are live.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List visible top-level windows with their handle, title, class, process and bounds. Handles can be passed to lock_sticker and suggest_filter.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_stickers",
		Description: "List configured stickers with their follow mode, filter and current target.",
	}, s.handleListStickers)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "lock_sticker",
		Description: "Attach a sticker to a window so it follows it. Defaults to the last used sticker and the active window. The target's process name is remembered so the sticker re-attaches when the app restarts.",
	}, s.handleLockSticker)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "unlock_sticker",
		Description: "Detach a sticker from the window it follows and return it to its own position.",
	}, s.handleUnlockSticker)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "suggest_filter",
		Description: "Suggest a batch follow filter pattern that would match a window, by window class, process name or title.",
	}, s.handleSuggestFilter)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_message",
		Description: "Show a short text bubble next to a sticker. The bubble follows the sticker's window and disappears after the timeout.",
	}, s.handleShowMessage)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "dismiss_message",
		Description: "Close a message bubble opened by show_message.",
	}, s.handleDismissMessage)
}
