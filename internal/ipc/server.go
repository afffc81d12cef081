package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/stickyfollow/internal/daemon"
	"github.com/1broseidon/stickyfollow/internal/follow"
	"github.com/1broseidon/stickyfollow/internal/platform"
	"github.com/1broseidon/stickyfollow/internal/runtimepath"
	"github.com/1broseidon/stickyfollow/internal/store"
)

// requestTimeout bounds how long a single command may wait on the engine.
const requestTimeout = 5 * time.Second

// Engine is the part of the daemon the IPC server drives.
type Engine interface {
	Status(ctx context.Context) (daemon.Status, error)
	Stickers(ctx context.Context) ([]daemon.StickerState, error)
	Windows(ctx context.Context) ([]platform.WindowSnapshot, error)
	Lock(ctx context.Context, ref string, h platform.WindowHandle) (store.Sticker, error)
	Unlock(ctx context.Context, ref string) (store.Sticker, error)
	Reload(ctx context.Context) error
	SuggestFilter(ctx context.Context, h platform.WindowHandle, kind follow.FilterKind) (platform.WindowSnapshot, string, error)
	ShowMessage(ctx context.Context, ref, text string, timeout time.Duration) (string, error)
	DismissMessage(ctx context.Context, id string) (bool, error)
}

var _ Engine = (*daemon.Engine)(nil)

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	engine       Engine
	logger       *slog.Logger
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server
func NewServer(engine Engine, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		engine:     engine,
		logger:     logger,
		startTime:  time.Now(),
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single IPC connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp := s.handleCommand(ctx, req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal IPC response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send IPC response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	s.logger.Debug("IPC request", "command", req.Command)
	switch req.Command {
	case CommandReload:
		return s.handleReload(ctx)
	case CommandGetStatus:
		return s.handleGetStatus(ctx)
	case CommandListWindows:
		return s.handleListWindows(ctx)
	case CommandListStickers:
		return s.handleListStickers(ctx)
	case CommandLock:
		return s.handleLock(ctx, req.Payload)
	case CommandUnlock:
		return s.handleUnlock(ctx, req.Payload)
	case CommandSuggestFilter:
		return s.handleSuggestFilter(ctx, req.Payload)
	case CommandShowMessage:
		return s.handleShowMessage(ctx, req.Payload)
	case CommandDismissMessage:
		return s.handleDismissMessage(ctx, req.Payload)
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func okResponse(data interface{}) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// decode unmarshals an optional payload into v.
func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, v)
}

func (s *Server) handleReload(ctx context.Context) *Response {
	if err := s.engine.Reload(ctx); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload stickers: %v", err))
	}
	s.logger.Info("stickers reloaded over IPC")
	return okResponse(nil)
}

func (s *Server) handleGetStatus(ctx context.Context) *Response {
	st, err := s.engine.Status(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get status: %v", err))
	}
	return okResponse(StatusData{
		Status:        st,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		DaemonRunning: true,
	})
}

func (s *Server) handleListWindows(ctx context.Context) *Response {
	windows, err := s.engine.Windows(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to list windows: %v", err))
	}
	return okResponse(WindowsData{Windows: windows})
}

func (s *Server) handleListStickers(ctx context.Context) *Response {
	stickers, err := s.engine.Stickers(ctx)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to list stickers: %v", err))
	}
	return okResponse(StickersData{Stickers: stickers})
}

func (s *Server) handleLock(ctx context.Context, payload json.RawMessage) *Response {
	var req LockPayload
	if err := decode(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid lock payload: %v", err))
	}
	st, err := s.engine.Lock(ctx, req.Sticker, platform.WindowHandle(req.Window))
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to lock: %v", err))
	}
	s.logger.Info("sticker locked over IPC", "sticker", st.ID, "process", st.Follow.TargetProcess)
	return okResponse(StickerData{Sticker: st})
}

func (s *Server) handleUnlock(ctx context.Context, payload json.RawMessage) *Response {
	var req UnlockPayload
	if err := decode(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid unlock payload: %v", err))
	}
	st, err := s.engine.Unlock(ctx, req.Sticker)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to unlock: %v", err))
	}
	s.logger.Info("sticker unlocked over IPC", "sticker", st.ID)
	return okResponse(StickerData{Sticker: st})
}

func (s *Server) handleSuggestFilter(ctx context.Context, payload json.RawMessage) *Response {
	var req SuggestFilterPayload
	if err := decode(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid suggest payload: %v", err))
	}
	kind := follow.WindowClass
	if req.Kind != "" {
		var err error
		if kind, err = follow.ParseFilterKind(req.Kind); err != nil {
			return NewErrorResponse(err.Error())
		}
	}
	snap, pattern, err := s.engine.SuggestFilter(ctx, platform.WindowHandle(req.Window), kind)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to suggest filter: %v", err))
	}
	return okResponse(SuggestFilterData{Window: snap, Kind: kind.String(), Pattern: pattern})
}

func (s *Server) handleShowMessage(ctx context.Context, payload json.RawMessage) *Response {
	var req ShowMessagePayload
	if err := decode(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid message payload: %v", err))
	}
	if req.Text == "" {
		return NewErrorResponse("text is required")
	}
	id, err := s.engine.ShowMessage(ctx, req.Sticker, req.Text, time.Duration(req.TimeoutMs)*time.Millisecond)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to show message: %v", err))
	}
	return okResponse(MessageData{ID: id})
}

func (s *Server) handleDismissMessage(ctx context.Context, payload json.RawMessage) *Response {
	var req DismissMessagePayload
	if err := decode(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid dismiss payload: %v", err))
	}
	if req.ID == "" {
		return NewErrorResponse("id is required")
	}
	found, err := s.engine.DismissMessage(ctx, req.ID)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to dismiss message: %v", err))
	}
	return okResponse(DismissData{Found: found})
}

// sendError sends an error response
func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}
