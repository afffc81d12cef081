package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/stickyfollow/internal/daemon"
	"github.com/1broseidon/stickyfollow/internal/platform"
	"github.com/1broseidon/stickyfollow/internal/store"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload         CommandType = "RELOAD"
	CommandGetStatus      CommandType = "GET_STATUS"
	CommandListWindows    CommandType = "LIST_WINDOWS"
	CommandListStickers   CommandType = "LIST_STICKERS"
	CommandLock           CommandType = "LOCK"
	CommandUnlock         CommandType = "UNLOCK"
	CommandSuggestFilter  CommandType = "SUGGEST_FILTER"
	CommandShowMessage    CommandType = "SHOW_MESSAGE"
	CommandDismissMessage CommandType = "DISMISS_MESSAGE"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	daemon.Status
	UptimeSeconds int64 `json:"uptime_seconds"`
	DaemonRunning bool  `json:"daemon_running"`
}

type WindowsData struct {
	Windows []platform.WindowSnapshot `json:"windows"`
}

type StickersData struct {
	Stickers []daemon.StickerState `json:"stickers"`
}

// LockPayload names the sticker and window for LOCK. An empty sticker
// picks the default sticker and a zero window the active one.
type LockPayload struct {
	Sticker string `json:"sticker,omitempty"`
	Window  uint64 `json:"window,omitempty"`
}

type UnlockPayload struct {
	Sticker string `json:"sticker,omitempty"`
}

type StickerData struct {
	Sticker store.Sticker `json:"sticker"`
}

type SuggestFilterPayload struct {
	Window uint64 `json:"window,omitempty"`
	Kind   string `json:"kind"`
}

type SuggestFilterData struct {
	Window  platform.WindowSnapshot `json:"window"`
	Kind    string                  `json:"kind"`
	Pattern string                  `json:"pattern"`
}

// ShowMessagePayload is the payload for SHOW_MESSAGE. TimeoutMs of 0 uses
// the daemon default; a negative value keeps the bubble until dismissed.
type ShowMessagePayload struct {
	Sticker   string `json:"sticker,omitempty"`
	Text      string `json:"text"`
	TimeoutMs int    `json:"timeout_ms,omitempty"`
}

type MessageData struct {
	ID string `json:"id"`
}

type DismissMessagePayload struct {
	ID string `json:"id"`
}

type DismissData struct {
	Found bool `json:"found"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
