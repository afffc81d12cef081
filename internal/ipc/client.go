package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/stickyfollow/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}

	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

// call sends command with an optional payload and decodes the response
// data into out when out is non-nil.
func (c *Client) call(command CommandType, payload, out interface{}) error {
	req := &Request{Command: command}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", command, err)
		}
		req.Payload = raw
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// Reload asks the daemon to reread the stickers file.
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListWindows returns the visible top-level windows the daemon sees.
func (c *Client) ListWindows() (*WindowsData, error) {
	var data WindowsData
	if err := c.call(CommandListWindows, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ListStickers returns every sticker with its live follow state.
func (c *Client) ListStickers() (*StickersData, error) {
	var data StickersData
	if err := c.call(CommandListStickers, nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Lock attaches a sticker to a window. An empty sticker picks the default
// one and a zero window means the active window.
func (c *Client) Lock(sticker string, window uint64) (*StickerData, error) {
	var data StickerData
	if err := c.call(CommandLock, LockPayload{Sticker: sticker, Window: window}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// Unlock detaches a sticker from its target.
func (c *Client) Unlock(sticker string) (*StickerData, error) {
	var data StickerData
	if err := c.call(CommandUnlock, UnlockPayload{Sticker: sticker}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *Client) SuggestFilter(window uint64, kind string) (*SuggestFilterData, error) {
	var data SuggestFilterData
	if err := c.call(CommandSuggestFilter, SuggestFilterPayload{Window: window, Kind: kind}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ShowMessage pops up a bubble next to a sticker and returns its id.
func (c *Client) ShowMessage(sticker, text string, timeoutMs int) (string, error) {
	var data MessageData
	payload := ShowMessagePayload{Sticker: sticker, Text: text, TimeoutMs: timeoutMs}
	if err := c.call(CommandShowMessage, payload, &data); err != nil {
		return "", err
	}
	return data.ID, nil
}

func (c *Client) DismissMessage(id string) (bool, error) {
	var data DismissData
	if err := c.call(CommandDismissMessage, DismissMessagePayload{ID: id}, &data); err != nil {
		return false, err
	}
	return data.Found, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
