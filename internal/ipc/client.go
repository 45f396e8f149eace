package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/winhost/internal/commands"
	"github.com/1broseidon/winhost/internal/pluginwin"
	"github.com/1broseidon/winhost/internal/runtimepath"
)

// DefaultTimeout bounds a single request round trip.
const DefaultTimeout = 5 * time.Second

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
	return NewClientWithPath(socketPath)
}

// NewClientWithPath creates a client for an explicit socket path.
func NewClientWithPath(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    DefaultTimeout,
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

	if resp.Status == StatusError {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}

	return &resp, nil
}

func (c *Client) simple(cmd CommandType) error {
	_, err := c.sendRequest(&Request{Command: cmd})
	return err
}

func (c *Client) withPayload(cmd CommandType, payload interface{}) (*Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return c.sendRequest(&Request{Command: cmd, Payload: data})
}

// ShowWindow shows the primary window.
func (c *Client) ShowWindow() error {
	return c.simple(CommandShowWindow)
}

// HideWindow hides the primary window.
func (c *Client) HideWindow() error {
	return c.simple(CommandHideWindow)
}

// ToggleWindow toggles the primary window and returns its new visibility.
func (c *Client) ToggleWindow() (bool, error) {
	resp, err := c.sendRequest(&Request{Command: CommandToggleWindow})
	if err != nil {
		return false, err
	}
	var data ToggleData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return false, fmt.Errorf("failed to parse toggle data: %w", err)
	}
	return data.Visible, nil
}

// SetWindowSize resizes the primary window.
func (c *Client) SetWindowSize(width, height float64) error {
	_, err := c.withPayload(CommandSetWindowSize, WindowSizePayload{Width: width, Height: height})
	return err
}

// GetWindowSize returns the primary window's logical size.
func (c *Client) GetWindowSize() (*WindowSizePayload, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetWindowSize})
	if err != nil {
		return nil, err
	}
	var size WindowSizePayload
	if err := json.Unmarshal(resp.Data, &size); err != nil {
		return nil, fmt.Errorf("failed to parse size data: %w", err)
	}
	return &size, nil
}

// ShowPluginWindow displays a plugin result in the plugin window.
func (c *Client) ShowPluginWindow(payload pluginwin.Payload) error {
	_, err := c.withPayload(CommandShowPluginWindow, payload)
	return err
}

// ClosePluginWindow dismisses the plugin window.
func (c *Client) ClosePluginWindow() error {
	return c.simple(CommandClosePluginWindow)
}

// PluginWindowReady reports that the plugin window's content is listening.
func (c *Client) PluginWindowReady() error {
	return c.simple(CommandPluginWindowReady)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*commands.Status, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}

	var status commands.Status
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.simple(CommandReload)
}
