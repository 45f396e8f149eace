package ipc

import (
	"encoding/json"
	"fmt"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandShowWindow        CommandType = "SHOW_WINDOW"
	CommandHideWindow        CommandType = "HIDE_WINDOW"
	CommandToggleWindow      CommandType = "TOGGLE_WINDOW"
	CommandSetWindowSize     CommandType = "SET_WINDOW_SIZE"
	CommandGetWindowSize     CommandType = "GET_WINDOW_SIZE"
	CommandShowPluginWindow  CommandType = "SHOW_PLUGIN_WINDOW"
	CommandClosePluginWindow CommandType = "CLOSE_PLUGIN_WINDOW"
	CommandPluginWindowReady CommandType = "PLUGIN_WINDOW_READY"
	CommandGetStatus         CommandType = "GET_STATUS"
	CommandReload            CommandType = "RELOAD"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
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

// WindowSizePayload is the payload of SET_WINDOW_SIZE and the data of
// GET_WINDOW_SIZE, in logical units.
type WindowSizePayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ToggleData is returned by TOGGLE_WINDOW.
type ToggleData struct {
	Visible bool `json:"visible"`
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
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: StatusError,
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Command == "" {
		return nil, fmt.Errorf("failed to parse request: missing command")
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
