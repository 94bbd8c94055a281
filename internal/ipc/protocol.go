package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/tether/internal/attach"
	"github.com/1broseidon/tether/internal/platform"
	"github.com/1broseidon/tether/internal/wmquery"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload        CommandType = "RELOAD"
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandListWindows   CommandType = "LIST_WINDOWS"
	CommandAttach        CommandType = "ATTACH"
	CommandDetach        CommandType = "DETACH"
	CommandFollowFocused CommandType = "FOLLOW_FOCUSED"
	CommandGetState      CommandType = "GET_STATE"
)

// Error codes carried in Response.Code.
const (
	CodeProviderUnavailable = "provider_unavailable"
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
	Code   string          `json:"code,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Enabled        bool        `json:"enabled"`
	Mode           attach.Mode `json:"mode"`
	PollIntervalMs int64       `json:"poll_interval_ms"`
	UptimeSeconds  int64       `json:"uptime_seconds"`
	DaemonRunning  bool        `json:"daemon_running"`
}

// WindowsData represents the data returned by LIST_WINDOWS
type WindowsData struct {
	Windows []wmquery.WindowRef `json:"windows"`
}

type AttachPayload struct {
	WindowID platform.WindowID `json:"window_id"`
}

type FollowFocusedPayload struct {
	Enable bool `json:"enable"`
}

// ResultData is returned by commands that report success as a boolean.
type ResultData struct {
	OK bool `json:"ok"`
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

// NewCodedErrorResponse creates an error response the client can map back to
// a sentinel error.
func NewCodedErrorResponse(code, errMsg string) *Response {
	resp := NewErrorResponse(errMsg)
	resp.Code = code
	return resp
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
