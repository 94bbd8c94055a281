package mcp

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// WindowInfo describes one top-level window.
type WindowInfo struct {
	ID      string `json:"id"`
	Desktop int    `json:"desktop"`
	Host    string `json:"host"`
	Class   string `json:"class"`
	Title   string `json:"title"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
}

// AttachWindowInput is the input for the attach_window tool.
type AttachWindowInput struct {
	WindowID string `json:"window_id" jsonschema:"required,X11 window id as hex (0x04200003) or decimal, as reported by list_windows"`
}

// DetachWindowInput is the input for the detach_window tool.
type DetachWindowInput struct{}

// FollowFocusedInput is the input for the follow_focused tool.
type FollowFocusedInput struct {
	Enable bool `json:"enable" jsonschema:"required,true to make the overlay follow the focused window, false to detach"`
}

// ResultOutput reports whether a command took effect.
type ResultOutput struct {
	OK bool `json:"ok"`
}

// GetAttachStateInput is the input for the get_attach_state tool.
type GetAttachStateInput struct{}

// AttachStateOutput is the output for the get_attach_state tool.
type AttachStateOutput struct {
	Mode         string `json:"mode"`
	TargetID     string `json:"target_id,omitempty"`
	LastGeometry string `json:"last_geometry,omitempty"`
}
