package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/tether/internal/platform"
)

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	refs, err := s.ctrl.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, fmt.Errorf("list windows: %w", err)
	}

	out := ListWindowsOutput{Windows: make([]WindowInfo, 0, len(refs))}
	for _, ref := range refs {
		out.Windows = append(out.Windows, WindowInfo{
			ID:      platform.FormatWindowID(ref.ID),
			Desktop: ref.Desktop,
			Host:    ref.Host,
			Class:   ref.Class,
			Title:   ref.Title,
		})
	}
	return nil, out, nil
}

func (s *Server) handleAttachWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args AttachWindowInput) (*mcpsdk.CallToolResult, ResultOutput, error) {
	id, err := platform.ParseWindowID(args.WindowID)
	if err != nil {
		return nil, ResultOutput{}, err
	}
	ok, err := s.ctrl.Attach(id)
	if err != nil {
		return nil, ResultOutput{}, fmt.Errorf("attach %s: %w", platform.FormatWindowID(id), err)
	}
	return nil, ResultOutput{OK: ok}, nil
}

func (s *Server) handleDetachWindow(_ context.Context, _ *mcpsdk.CallToolRequest, _ DetachWindowInput) (*mcpsdk.CallToolResult, ResultOutput, error) {
	ok, err := s.ctrl.Detach()
	if err != nil {
		return nil, ResultOutput{}, fmt.Errorf("detach: %w", err)
	}
	return nil, ResultOutput{OK: ok}, nil
}

func (s *Server) handleFollowFocused(_ context.Context, _ *mcpsdk.CallToolRequest, args FollowFocusedInput) (*mcpsdk.CallToolResult, ResultOutput, error) {
	ok, err := s.ctrl.FollowFocused(args.Enable)
	if err != nil {
		return nil, ResultOutput{}, fmt.Errorf("follow focused: %w", err)
	}
	return nil, ResultOutput{OK: ok}, nil
}

func (s *Server) handleGetAttachState(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetAttachStateInput) (*mcpsdk.CallToolResult, AttachStateOutput, error) {
	state, err := s.ctrl.GetState()
	if err != nil {
		return nil, AttachStateOutput{}, fmt.Errorf("get state: %w", err)
	}

	out := AttachStateOutput{Mode: string(state.Mode)}
	if state.TargetID != nil {
		out.TargetID = platform.FormatWindowID(*state.TargetID)
	}
	if state.LastGeometry != nil {
		out.LastGeometry = state.LastGeometry.String()
	}
	return nil, out, nil
}
