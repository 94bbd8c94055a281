package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/1broseidon/tether/internal/attach"
	"github.com/1broseidon/tether/internal/platform"
	"github.com/1broseidon/tether/internal/wmquery"
)

type fakeController struct {
	windows  []wmquery.WindowRef
	state    attach.State
	err      error
	attached []platform.WindowID
	follow   []bool
	detaches int
}

func (f *fakeController) ListWindows() ([]wmquery.WindowRef, error) {
	return f.windows, f.err
}

func (f *fakeController) Attach(id platform.WindowID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.attached = append(f.attached, id)
	return true, nil
}

func (f *fakeController) Detach() (bool, error) {
	f.detaches++
	return true, nil
}

func (f *fakeController) FollowFocused(enable bool) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.follow = append(f.follow, enable)
	return true, nil
}

func (f *fakeController) GetState() (*attach.State, error) {
	st := f.state.Copy()
	return &st, nil
}

func TestNewServer_RegistersTools(t *testing.T) {
	if s := NewServer(&fakeController{}); s.mcpServer == nil {
		t.Fatal("expected MCP server")
	}
}

func TestHandleListWindows(t *testing.T) {
	ctrl := &fakeController{windows: []wmquery.WindowRef{
		{ID: 0x04200003, Desktop: 0, Host: "host", Class: "xterm.XTerm", Title: "my term"},
		{ID: 0x05000001, Desktop: -1, Host: "host", Class: "panel.Panel", Title: "panel"},
	}}
	s := NewServer(ctrl)

	_, out, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if err != nil {
		t.Fatalf("handleListWindows: %v", err)
	}
	if len(out.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(out.Windows))
	}
	if out.Windows[0].ID != "0x04200003" || out.Windows[0].Title != "my term" {
		t.Fatalf("unexpected first window: %+v", out.Windows[0])
	}
	if out.Windows[1].Desktop != -1 {
		t.Fatalf("unexpected desktop: %+v", out.Windows[1])
	}
}

func TestHandleListWindows_ProviderUnavailable(t *testing.T) {
	s := NewServer(&fakeController{err: attach.ErrProviderUnavailable})
	_, _, err := s.handleListWindows(context.Background(), nil, ListWindowsInput{})
	if !errors.Is(err, attach.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestHandleAttachWindow(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    platform.WindowID
		wantErr bool
	}{
		{"hex", "0x04200003", 0x04200003, false},
		{"decimal", "69206019", 0x04200003, false},
		{"zero", "0", 0, true},
		{"garbage", "xterm", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{}
			s := NewServer(ctrl)
			_, out, err := s.handleAttachWindow(context.Background(), nil, AttachWindowInput{WindowID: tt.input})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				if len(ctrl.attached) != 0 {
					t.Fatalf("controller should not be called, got %v", ctrl.attached)
				}
				return
			}
			if err != nil {
				t.Fatalf("handleAttachWindow: %v", err)
			}
			if !out.OK || len(ctrl.attached) != 1 || ctrl.attached[0] != tt.want {
				t.Fatalf("unexpected result ok=%v attached=%v", out.OK, ctrl.attached)
			}
		})
	}
}

func TestHandleDetachAndFollow(t *testing.T) {
	ctrl := &fakeController{}
	s := NewServer(ctrl)

	if _, out, err := s.handleFollowFocused(context.Background(), nil, FollowFocusedInput{Enable: true}); err != nil || !out.OK {
		t.Fatalf("follow on: ok=%v err=%v", out.OK, err)
	}
	if _, out, err := s.handleFollowFocused(context.Background(), nil, FollowFocusedInput{Enable: false}); err != nil || !out.OK {
		t.Fatalf("follow off: ok=%v err=%v", out.OK, err)
	}
	if len(ctrl.follow) != 2 || !ctrl.follow[0] || ctrl.follow[1] {
		t.Fatalf("unexpected follow calls %v", ctrl.follow)
	}

	if _, out, err := s.handleDetachWindow(context.Background(), nil, DetachWindowInput{}); err != nil || !out.OK {
		t.Fatalf("detach: ok=%v err=%v", out.OK, err)
	}
	if ctrl.detaches != 1 {
		t.Fatalf("expected one detach, got %d", ctrl.detaches)
	}
}

func TestHandleGetAttachState(t *testing.T) {
	id := platform.WindowID(0x04200003)
	rect := platform.Rect{X: 100, Y: 100, Width: 800, Height: 600}

	tests := []struct {
		name  string
		state attach.State
		want  AttachStateOutput
	}{
		{"detached", attach.State{Mode: attach.ModeDetached}, AttachStateOutput{Mode: "detached"}},
		{"attached no geometry", attach.State{Mode: attach.ModeAttached, TargetID: &id}, AttachStateOutput{Mode: "attached", TargetID: "0x04200003"}},
		{"attached", attach.State{Mode: attach.ModeAttached, TargetID: &id, LastGeometry: &rect}, AttachStateOutput{Mode: "attached", TargetID: "0x04200003", LastGeometry: "800x600+100+100"}},
		{"follow without target", attach.State{Mode: attach.ModeFollow}, AttachStateOutput{Mode: "follow"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&fakeController{state: tt.state})
			_, out, err := s.handleGetAttachState(context.Background(), nil, GetAttachStateInput{})
			if err != nil {
				t.Fatalf("handleGetAttachState: %v", err)
			}
			if out != tt.want {
				t.Fatalf("got %+v, want %+v", out, tt.want)
			}
		})
	}
}
