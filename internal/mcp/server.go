// Package mcp exposes the tether daemon's attach commands as MCP tools.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/tether/internal/attach"
	"github.com/1broseidon/tether/internal/platform"
	"github.com/1broseidon/tether/internal/wmquery"
)

const (
	ServerName    = "tether"
	ServerVersion = "0.1.0"
)

// Controller is the daemon surface the tools forward to. *ipc.Client
// implements it.
type Controller interface {
	ListWindows() ([]wmquery.WindowRef, error)
	Attach(id platform.WindowID) (bool, error)
	Detach() (bool, error)
	FollowFocused(enable bool) (bool, error)
	GetState() (*attach.State, error)
}

// Server is the MCP server for overlay attachment.
type Server struct {
	mcpServer *mcpsdk.Server
	ctrl      Controller
}

// NewServer creates an MCP server whose tools call ctrl.
func NewServer(ctrl Controller) *Server {
	s := &Server{
		mcpServer: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		}, nil),
		ctrl: ctrl,
	}
	s.registerTools()
	return s
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List top-level X11 windows known to the window manager. Returns each window's id (hex), desktop, host, WM class and title.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "attach_window",
		Description: "Attach the overlay to a window. The overlay tracks the window's geometry and is shown only while the window is mapped and focused. Replaces any existing attachment.",
	}, s.handleAttachWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "detach_window",
		Description: "Detach the overlay and restore it to the geometry it had before the attachment started.",
	}, s.handleDetachWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "follow_focused",
		Description: "Enable or disable follow mode. While enabled the overlay re-attaches to whichever window has focus.",
	}, s.handleFollowFocused)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_attach_state",
		Description: "Return the current attachment mode (detached, attached or follow), the target window id and its last observed geometry.",
	}, s.handleGetAttachState)
}
