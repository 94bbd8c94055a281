package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/tether/internal/attach"
	"github.com/1broseidon/tether/internal/platform"
	"github.com/1broseidon/tether/internal/runtimepath"
	"github.com/1broseidon/tether/internal/wmquery"
)

// listTimeout bounds a LIST_WINDOWS request.
const listTimeout = 5 * time.Second

// Engine is the command interface the server exposes.
type Engine interface {
	Enabled() bool
	List(ctx context.Context) ([]wmquery.WindowRef, error)
	Attach(id platform.WindowID) (bool, error)
	Detach() bool
	FollowFocused(enable bool) (bool, error)
	State() attach.State
	PollInterval() time.Duration
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	engine       Engine
	reload       func() error
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server on the default socket path. reload is
// invoked for RELOAD requests and may be nil.
func NewServer(engine Engine, reload func() error) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, engine, reload), nil
}

// NewServerAt creates a server listening on socketPath.
func NewServerAt(socketPath string, engine Engine, reload func() error) *Server {
	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		engine:     engine,
		reload:     reload,
		startTime:  time.Now(),
	}
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

	log.Printf("IPC server listening on %s", s.socketPath)

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
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("IPC accept error: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		log.Printf("IPC read error: %v", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		log.Printf("Failed to marshal response: %v", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(req *Request) *Response {
	switch req.Command {
	case CommandReload:
		return s.handleReload()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandListWindows:
		return s.handleListWindows()
	case CommandAttach:
		return s.handleAttach(req.Payload)
	case CommandDetach:
		return s.handleDetach()
	case CommandFollowFocused:
		return s.handleFollowFocused(req.Payload)
	case CommandGetState:
		return s.handleGetState()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleReload() *Response {
	if s.reload == nil {
		return NewErrorResponse("reload is not supported")
	}
	if err := s.reload(); err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
	}
	log.Println("IPC: Config reloaded successfully")

	resp, _ := NewOKResponse(nil)
	return resp
}

func (s *Server) handleGetStatus() *Response {
	status := StatusData{
		Enabled:        s.engine.Enabled(),
		Mode:           s.engine.State().Mode,
		PollIntervalMs: s.engine.PollInterval().Milliseconds(),
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		DaemonRunning:  true,
	}

	resp, _ := NewOKResponse(status)
	return resp
}

func (s *Server) handleListWindows() *Response {
	ctx, cancel := context.WithTimeout(context.Background(), listTimeout)
	defer cancel()

	windows, err := s.engine.List(ctx)
	if err != nil {
		return engineError(err)
	}
	if windows == nil {
		windows = []wmquery.WindowRef{}
	}

	resp, _ := NewOKResponse(WindowsData{Windows: windows})
	return resp
}

func (s *Server) handleAttach(payload json.RawMessage) *Response {
	var req AttachPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid attach payload: %v", err))
	}
	if req.WindowID == 0 {
		return NewErrorResponse("window_id is required")
	}

	ok, err := s.engine.Attach(req.WindowID)
	if err != nil {
		return engineError(err)
	}

	resp, _ := NewOKResponse(ResultData{OK: ok})
	return resp
}

func (s *Server) handleDetach() *Response {
	resp, _ := NewOKResponse(ResultData{OK: s.engine.Detach()})
	return resp
}

func (s *Server) handleFollowFocused(payload json.RawMessage) *Response {
	var req FollowFocusedPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid follow payload: %v", err))
	}

	ok, err := s.engine.FollowFocused(req.Enable)
	if err != nil {
		return engineError(err)
	}

	resp, _ := NewOKResponse(ResultData{OK: ok})
	return resp
}

func (s *Server) handleGetState() *Response {
	resp, _ := NewOKResponse(s.engine.State())
	return resp
}

func engineError(err error) *Response {
	if errors.Is(err, attach.ErrProviderUnavailable) {
		return NewCodedErrorResponse(CodeProviderUnavailable, err.Error())
	}
	return NewErrorResponse(err.Error())
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
