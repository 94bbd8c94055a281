// Package wmquery discovers window state by running X11 introspection tools
// and parsing their text output. Every failure degrades to an empty result;
// nothing in this package returns execution or parse errors to callers.
package wmquery

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/1broseidon/tether/internal/platform"
)

// ErrUnsupportedSession is returned by New when the session is not X11.
var ErrUnsupportedSession = errors.New("window queries require an X11 session")

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = time.Second

// WindowRef identifies a top-level window as reported by enumeration.
type WindowRef struct {
	ID      platform.WindowID `json:"id"`
	Desktop int               `json:"desktop"`
	Host    string            `json:"host"`
	Class   string            `json:"class"`
	Title   string            `json:"title"`
}

// MappedGeometry is a window rectangle plus whether the window is viewable.
type MappedGeometry struct {
	platform.Rect
	Mapped bool `json:"mapped"`
}

// Tools names the executables used for each query.
type Tools struct {
	List     string `yaml:"list"`
	Active   string `yaml:"active"`
	Geometry string `yaml:"geometry"`
}

// DefaultTools returns the stock wmctrl/xdotool/xwininfo tool set.
func DefaultTools() Tools {
	return Tools{
		List:     "wmctrl",
		Active:   "xdotool",
		Geometry: "xwininfo",
	}
}

// Runner executes name with args and returns its stdout.
type Runner func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

// Options configures a Provider.
type Options struct {
	Tools      Tools
	Timeout    time.Duration
	Display    string
	XAuthority string
	Logger     *slog.Logger

	// Getenv and Run default to os.Getenv and exec-based execution.
	Getenv func(string) string
	Run    Runner
}

// Provider answers window queries by running external tools.
type Provider struct {
	tools   Tools
	timeout time.Duration
	env     []string
	run     Runner
	logger  *slog.Logger
}

// SessionSupported reports whether the current session is X11.
func SessionSupported(getenv func(string) string) bool {
	if getenv == nil {
		getenv = os.Getenv
	}
	return getenv("XDG_SESSION_TYPE") == "x11"
}

// New returns a Provider, or ErrUnsupportedSession outside an X11 session.
func New(opts Options) (*Provider, error) {
	if !SessionSupported(opts.Getenv) {
		return nil, ErrUnsupportedSession
	}

	tools := opts.Tools
	defaults := DefaultTools()
	if tools.List == "" {
		tools.List = defaults.List
	}
	if tools.Active == "" {
		tools.Active = defaults.Active
	}
	if tools.Geometry == "" {
		tools.Geometry = defaults.Geometry
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	run := opts.Run
	if run == nil {
		run = runCommand
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Provider{
		tools:   tools,
		timeout: timeout,
		env:     toolEnv(os.Environ(), opts.Display, opts.XAuthority),
		run:     run,
		logger:  logger,
	}, nil
}

// ListWindows enumerates top-level windows in the order the tool reports them.
func (p *Provider) ListWindows(ctx context.Context) []WindowRef {
	out, ok := p.exec(ctx, p.tools.List, "-lx")
	if !ok {
		return nil
	}
	return ParseWindowList(string(out))
}

// ActiveWindow returns the focused window, or false when none can be read.
func (p *Provider) ActiveWindow(ctx context.Context) (platform.WindowID, bool) {
	out, ok := p.exec(ctx, p.tools.Active, "getactivewindow")
	if !ok {
		return 0, false
	}
	id, ok := ParseActiveWindow(string(out))
	if !ok {
		p.logger.Debug("unparsable active window output", "output", string(out))
	}
	return id, ok
}

// Geometry returns the window's absolute geometry and map state, or false
// when the window is gone or reports no usable size.
func (p *Provider) Geometry(ctx context.Context, id platform.WindowID) (MappedGeometry, bool) {
	out, ok := p.exec(ctx, p.tools.Geometry, "-id", strconv.FormatUint(uint64(id), 10))
	if !ok {
		return MappedGeometry{}, false
	}
	return ParseGeometry(string(out))
}

func (p *Provider) exec(ctx context.Context, name string, args ...string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.run(ctx, p.env, name, args...)
	if err != nil {
		// Cancellation means the caller stopped watching; not worth a log line.
		if !errors.Is(ctx.Err(), context.Canceled) {
			p.logger.Debug("window query failed", "tool", name, "args", args, "error", err)
		}
		return nil, false
	}
	return out, true
}

func runCommand(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	cmd.WaitDelay = 100 * time.Millisecond
	return cmd.Output()
}
