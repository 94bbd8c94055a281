//go:build linux

package platform

import (
	"errors"
	"fmt"

	"github.com/1broseidon/tether/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// LinuxBackend wraps an X11 connection and the overlay window it owns.
type LinuxBackend struct {
	conn    *x11.Connection
	overlay *x11.OverlayWindow
}

var (
	_ Overlay = (*LinuxBackend)(nil)
	_ Screen  = (*LinuxBackend)(nil)
)

// OverlayOptions configures the overlay window created by the backend.
type OverlayOptions struct {
	Title  string
	Color  uint32
	Border int
}

// NewLinuxBackendFromDisplay opens a fresh X11 connection on display (empty
// means $DISPLAY) and creates an unmapped overlay covering the primary display.
func NewLinuxBackendFromDisplay(display string, opts OverlayOptions) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}

	b := &LinuxBackend{conn: conn}
	primary, err := b.PrimaryDisplay()
	if err != nil {
		conn.Close()
		return nil, err
	}

	overlay, err := conn.NewOverlayWindow(x11.OverlayOptions{
		Title:  opts.Title,
		Color:  opts.Color,
		Border: opts.Border,
	}, toX11Rect(primary.Bounds))
	if err != nil {
		conn.Close()
		return nil, err
	}
	b.overlay = overlay
	return b, nil
}

// NewLinuxClient opens an X11 connection without creating an overlay. The
// overlay methods report errOverlayMissing on such a backend.
func NewLinuxClient(display string) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

var errOverlayMissing = errors.New("backend has no overlay window")

// Disconnect destroys the overlay and closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b == nil || b.conn == nil {
		return
	}
	if b.overlay != nil {
		b.overlay.Destroy()
	}
	b.conn.Close()
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// OverlayID returns the overlay's window id.
func (b *LinuxBackend) OverlayID() WindowID {
	if b == nil || b.overlay == nil {
		return 0
	}
	return WindowID(b.overlay.ID())
}

// PrimaryDisplay returns the primary display.
func (b *LinuxBackend) PrimaryDisplay() (Display, error) {
	conn, err := b.connection()
	if err != nil {
		return Display{}, err
	}
	m, err := conn.PrimaryMonitor()
	if err != nil {
		return Display{}, err
	}
	return Display{
		ID:      m.ID,
		Name:    m.Name,
		Primary: m.Primary,
		Bounds:  Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height},
	}, nil
}

// Bounds returns the overlay's current bounds.
func (b *LinuxBackend) Bounds() Rect {
	if b.overlay == nil {
		return Rect{}
	}
	return fromX11Rect(b.overlay.Bounds())
}

// SetBounds moves and resizes the overlay.
func (b *LinuxBackend) SetBounds(bounds Rect) error {
	if b.overlay == nil {
		return errOverlayMissing
	}
	return b.overlay.SetBounds(toX11Rect(bounds))
}

// AssertAttributes re-applies the overlay's stacking and input attributes.
func (b *LinuxBackend) AssertAttributes() error {
	if b.overlay == nil {
		return errOverlayMissing
	}
	return b.overlay.AssertAttributes()
}

// Visible reports whether the overlay is mapped.
func (b *LinuxBackend) Visible() bool {
	return b.overlay != nil && b.overlay.Visible()
}

// Show maps the overlay.
func (b *LinuxBackend) Show() error {
	if b.overlay == nil {
		return errOverlayMissing
	}
	return b.overlay.Show()
}

// Hide unmaps the overlay.
func (b *LinuxBackend) Hide() error {
	if b.overlay == nil {
		return errOverlayMissing
	}
	return b.overlay.Hide()
}

// MoveResize moves and resizes an arbitrary client window via EWMH.
func (b *LinuxBackend) MoveResize(windowID WindowID, bounds Rect) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.MoveResizeWindow(xproto.Window(windowID), bounds.X, bounds.Y, bounds.Width, bounds.Height)
}

// FindWindowByTitle returns the window whose title is exactly title.
func (b *LinuxBackend) FindWindowByTitle(title string) (WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	win, err := conn.FindWindowByTitle(title)
	if err != nil {
		return 0, err
	}
	return WindowID(win), nil
}

// ActiveWindow returns the currently active/focused window ID.
func (b *LinuxBackend) ActiveWindow() (WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	wid, err := conn.GetActiveWindow()
	if err != nil {
		return 0, err
	}
	return WindowID(wid), nil
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func toX11Rect(r Rect) x11.Rect {
	return x11.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func fromX11Rect(r x11.Rect) Rect {
	return Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}
