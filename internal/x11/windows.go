package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// ErrNoActiveWindow is returned when _NET_ACTIVE_WINDOW is unset or None.
var ErrNoActiveWindow = errors.New("no active window")

// MoveResizeWindow asks the window manager to move and resize a client window.
// Maximized windows are unmaximized first since most window managers ignore
// geometry requests for them.
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	if _, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply(); err != nil {
		return fmt.Errorf("window 0x%08x: %w", uint32(windowID), err)
	}
	if width < 1 || height < 1 {
		return fmt.Errorf("window 0x%08x: invalid size %dx%d", uint32(windowID), width, height)
	}

	// Some windows don't support state changes, so errors are ignored.
	_ = c.unmaximizeWindow(windowID)

	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height); err != nil {
		// Without a cooperating window manager, configure the window directly.
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}
	return nil
}

func (c *Connection) unmaximizeWindow(windowID xproto.Window) error {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return err
	}

	for _, state := range states {
		if state == "_NET_WM_STATE_MAXIMIZED_HORZ" || state == "_NET_WM_STATE_MAXIMIZED_VERT" {
			ewmh.WmStateReq(c.XUtil, windowID, 0, state) // 0 = _NET_WM_STATE_REMOVE
		}
	}
	return nil
}

// GetActiveWindow returns the window named by _NET_ACTIVE_WINDOW.
func (c *Connection) GetActiveWindow() (xproto.Window, error) {
	win, err := ewmh.ActiveWindowGet(c.XUtil)
	if err != nil {
		return 0, err
	}
	if win == 0 {
		return 0, ErrNoActiveWindow
	}
	return win, nil
}
