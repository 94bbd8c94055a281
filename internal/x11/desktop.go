package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// AllDesktops is the _NET_WM_DESKTOP value for windows shown on every desktop.
const AllDesktops = 0xFFFFFFFF

// FindWindowByTitle returns the window whose _NET_WM_NAME equals title.
// The root window's children are searched first since override-redirect
// windows never appear in the EWMH client list; the client list is the
// fallback for managed windows.
func (c *Connection) FindWindowByTitle(title string) (xproto.Window, error) {
	if title == "" {
		return 0, fmt.Errorf("empty window title")
	}
	name := func(win xproto.Window) (string, error) {
		return ewmh.WmNameGet(c.XUtil, win)
	}

	tree, treeErr := xproto.QueryTree(c.XUtil.Conn(), c.Root).Reply()
	if treeErr == nil {
		if win, ok := matchTitle(tree.Children, title, name); ok {
			return win, nil
		}
	}

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		if treeErr != nil {
			return 0, fmt.Errorf("failed to query root children: %w", treeErr)
		}
		return 0, fmt.Errorf("failed to get client list: %w", err)
	}
	if win, ok := matchTitle(clients, title, name); ok {
		return win, nil
	}
	return 0, fmt.Errorf("no window found with title %q", title)
}

// matchTitle returns the first window whose name is exactly title. Windows
// whose name cannot be read are skipped.
func matchTitle(windows []xproto.Window, title string, name func(xproto.Window) (string, error)) (xproto.Window, bool) {
	for _, win := range windows {
		n, err := name(win)
		if err != nil {
			continue
		}
		if n == title {
			return win, true
		}
	}
	return 0, false
}
