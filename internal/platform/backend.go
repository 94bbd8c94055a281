package platform

import (
	"fmt"
	"strconv"
	"strings"
)

// WindowID is an X11 window identifier.
type WindowID uint32

// FormatWindowID renders id the way window listings print it.
func FormatWindowID(id WindowID) string {
	return fmt.Sprintf("0x%08x", uint32(id))
}

// ParseWindowID accepts a 0x-prefixed hex id or a decimal id.
func ParseWindowID(s string) (WindowID, error) {
	digits := strings.ToLower(strings.TrimSpace(s))
	base := 10
	if rest, ok := strings.CutPrefix(digits, "0x"); ok {
		digits, base = rest, 16
	}
	n, err := strconv.ParseUint(digits, base, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid window id %q", s)
	}
	return WindowID(n), nil
}

// Rect describes a rectangular region in absolute screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// String formats r as an X geometry string (WxH+X+Y).
func (r Rect) String() string {
	return fmt.Sprintf("%dx%d%+d%+d", r.Width, r.Height, r.X, r.Y)
}

// Display describes a physical display.
type Display struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Primary bool   `json:"primary"`
	Bounds  Rect   `json:"bounds"`
}

// Overlay is the always-on-top, click-through window kept glued to a target.
type Overlay interface {
	// Bounds returns the overlay's current geometry.
	Bounds() Rect
	SetBounds(bounds Rect) error
	// AssertAttributes re-applies always-on-top, all-workspaces and
	// click-through state.
	AssertAttributes() error
	Visible() bool
	Show() error
	Hide() error
}

// Screen exposes display layout queries.
type Screen interface {
	PrimaryDisplay() (Display, error)
}
