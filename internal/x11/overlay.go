package x11

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// OverlayOptions configures the overlay window.
type OverlayOptions struct {
	Title  string
	Color  uint32 // 0xRRGGBB
	Border int    // frame thickness in pixels; <= 0 fills the whole rect
}

// OverlayWindow is a borderless override-redirect window drawn as a colored
// frame. Its input region is empty, so pointer events pass through it.
type OverlayWindow struct {
	conn  *Connection
	opts  OverlayOptions
	stack stacker

	mu      sync.Mutex
	window  xproto.Window
	bounds  Rect
	mapped  bool
	shaping bool
}

// stacker issues the map-state and stacking requests for the overlay.
type stacker interface {
	Map(win xproto.Window) error
	Unmap(win xproto.Window) error
	Raise(win xproto.Window) error
}

type xStacker struct {
	conn *xgb.Conn
}

func (s xStacker) Map(win xproto.Window) error {
	return xproto.MapWindowChecked(s.conn, win).Check()
}

func (s xStacker) Unmap(win xproto.Window) error {
	return xproto.UnmapWindowChecked(s.conn, win).Check()
}

func (s xStacker) Raise(win xproto.Window) error {
	return xproto.ConfigureWindowChecked(
		s.conn,
		win,
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove},
	).Check()
}

// Rect is a window rectangle in root coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// NewOverlayWindow creates (but does not map) the overlay window with the
// given initial geometry.
func (c *Connection) NewOverlayWindow(opts OverlayOptions, initial Rect) (*OverlayWindow, error) {
	conn := c.XUtil.Conn()
	screen := c.XUtil.Screen()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, err
	}

	initial = clampRect(initial)

	// Create window with override_redirect=true
	// This makes it bypass the window manager
	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		c.Root,
		int16(initial.X), int16(initial.Y),
		uint16(initial.Width), uint16(initial.Height),
		0, // border_width
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect,
		// Value list order follows the bit positions of the mask (low -> high).
		[]uint32{opts.Color, 1},
	).Check()
	if err != nil {
		return nil, fmt.Errorf("failed to create overlay window: %w", err)
	}

	o := &OverlayWindow{
		conn:    c,
		opts:    opts,
		stack:   xStacker{conn: conn},
		window:  wid,
		bounds:  initial,
		shaping: shape.Init(conn) == nil,
	}

	if opts.Title != "" {
		if err := ewmh.WmNameSet(c.XUtil, wid, opts.Title); err != nil {
			return nil, fmt.Errorf("failed to set overlay title: %w", err)
		}
	}
	if err := o.applyShape(); err != nil {
		return nil, err
	}
	return o, nil
}

// ID returns the overlay's X11 window id.
func (o *OverlayWindow) ID() xproto.Window {
	return o.window
}

// Bounds returns the last geometry written to the window.
func (o *OverlayWindow) Bounds() Rect {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bounds
}

// SetBounds moves and resizes the overlay and refreshes its frame shape.
func (o *OverlayWindow) SetBounds(r Rect) error {
	r = clampRect(r)

	o.mu.Lock()
	defer o.mu.Unlock()

	err := xproto.ConfigureWindowChecked(
		o.conn.XUtil.Conn(),
		o.window,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{
			uint32(r.X),
			uint32(r.Y),
			uint32(r.Width),
			uint32(r.Height),
		},
	).Check()
	if err != nil {
		return fmt.Errorf("failed to configure overlay: %w", err)
	}
	o.bounds = r
	return o.applyShapeLocked()
}

// AssertAttributes raises the overlay, marks it above/sticky on every desktop
// and re-applies the click-through input region.
func (o *OverlayWindow) AssertAttributes() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	xu := o.conn.XUtil
	if err := o.stack.Raise(o.window); err != nil {
		return fmt.Errorf("failed to raise overlay: %w", err)
	}

	// Override-redirect windows are unmanaged; these properties are for
	// compositors and pagers that still inspect them.
	if err := ewmh.WmStateSet(xu, o.window, []string{"_NET_WM_STATE_ABOVE", "_NET_WM_STATE_STICKY", "_NET_WM_STATE_SKIP_TASKBAR"}); err != nil {
		return fmt.Errorf("failed to set overlay state: %w", err)
	}
	if err := ewmh.WmDesktopSet(xu, o.window, AllDesktops); err != nil {
		return fmt.Errorf("failed to set overlay desktop: %w", err)
	}
	return o.applyShapeLocked()
}

// Visible reports whether the overlay is currently mapped.
func (o *OverlayWindow) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mapped
}

// Show maps the overlay and raises it. Mapping alone keeps the old stacking
// position, which is below any window the WM raised while it was hidden.
func (o *OverlayWindow) Show() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.stack.Map(o.window); err != nil {
		return fmt.Errorf("failed to map overlay: %w", err)
	}
	o.mapped = true
	if err := o.stack.Raise(o.window); err != nil {
		return fmt.Errorf("failed to raise overlay: %w", err)
	}
	return nil
}

// Hide unmaps the overlay without destroying it.
func (o *OverlayWindow) Hide() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.stack.Unmap(o.window); err != nil {
		return fmt.Errorf("failed to unmap overlay: %w", err)
	}
	o.mapped = false
	return nil
}

// Destroy releases the overlay window.
func (o *OverlayWindow) Destroy() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.window != 0 {
		xproto.DestroyWindow(o.conn.XUtil.Conn(), o.window)
		o.window = 0
	}
	o.mapped = false
}

func (o *OverlayWindow) applyShape() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.applyShapeLocked()
}

func (o *OverlayWindow) applyShapeLocked() error {
	if !o.shaping {
		return nil
	}
	conn := o.conn.XUtil.Conn()

	frame := frameRects(o.bounds.Width, o.bounds.Height, o.opts.Border)
	err := shape.RectanglesChecked(conn, shape.SoSet, shape.SkBounding,
		xproto.ClipOrderingUnsorted, o.window, 0, 0, frame).Check()
	if err != nil {
		return fmt.Errorf("failed to shape overlay: %w", err)
	}

	// An empty input region makes the window click-through.
	err = shape.RectanglesChecked(conn, shape.SoSet, shape.SkInput,
		xproto.ClipOrderingUnsorted, o.window, 0, 0, nil).Check()
	if err != nil {
		return fmt.Errorf("failed to clear overlay input region: %w", err)
	}
	return nil
}

// frameRects returns the bounding region of a hollow frame of the given
// thickness inside a width x height window.
func frameRects(width, height, border int) []xproto.Rectangle {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if border <= 0 || 2*border >= width || 2*border >= height {
		return []xproto.Rectangle{{X: 0, Y: 0, Width: uint16(width), Height: uint16(height)}}
	}

	w, h, b := uint16(width), uint16(height), uint16(border)
	// top, bottom, left, right
	return []xproto.Rectangle{
		{X: 0, Y: 0, Width: w, Height: b},
		{X: 0, Y: int16(height - border), Width: w, Height: b},
		{X: 0, Y: int16(border), Width: b, Height: h - 2*b},
		{X: int16(width - border), Y: int16(border), Width: b, Height: h - 2*b},
	}
}

func clampRect(r Rect) Rect {
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	return r
}

// ParseColor parses "#RRGGBB" or "RRGGBB" into 0xRRGGBB.
func ParseColor(s string) (uint32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return 0, fmt.Errorf("color %q must have the form #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q must have the form #RRGGBB", s)
	}
	return uint32(v), nil
}
