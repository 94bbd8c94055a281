package hotkeys

import (
	"fmt"
	"log"
	"sync"

	"github.com/1broseidon/tether/internal/attach"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Engine is the subset of the attach engine the hotkeys drive.
type Engine interface {
	State() attach.State
	FollowFocused(enable bool) (bool, error)
	Detach() bool
}

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	engine Engine
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler. backend must expose X11 internals
// (see platform.LinuxBackend).
func NewHandler(backend any, engine Engine) (*Handler, error) {
	accessor, ok := backend.(x11Accessor)
	if !ok || accessor.XUtil() == nil {
		return nil, fmt.Errorf("hotkeys require an X11 backend")
	}
	xu := accessor.XUtil()

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:     xu,
		root:   accessor.RootWindow(),
		engine: engine,
	}, nil
}

// RegisterFollowToggle binds keySequence to switching follow mode on and off.
func (h *Handler) RegisterFollowToggle(keySequence string) error {
	if err := h.RegisterFunc(keySequence, h.toggleFollow); err != nil {
		return fmt.Errorf("failed to register follow hotkey %q: %w", keySequence, err)
	}
	return nil
}

// RegisterDetach binds keySequence to detaching the overlay.
func (h *Handler) RegisterDetach(keySequence string) error {
	if err := h.RegisterFunc(keySequence, func() {
		if h.engine.Detach() {
			log.Println("Overlay detached (hotkey)")
		}
	}); err != nil {
		return fmt.Errorf("failed to register detach hotkey %q: %w", keySequence, err)
	}
	return nil
}

func (h *Handler) toggleFollow() {
	enable := h.engine.State().Mode != attach.ModeFollow
	if _, err := h.engine.FollowFocused(enable); err != nil {
		log.Printf("Follow toggle failed: %v", err)
		return
	}
	log.Printf("Follow mode %s (hotkey)", onOff(enable))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
