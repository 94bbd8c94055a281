// Package attach keeps an overlay window glued to a target window by polling
// the target's geometry and focus.
package attach

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/tether/internal/platform"
	"github.com/1broseidon/tether/internal/watch"
	"github.com/1broseidon/tether/internal/wmquery"
)

var (
	// ErrProviderUnavailable is returned by operations that need window
	// queries when the session does not support them.
	ErrProviderUnavailable = errors.New("window query provider unavailable")

	// ErrClosed is returned by operations on an engine after Close.
	ErrClosed = errors.New("attachment engine closed")
)

// Poll interval bounds.
const (
	MinPollInterval     = 50 * time.Millisecond
	MaxPollInterval     = 500 * time.Millisecond
	DefaultPollInterval = 100 * time.Millisecond
)

// ClampPollInterval limits d to [MinPollInterval, MaxPollInterval].
func ClampPollInterval(d time.Duration) time.Duration {
	if d < MinPollInterval {
		return MinPollInterval
	}
	if d > MaxPollInterval {
		return MaxPollInterval
	}
	return d
}

// Mode is the engine's attachment mode.
type Mode string

const (
	ModeDetached Mode = "detached"
	ModeAttached Mode = "attached"
	ModeFollow   Mode = "follow"
)

// State is a snapshot of the engine's attachment.
type State struct {
	Mode         Mode               `json:"mode"`
	TargetID     *platform.WindowID `json:"target_id"`
	LastGeometry *platform.Rect     `json:"last_geometry"`
}

// Copy returns a deep copy of s.
func (s State) Copy() State {
	out := State{Mode: s.Mode}
	if s.TargetID != nil {
		id := *s.TargetID
		out.TargetID = &id
	}
	if s.LastGeometry != nil {
		g := *s.LastGeometry
		out.LastGeometry = &g
	}
	return out
}

// Provider answers window queries. Implementations never fail; an absent
// result is reported as false or an empty list.
type Provider interface {
	ListWindows(ctx context.Context) []wmquery.WindowRef
	ActiveWindow(ctx context.Context) (platform.WindowID, bool)
	Geometry(ctx context.Context, id platform.WindowID) (wmquery.MappedGeometry, bool)
}

// Options configures an Engine.
type Options struct {
	// Provider is nil when the session cannot be queried; the engine then
	// only supports Detach and State.
	Provider Provider
	Overlay  platform.Overlay
	// Screen supplies the fallback restore bounds. Optional.
	Screen       platform.Screen
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Engine owns the attachment state machine. Its mutex is the single execution
// context: commands and watcher callbacks all run while holding it.
type Engine struct {
	mu sync.Mutex

	provider Provider
	overlay  platform.Overlay
	screen   platform.Screen
	logger   *slog.Logger
	vis      *Visibility

	geometry *watch.GeometryWatcher
	focus    *watch.FocusWatcher

	interval    time.Duration
	state       State
	snapshot    *platform.Rect
	cancelGeom  watch.CancelFunc
	cancelFocus watch.CancelFunc
	closed      bool
}

// New returns an engine in mode Detached.
func New(opts Options) (*Engine, error) {
	if opts.Overlay == nil {
		return nil, errors.New("attach: overlay is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := opts.PollInterval
	if interval == 0 {
		interval = DefaultPollInterval
	}

	e := &Engine{
		provider: opts.Provider,
		overlay:  opts.Overlay,
		screen:   opts.Screen,
		logger:   logger,
		vis:      NewVisibility(opts.Overlay, logger),
		interval: ClampPollInterval(interval),
		state:    State{Mode: ModeDetached},
	}
	if e.provider != nil {
		e.geometry = watch.NewGeometryWatcher(e.provider, e.dispatch, logger)
		e.focus = watch.NewFocusWatcher(e.provider, e.dispatch, logger)
	}
	return e, nil
}

// Enabled reports whether window queries are available.
func (e *Engine) Enabled() bool {
	return e.provider != nil
}

// PollInterval returns the interval used for newly started watchers.
func (e *Engine) PollInterval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interval
}

// SetPollInterval changes the interval for watchers started by later
// transitions. The value is clamped.
func (e *Engine) SetPollInterval(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.interval = ClampPollInterval(d)
}

// State returns a copy of the current attachment state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Copy()
}

// List enumerates top-level windows.
func (e *Engine) List(ctx context.Context) ([]wmquery.WindowRef, error) {
	if !e.Enabled() {
		return nil, ErrProviderUnavailable
	}
	return e.provider.ListWindows(ctx), nil
}

// Attach starts tracking id. The overlay stays hidden until the target
// reports a mapped geometry and holds focus. An id that never yields geometry
// simply leaves the overlay hidden.
func (e *Engine) Attach(id platform.WindowID) (bool, error) {
	if !e.Enabled() {
		return false, ErrProviderUnavailable
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, ErrClosed
	}

	e.snapshotLocked()
	e.cancelWatchersLocked()

	target := id
	e.state = State{Mode: ModeAttached, TargetID: &target}
	e.vis.Reset()
	e.vis.Apply()

	e.cancelGeom = e.watchGeometryLocked(id)
	e.cancelFocus = e.focus.Watch(e.interval, e.onAttachedFocus)

	e.logger.Info("attached", "window_id", platform.FormatWindowID(id), "interval", e.interval)
	return true, nil
}

// FollowFocused switches follow mode on or off. Turning it off is the same as
// Detach.
func (e *Engine) FollowFocused(enable bool) (bool, error) {
	if !enable {
		return e.Detach(), nil
	}
	if !e.Enabled() {
		return false, ErrProviderUnavailable
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false, ErrClosed
	}

	e.snapshotLocked()
	e.cancelWatchersLocked()

	e.state = State{Mode: ModeFollow}
	e.vis.Reset()
	e.vis.Apply()

	e.cancelFocus = e.focus.Watch(e.interval, e.onFollowFocus)

	e.logger.Info("following focused window", "interval", e.interval)
	return true, nil
}

// Detach stops tracking and returns the overlay to its pre-attach bounds, or
// to the primary display when no snapshot exists. It always succeeds and is a
// no-op when already detached.
func (e *Engine) Detach() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Mode == ModeDetached && !e.watchingLocked() {
		return true
	}

	e.cancelWatchersLocked()
	e.vis.Reset()
	e.restoreLocked()
	e.state = State{Mode: ModeDetached}
	e.snapshot = nil

	e.logger.Info("detached")
	return true
}

// Close stops all watchers. The overlay is left as is.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelWatchersLocked()
	e.closed = true
}

func (e *Engine) dispatch(f func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f()
}

func (e *Engine) watchingLocked() bool {
	return e.cancelGeom != nil || e.cancelFocus != nil
}

func (e *Engine) cancelWatchersLocked() {
	if e.cancelGeom != nil {
		e.cancelGeom()
		e.cancelGeom = nil
	}
	if e.cancelFocus != nil {
		e.cancelFocus()
		e.cancelFocus = nil
	}
}

// snapshotLocked records the overlay bounds on the way out of Detached.
func (e *Engine) snapshotLocked() {
	if e.state.Mode != ModeDetached {
		return
	}
	b := e.overlay.Bounds()
	e.snapshot = &b
}

func (e *Engine) restoreLocked() {
	bounds, ok := e.restoreBoundsLocked()
	if ok {
		if err := e.overlay.SetBounds(bounds); err != nil {
			e.logger.Warn("failed to restore overlay bounds", "bounds", bounds.String(), "error", err)
		}
	}
	if err := e.overlay.AssertAttributes(); err != nil {
		e.logger.Warn("failed to assert overlay attributes", "error", err)
	}
	if err := e.overlay.Show(); err != nil {
		e.logger.Warn("failed to show overlay", "error", err)
	}
}

func (e *Engine) restoreBoundsLocked() (platform.Rect, bool) {
	if e.snapshot != nil {
		return *e.snapshot, true
	}
	if e.screen == nil {
		return platform.Rect{}, false
	}
	d, err := e.screen.PrimaryDisplay()
	if err != nil {
		e.logger.Warn("failed to read primary display", "error", err)
		return platform.Rect{}, false
	}
	return d.Bounds, true
}

func (e *Engine) watchGeometryLocked(id platform.WindowID) watch.CancelFunc {
	return e.geometry.Watch(id, e.interval, e.onGeometry, e.onGeometryMissing)
}

func (e *Engine) onGeometry(g wmquery.MappedGeometry) {
	r := g.Rect
	e.state.LastGeometry = &r
	e.vis.SetMapped(g.Mapped)
	e.vis.SetTarget(r)
	e.vis.Apply()
	e.logger.Debug("target geometry changed", "bounds", r.String(), "mapped", g.Mapped)
}

func (e *Engine) onGeometryMissing() {
	e.vis.SetMapped(false)
	e.vis.Apply()
}

func (e *Engine) onAttachedFocus(id platform.WindowID, ok bool) {
	target := e.state.TargetID
	e.vis.SetFocused(ok && target != nil && id == *target)
	e.vis.Apply()
}

func (e *Engine) onFollowFocus(id platform.WindowID, ok bool) {
	if !ok {
		// Keep the current target; it simply isn't focused.
		e.vis.SetFocused(false)
		e.vis.Apply()
		return
	}

	if e.state.TargetID != nil && *e.state.TargetID == id {
		e.vis.SetFocused(true)
		e.vis.Apply()
		return
	}

	e.retargetLocked(id)
}

// retargetLocked moves a follow-mode attachment to id. The follow focus
// watcher keeps running; only the geometry watcher is replaced.
func (e *Engine) retargetLocked(id platform.WindowID) {
	if e.cancelGeom != nil {
		e.cancelGeom()
		e.cancelGeom = nil
	}

	target := id
	e.state = State{Mode: ModeFollow, TargetID: &target}
	e.vis.Reset()
	e.vis.SetFocused(true)
	e.vis.Apply()

	e.cancelGeom = e.watchGeometryLocked(id)
	e.logger.Info("following window", "window_id", platform.FormatWindowID(id))
}
