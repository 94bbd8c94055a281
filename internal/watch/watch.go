// Package watch implements cancellable, edge-triggered polling loops over
// window geometry and input focus.
package watch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/1broseidon/tether/internal/platform"
	"github.com/1broseidon/tether/internal/wmquery"
)

// DefaultInterval is used when a watch is started with a non-positive interval.
const DefaultInterval = 100 * time.Millisecond

// Dispatcher runs f in the caller's serialized execution context and returns
// once f has run.
type Dispatcher func(f func())

// CancelFunc stops a watch. It is idempotent and never blocks; once it returns
// no further callbacks from that watch are invoked.
type CancelFunc func()

// GeometrySource reports a window's geometry and map state.
type GeometrySource interface {
	Geometry(ctx context.Context, id platform.WindowID) (wmquery.MappedGeometry, bool)
}

// FocusSource reports the currently focused window.
type FocusSource interface {
	ActiveWindow(ctx context.Context) (platform.WindowID, bool)
}

// GeometryWatcher polls a single window's geometry.
type GeometryWatcher struct {
	source   GeometrySource
	dispatch Dispatcher
	logger   *slog.Logger
}

// NewGeometryWatcher returns a watcher that polls source and delivers
// callbacks through dispatch. A nil dispatch invokes callbacks directly on the
// polling goroutine.
func NewGeometryWatcher(source GeometrySource, dispatch Dispatcher, logger *slog.Logger) *GeometryWatcher {
	return &GeometryWatcher{source: source, dispatch: orDirect(dispatch), logger: orDefault(logger)}
}

// Watch polls id immediately and then every interval. onChange receives a
// geometry whenever it differs from the last one delivered, and also on the
// first successful poll after a miss. onMissing is invoked on every poll that
// finds no usable geometry.
func (w *GeometryWatcher) Watch(id platform.WindowID, interval time.Duration, onChange func(wmquery.MappedGeometry), onMissing func()) CancelFunc {
	var (
		last    wmquery.MappedGeometry
		emitted bool
		missed  bool
	)

	poll := func(ctx context.Context) func() {
		g, ok := w.source.Geometry(ctx, id)
		if !ok {
			missed = true
			return onMissing
		}
		if emitted && !missed && g == last {
			return nil
		}
		last, emitted, missed = g, true, false
		if onChange == nil {
			return nil
		}
		return func() { onChange(g) }
	}

	return start(interval, w.dispatch, w.logger.With("watch", "geometry", "window_id", id), poll)
}

// FocusWatcher polls the focused window.
type FocusWatcher struct {
	source   FocusSource
	dispatch Dispatcher
	logger   *slog.Logger
}

// NewFocusWatcher returns a watcher that polls source and delivers callbacks
// through dispatch.
func NewFocusWatcher(source FocusSource, dispatch Dispatcher, logger *slog.Logger) *FocusWatcher {
	return &FocusWatcher{source: source, dispatch: orDirect(dispatch), logger: orDefault(logger)}
}

// Watch polls the focused window immediately and then every interval.
// onChange fires on the first poll and whenever (id, ok) changes; ok is false
// when no window has focus.
func (w *FocusWatcher) Watch(interval time.Duration, onChange func(id platform.WindowID, ok bool)) CancelFunc {
	var (
		lastID  platform.WindowID
		lastOK  bool
		emitted bool
	)

	poll := func(ctx context.Context) func() {
		id, ok := w.source.ActiveWindow(ctx)
		if !ok {
			id = 0
		}
		if emitted && id == lastID && ok == lastOK {
			return nil
		}
		lastID, lastOK, emitted = id, ok, true
		if onChange == nil {
			return nil
		}
		return func() { onChange(id, ok) }
	}

	return start(interval, w.dispatch, w.logger.With("watch", "focus"), poll)
}

// start runs poll on its own goroutine and delivers whatever callback it
// returns through dispatch, guarded by a liveness flag.
func start(interval time.Duration, dispatch Dispatcher, logger *slog.Logger, poll func(context.Context) func()) CancelFunc {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	var alive atomic.Bool
	alive.Store(true)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			pass(ctx, &alive, dispatch, logger, poll)

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
			}
		}
	}()

	return func() {
		alive.Store(false)
		cancel()
	}
}

func pass(ctx context.Context, alive *atomic.Bool, dispatch Dispatcher, logger *slog.Logger, poll func(context.Context) func()) {
	defer func() {
		if err := recover(); err != nil {
			logger.Error("watch panic recovered", "error", err)
		}
	}()

	cb := poll(ctx)
	if cb == nil || ctx.Err() != nil {
		return
	}
	dispatch(func() {
		// Re-checked under the dispatcher so a cancel issued while this
		// delivery was queued still wins.
		if !alive.Load() {
			return
		}
		cb()
	})
}

func orDirect(d Dispatcher) Dispatcher {
	if d != nil {
		return d
	}
	return func(f func()) { f() }
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
