// Package smoke measures how closely the overlay tracks a real window. It
// moves the target through a fixed sequence of geometry changes and samples
// both windows until they line up again.
package smoke

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/tether/internal/platform"
	"github.com/1broseidon/tether/internal/wmquery"
)

const (
	DefaultDeadline  = 1500 * time.Millisecond
	DefaultSample    = 25 * time.Millisecond
	DefaultTolerance = 1
)

// ErrTargetMissing is returned when the target's geometry cannot be read.
var ErrTargetMissing = errors.New("target window geometry unavailable")

// Delta is a relative move/resize applied to the target.
type Delta struct {
	DX, DY, DW, DH int
}

func (d Delta) String() string {
	return fmt.Sprintf("(%+d,%+d,%+d,%+d)", d.DX, d.DY, d.DW, d.DH)
}

// Apply returns r shifted by d.
func (d Delta) Apply(r platform.Rect) platform.Rect {
	return platform.Rect{
		X:      r.X + d.DX,
		Y:      r.Y + d.DY,
		Width:  r.Width + d.DW,
		Height: r.Height + d.DH,
	}
}

// DefaultDeltas grows and moves the target, puts it back, nudges its
// position and size separately, then undoes the nudges. Each round ends
// at the starting geometry, so repeated cycles do not walk the target.
var DefaultDeltas = []Delta{
	{DX: 100, DY: 80, DW: 120, DH: 60},
	{DX: -100, DY: -80, DW: -120, DH: -60},
	{DX: 40},
	{DW: -40, DH: -30},
	{DX: -40, DW: 40, DH: 30},
}

// Mover moves and resizes a client window.
type Mover interface {
	MoveResize(id platform.WindowID, bounds platform.Rect) error
}

// Sampler reads a window's absolute geometry and map state.
type Sampler interface {
	Geometry(ctx context.Context, id platform.WindowID) (wmquery.MappedGeometry, bool)
}

// Config holds the harness parameters.
type Config struct {
	Target  platform.WindowID
	Overlay platform.WindowID

	Deltas    []Delta
	Cycles    int
	Deadline  time.Duration
	Sample    time.Duration
	Tolerance int
	Logger    *slog.Logger
}

// CycleResult records one delta application.
type CycleResult struct {
	Index int   `json:"index"`
	Delta Delta `json:"delta"`

	// Requested is the geometry asked of the window manager; the window
	// manager may adjust it.
	Requested platform.Rect `json:"requested"`

	Mapped    bool          `json:"mapped"`
	Converged bool          `json:"converged"`
	Drift     int           `json:"drift"`
	MaxDrift  int           `json:"max_drift"`
	Latency   time.Duration `json:"latency"`
	Samples   int           `json:"samples"`
}

// Missed reports a cycle where the overlay was never mapped or never lined up.
func (c CycleResult) Missed() bool {
	return !c.Mapped || !c.Converged
}

// Report aggregates all cycles.
type Report struct {
	Cycles     []CycleResult `json:"cycles"`
	MaxDrift   int           `json:"max_drift"`
	MaxLatency time.Duration `json:"max_latency"`
	Missed     int           `json:"missed"`
}

// Passed reports whether every cycle converged.
func (r *Report) Passed() bool {
	return r.Missed == 0
}

func (r *Report) add(c CycleResult) {
	r.Cycles = append(r.Cycles, c)
	if c.MaxDrift > r.MaxDrift {
		r.MaxDrift = c.MaxDrift
	}
	if c.Converged && c.Latency > r.MaxLatency {
		r.MaxLatency = c.Latency
	}
	if c.Missed() {
		r.Missed++
	}
}

// Drift is the largest per-axis absolute difference between a and b.
func Drift(a, b platform.Rect) int {
	m := 0
	for _, d := range []int{a.X - b.X, a.Y - b.Y, a.Width - b.Width, a.Height - b.Height} {
		if d < 0 {
			d = -d
		}
		if d > m {
			m = d
		}
	}
	return m
}

// Harness drives the target and samples both windows.
type Harness struct {
	cfg     Config
	mover   Mover
	sampler Sampler
	logger  *slog.Logger
}

// New creates a harness, filling zero config fields with defaults.
func New(cfg Config, mover Mover, sampler Sampler) *Harness {
	if len(cfg.Deltas) == 0 {
		cfg.Deltas = DefaultDeltas
	}
	if cfg.Cycles <= 0 {
		cfg.Cycles = 1
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.Sample <= 0 {
		cfg.Sample = DefaultSample
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Harness{cfg: cfg, mover: mover, sampler: sampler, logger: logger}
}

// Run applies the delta sequence cfg.Cycles times. A cancelled ctx or a
// vanished target stops the run; the partial report is returned with the error.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	index := 0
	for round := 0; round < h.cfg.Cycles; round++ {
		for _, delta := range h.cfg.Deltas {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			cycle, err := h.cycle(ctx, index, delta)
			if err != nil {
				return report, err
			}
			report.add(cycle)
			h.logger.Info("smoke cycle",
				"index", cycle.Index,
				"delta", cycle.Delta.String(),
				"converged", cycle.Converged,
				"mapped", cycle.Mapped,
				"drift", cycle.Drift,
				"max_drift", cycle.MaxDrift,
				"latency", cycle.Latency,
			)
			index++
		}
	}
	return report, nil
}

func (h *Harness) cycle(ctx context.Context, index int, delta Delta) (CycleResult, error) {
	result := CycleResult{Index: index, Delta: delta}

	current, ok := h.sampler.Geometry(ctx, h.cfg.Target)
	if !ok {
		return result, fmt.Errorf("cycle %d: %w", index, ErrTargetMissing)
	}
	result.Requested = delta.Apply(current.Rect)
	if err := h.mover.MoveResize(h.cfg.Target, result.Requested); err != nil {
		return result, fmt.Errorf("cycle %d: move target: %w", index, err)
	}

	start := time.Now()
	deadline := start.Add(h.cfg.Deadline)
	ticker := time.NewTicker(h.cfg.Sample)
	defer ticker.Stop()

	for {
		if h.sample(ctx, current.Rect, &result) {
			result.Converged = true
			result.Latency = time.Since(start)
			return result, nil
		}
		if !time.Now().Before(deadline) {
			result.Latency = h.cfg.Deadline
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}

// sample takes one reading of both windows and reports whether they line up.
// Readings taken before the window manager has applied the move do not count.
func (h *Harness) sample(ctx context.Context, before platform.Rect, result *CycleResult) bool {
	result.Samples++
	target, ok := h.sampler.Geometry(ctx, h.cfg.Target)
	if !ok || target.Rect == before {
		return false
	}
	overlay, ok := h.sampler.Geometry(ctx, h.cfg.Overlay)
	if !ok || !overlay.Mapped {
		return false
	}
	result.Mapped = true
	result.Drift = Drift(target.Rect, overlay.Rect)
	if result.Drift > result.MaxDrift {
		result.MaxDrift = result.Drift
	}
	return result.Drift <= h.cfg.Tolerance
}
