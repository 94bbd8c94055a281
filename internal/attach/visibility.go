package attach

import (
	"log/slog"

	"github.com/1broseidon/tether/internal/platform"
)

// ShouldShow reports whether the overlay belongs on screen.
func ShouldShow(mapped, focused bool) bool {
	return mapped && focused
}

// Visibility tracks the target's mapped and focus state and applies the
// resulting show/hide decision to the overlay with as few writes as possible.
type Visibility struct {
	overlay platform.Overlay
	logger  *slog.Logger

	mapped  bool
	focused bool
	target  *platform.Rect
}

// NewVisibility returns a synchronizer for overlay with all flags cleared.
func NewVisibility(overlay platform.Overlay, logger *slog.Logger) *Visibility {
	if logger == nil {
		logger = slog.Default()
	}
	return &Visibility{overlay: overlay, logger: logger}
}

func (v *Visibility) SetMapped(mapped bool)   { v.mapped = mapped }
func (v *Visibility) SetFocused(focused bool) { v.focused = focused }

// SetTarget records the geometry the overlay should cover when shown.
func (v *Visibility) SetTarget(r platform.Rect) {
	v.target = &r
}

// Reset clears every flag so the overlay stays hidden until a fresh geometry
// and focus match arrive.
func (v *Visibility) Reset() {
	v.mapped = false
	v.focused = false
	v.target = nil
}

// Apply brings the overlay in line with the current flags. Write failures are
// logged and otherwise ignored; the next change retries.
func (v *Visibility) Apply() {
	if !ShouldShow(v.mapped, v.focused) {
		if v.overlay.Visible() {
			if err := v.overlay.Hide(); err != nil {
				v.logger.Warn("failed to hide overlay", "error", err)
			}
		}
		return
	}

	if v.target != nil && v.overlay.Bounds() != *v.target {
		if err := v.overlay.SetBounds(*v.target); err != nil {
			v.logger.Warn("failed to move overlay", "bounds", v.target.String(), "error", err)
		}
		if err := v.overlay.AssertAttributes(); err != nil {
			v.logger.Warn("failed to assert overlay attributes", "error", err)
		}
	}

	if !v.overlay.Visible() {
		if err := v.overlay.Show(); err != nil {
			v.logger.Warn("failed to show overlay", "error", err)
		}
	}
}
