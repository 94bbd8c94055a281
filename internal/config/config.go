package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/1broseidon/tether/internal/wmquery"
	"github.com/1broseidon/tether/internal/x11"
)

// DefaultOverlayTitle is the _NET_WM_NAME given to the overlay window. The
// smoke harness finds the overlay by this title.
const DefaultOverlayTitle = "tether-overlay"

type Config struct {
	PollIntervalMs   int    `yaml:"poll_interval_ms"`
	CommandTimeoutMs int    `yaml:"command_timeout_ms"`
	LogLevel         string `yaml:"log_level"`

	// Display and XAuthority are used when the environment does not provide
	// DISPLAY/XAUTHORITY (e.g. when started from a systemd user unit).
	Display    string `yaml:"display"`
	XAuthority string `yaml:"xauthority"`

	FollowOnStart bool `yaml:"follow_on_start"`

	Tools   wmquery.Tools `yaml:"tools"`
	Overlay OverlayConfig `yaml:"overlay"`
	Hotkeys HotkeyConfig  `yaml:"hotkeys"`
	Smoke   SmokeConfig   `yaml:"smoke"`
}

type OverlayConfig struct {
	Title  string `yaml:"title"`
	Color  string `yaml:"color"`
	Border int    `yaml:"border"`
}

// HotkeyConfig holds optional global key sequences. Empty disables a binding.
type HotkeyConfig struct {
	FollowToggle string `yaml:"follow_toggle"`
	Detach       string `yaml:"detach"`
}

type SmokeConfig struct {
	DeadlineMs int `yaml:"deadline_ms"`
	SampleMs   int `yaml:"sample_ms"`
}

func DefaultConfig() *Config {
	return &Config{
		PollIntervalMs:   100,
		CommandTimeoutMs: 1000,
		LogLevel:         "info",
		Tools:            wmquery.DefaultTools(),
		Overlay: OverlayConfig{
			Title:  DefaultOverlayTitle,
			Color:  "#3daee9",
			Border: 3,
		},
		Smoke: SmokeConfig{
			DeadlineMs: 1500,
			SampleMs:   25,
		},
	}
}

// PollInterval returns the configured poll interval. Range clamping happens
// in the engine.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutMs) * time.Millisecond
}

func (c *Config) SmokeDeadline() time.Duration {
	return time.Duration(c.Smoke.DeadlineMs) * time.Millisecond
}

func (c *Config) SmokeSample() time.Duration {
	return time.Duration(c.Smoke.SampleMs) * time.Millisecond
}

// OverlayColor returns the overlay colour as 0xRRGGBB.
func (c *Config) OverlayColor() (uint32, error) {
	return x11.ParseColor(c.Overlay.Color)
}

func (c *Config) Validate() error {
	if c.PollIntervalMs <= 0 {
		return &ValidationError{Path: "poll_interval_ms", Err: fmt.Errorf("poll_interval_ms must be > 0")}
	}
	if c.CommandTimeoutMs <= 0 {
		return &ValidationError{Path: "command_timeout_ms", Err: fmt.Errorf("command_timeout_ms must be > 0")}
	}
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}

	tools := map[string]string{
		"tools.list":     c.Tools.List,
		"tools.active":   c.Tools.Active,
		"tools.geometry": c.Tools.Geometry,
	}
	for _, path := range []string{"tools.list", "tools.active", "tools.geometry"} {
		if strings.TrimSpace(tools[path]) == "" {
			return &ValidationError{Path: path, Err: fmt.Errorf("tool name must not be empty")}
		}
	}

	if strings.TrimSpace(c.Overlay.Title) == "" {
		return &ValidationError{Path: "overlay.title", Err: fmt.Errorf("overlay.title is required")}
	}
	if _, err := c.OverlayColor(); err != nil {
		return &ValidationError{Path: "overlay.color", Err: err}
	}
	if c.Overlay.Border < 0 {
		return &ValidationError{Path: "overlay.border", Err: fmt.Errorf("overlay.border must be >= 0")}
	}

	if c.Smoke.DeadlineMs <= 0 {
		return &ValidationError{Path: "smoke.deadline_ms", Err: fmt.Errorf("deadline_ms must be > 0")}
	}
	if c.Smoke.SampleMs <= 0 || c.Smoke.SampleMs > c.Smoke.DeadlineMs {
		return &ValidationError{Path: "smoke.sample_ms", Err: fmt.Errorf("sample_ms must be > 0 and <= deadline_ms")}
	}
	return nil
}

type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
