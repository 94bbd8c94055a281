package wmquery

import (
	"strconv"
	"strings"

	"github.com/1broseidon/tether/internal/platform"
)

// ParseWindowList parses enumeration output, one window per line:
//
//	<hex-id> <desktop> <host> <wm-class> <title...>
//
// The title is the remainder of the line with embedded spaces preserved.
// Lines that do not carry a 0x-prefixed id and the four leading fields are
// skipped.
func ParseWindowList(output string) []WindowRef {
	var windows []WindowRef
	for _, line := range strings.Split(output, "\n") {
		ref, ok := parseWindowLine(line)
		if !ok {
			continue
		}
		windows = append(windows, ref)
	}
	return windows
}

func parseWindowLine(line string) (WindowRef, bool) {
	rest := strings.TrimRight(line, "\r")
	var fields [4]string
	for i := range fields {
		rest = strings.TrimLeft(rest, " \t")
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			fields[i], rest = rest, ""
		} else {
			fields[i], rest = rest[:end], rest[end:]
		}
		if fields[i] == "" {
			return WindowRef{}, false
		}
	}

	id, ok := parseHexID(fields[0])
	if !ok {
		return WindowRef{}, false
	}
	desktop, err := strconv.Atoi(fields[1])
	if err != nil {
		desktop = -1
	}

	return WindowRef{
		ID:      id,
		Desktop: desktop,
		Host:    fields[2],
		Class:   fields[3],
		Title:   strings.TrimLeft(rest, " \t"),
	}, true
}

func parseHexID(s string) (platform.WindowID, bool) {
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "0x") {
		return 0, false
	}
	v, err := strconv.ParseUint(lower[2:], 16, 32)
	if err != nil {
		return 0, false
	}
	return platform.WindowID(v), true
}

// ParseActiveWindow parses a single decimal window id.
func ParseActiveWindow(output string) (platform.WindowID, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(output), 10, 32)
	if err != nil || v == 0 {
		return 0, false
	}
	return platform.WindowID(v), true
}

// Geometry keys in xwininfo output.
const (
	keyAbsX     = "Absolute upper-left X"
	keyAbsY     = "Absolute upper-left Y"
	keyWidth    = "Width"
	keyHeight   = "Height"
	keyMapState = "Map State"

	mapStateViewable = "IsViewable"
)

// ParseGeometry parses key/value geometry output. Unknown lines are ignored,
// missing or malformed numbers read as 0 and a missing map state reads as
// unmapped. A non-positive width or height yields false.
func ParseGeometry(output string) (MappedGeometry, bool) {
	var g MappedGeometry
	for _, line := range strings.Split(output, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case keyAbsX:
			g.X = atoiOrZero(value)
		case keyAbsY:
			g.Y = atoiOrZero(value)
		case keyWidth:
			g.Width = atoiOrZero(value)
		case keyHeight:
			g.Height = atoiOrZero(value)
		case keyMapState:
			g.Mapped = value == mapStateViewable
		}
	}
	if g.Width <= 0 || g.Height <= 0 {
		return MappedGeometry{}, false
	}
	return g, true
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
