package x11

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

func TestFrameRects(t *testing.T) {
	tests := []struct {
		name                  string
		width, height, border int
		want                  []xproto.Rectangle
	}{
		{
			name: "hollow frame", width: 100, height: 50, border: 3,
			want: []xproto.Rectangle{
				{X: 0, Y: 0, Width: 100, Height: 3},
				{X: 0, Y: 47, Width: 100, Height: 3},
				{X: 0, Y: 3, Width: 3, Height: 44},
				{X: 97, Y: 3, Width: 3, Height: 44},
			},
		},
		{
			name: "zero border fills", width: 100, height: 50, border: 0,
			want: []xproto.Rectangle{{X: 0, Y: 0, Width: 100, Height: 50}},
		},
		{
			name: "border too thick fills", width: 10, height: 50, border: 5,
			want: []xproto.Rectangle{{X: 0, Y: 0, Width: 10, Height: 50}},
		},
		{
			name: "degenerate size clamps", width: 0, height: -4, border: 3,
			want: []xproto.Rectangle{{X: 0, Y: 0, Width: 1, Height: 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := frameRects(tt.width, tt.height, tt.border)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d rects, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("rect %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestClampRect(t *testing.T) {
	got := clampRect(Rect{X: -5, Y: 7, Width: 0, Height: -1})
	if got != (Rect{X: -5, Y: 7, Width: 1, Height: 1}) {
		t.Fatalf("clampRect = %+v", got)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"#3daee9", 0x3daee9, false},
		{"#FF0000", 0xff0000, false},
		{"00ff00", 0x00ff00, false},
		{" #000000 ", 0, false},
		{"blue", 0, true},
		{"#12345", 0, true},
		{"#gggggg", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestPickPrimary(t *testing.T) {
	monitors := []Monitor{
		{ID: 0, Name: "DP-1"},
		{ID: 1, Name: "HDMI-1", Primary: true},
	}
	if got := pickPrimary(monitors); got.Name != "HDMI-1" {
		t.Fatalf("pickPrimary = %q, want HDMI-1", got.Name)
	}
	if got := pickPrimary(monitors[:1]); got.Name != "DP-1" {
		t.Fatalf("pickPrimary fallback = %q, want DP-1", got.Name)
	}
}

func TestMatchTitle(t *testing.T) {
	names := map[xproto.Window]string{
		1: "vim tether-overlay.md",
		2: "tether-overlay-old",
		4: "tether-overlay",
		5: "tether-overlay",
	}
	name := func(win xproto.Window) (string, error) {
		n, ok := names[win]
		if !ok {
			return "", errors.New("no _NET_WM_NAME")
		}
		return n, nil
	}

	tests := []struct {
		name    string
		windows []xproto.Window
		title   string
		want    xproto.Window
		wantOK  bool
	}{
		{"exact match skips titles containing it", []xproto.Window{1, 2, 3, 4}, "tether-overlay", 4, true},
		{"first exact match wins", []xproto.Window{5, 4}, "tether-overlay", 5, true},
		{"case-sensitive", []xproto.Window{4}, "Tether-Overlay", 0, false},
		{"substring only", []xproto.Window{1, 2}, "tether-overlay", 0, false},
		{"unreadable names skipped", []xproto.Window{3}, "", 0, false},
		{"no windows", nil, "tether-overlay", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchTitle(tt.windows, tt.title, name)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("matchTitle = %d, %v; want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

type recordingStacker struct {
	calls    []string
	raiseErr error
}

func (r *recordingStacker) Map(win xproto.Window) error {
	r.calls = append(r.calls, fmt.Sprintf("map %d", win))
	return nil
}

func (r *recordingStacker) Unmap(win xproto.Window) error {
	r.calls = append(r.calls, fmt.Sprintf("unmap %d", win))
	return nil
}

func (r *recordingStacker) Raise(win xproto.Window) error {
	r.calls = append(r.calls, fmt.Sprintf("raise %d", win))
	return r.raiseErr
}

func TestOverlayShow_RaisesAfterMapping(t *testing.T) {
	rec := &recordingStacker{}
	o := &OverlayWindow{window: 42, stack: rec}

	// Hide and show again, as happens when the target loses and regains focus.
	for _, step := range []func() error{o.Show, o.Hide, o.Show} {
		if err := step(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	want := []string{"map 42", "raise 42", "unmap 42", "map 42", "raise 42"}
	if strings.Join(rec.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", rec.calls, want)
	}
	if !o.Visible() {
		t.Fatal("overlay should be visible after Show")
	}
}

func TestOverlayShow_RaiseError(t *testing.T) {
	rec := &recordingStacker{raiseErr: errors.New("bad window")}
	o := &OverlayWindow{window: 7, stack: rec}

	if err := o.Show(); err == nil {
		t.Fatal("expected raise error")
	}
	if !o.Visible() {
		t.Fatal("overlay is mapped even when the raise fails")
	}
}
