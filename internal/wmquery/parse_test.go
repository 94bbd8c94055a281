package wmquery

import (
	"reflect"
	"testing"

	"github.com/1broseidon/tether/internal/platform"
)

func TestParseWindowList(t *testing.T) {
	output := "0x03a00003  0 myhost gnome-terminal-server.Gnome-terminal  user@myhost: ~/src\n" +
		"0x04200007 -1 myhost  Navigator.firefox Mozilla Firefox  -  Private\n" +
		"garbage line\n" +
		"0x05000001  1 myhost code.Code\n" +
		"\n"

	got := ParseWindowList(output)
	want := []WindowRef{
		{ID: 0x03a00003, Desktop: 0, Host: "myhost", Class: "gnome-terminal-server.Gnome-terminal", Title: "user@myhost: ~/src"},
		{ID: 0x04200007, Desktop: -1, Host: "myhost", Class: "Navigator.firefox", Title: "Mozilla Firefox  -  Private"},
		{ID: 0x05000001, Desktop: 1, Host: "myhost", Class: "code.Code", Title: ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseWindowList mismatch:\n got: %#v\nwant: %#v", got, want)
	}
}

func TestParseWindowList_RequiresHexPrefix(t *testing.T) {
	got := ParseWindowList("12345 0 host cls title\n0xzz 0 host cls title\n")
	if len(got) != 0 {
		t.Fatalf("expected no windows, got %#v", got)
	}
}

func TestParseWindowList_Empty(t *testing.T) {
	if got := ParseWindowList(""); len(got) != 0 {
		t.Fatalf("expected empty list, got %#v", got)
	}
}

func TestParseActiveWindow(t *testing.T) {
	tests := []struct {
		input  string
		want   platform.WindowID
		wantOK bool
	}{
		{"60817411\n", 60817411, true},
		{"  42  ", 42, true},
		{"", 0, false},
		{"0", 0, false},
		{"0x3a00003", 0, false},
		{"not a number", 0, false},
		{"-5", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseActiveWindow(tt.input)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseActiveWindow(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

const xwininfoViewable = `
xwininfo: Window id: 0x3a00003 "user@myhost: ~"

  Absolute upper-left X:  100
  Absolute upper-left Y:  120
  Relative upper-left X:  2
  Relative upper-left Y:  30
  Width: 800
  Height: 600
  Depth: 32
  Visual: 0x5e1
  Border width: 0
  Class: InputOutput
  Map State: IsViewable
  Override Redirect State: no
  Corners:  +100+120  -1020+120  -1020-360  +100-360
  -geometry 80x24+98+90
`

func TestParseGeometry(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   MappedGeometry
		wantOK bool
	}{
		{
			name:   "viewable window",
			input:  xwininfoViewable,
			want:   MappedGeometry{Rect: platform.Rect{X: 100, Y: 120, Width: 800, Height: 600}, Mapped: true},
			wantOK: true,
		},
		{
			name:   "unmapped window",
			input:  "Absolute upper-left X: -5\nAbsolute upper-left Y: 7\nWidth: 10\nHeight: 20\nMap State: IsUnMapped\n",
			want:   MappedGeometry{Rect: platform.Rect{X: -5, Y: 7, Width: 10, Height: 20}, Mapped: false},
			wantOK: true,
		},
		{
			name:   "missing map state defaults to unmapped",
			input:  "Width: 10\nHeight: 20\n",
			want:   MappedGeometry{Rect: platform.Rect{Width: 10, Height: 20}},
			wantOK: true,
		},
		{
			name:   "unviewable is not mapped",
			input:  "Width: 10\nHeight: 20\nMap State: IsUnviewable\n",
			want:   MappedGeometry{Rect: platform.Rect{Width: 10, Height: 20}},
			wantOK: true,
		},
		{
			name:   "zero width is unusable",
			input:  "Absolute upper-left X: 1\nWidth: 0\nHeight: 20\nMap State: IsViewable\n",
			wantOK: false,
		},
		{
			name:   "missing height is unusable",
			input:  "Width: 10\nMap State: IsViewable\n",
			wantOK: false,
		},
		{
			name:   "malformed numbers read as zero",
			input:  "Absolute upper-left X: abc\nWidth: 10\nHeight: 20\nMap State: IsViewable\n",
			want:   MappedGeometry{Rect: platform.Rect{Width: 10, Height: 20}, Mapped: true},
			wantOK: true,
		},
		{
			name:   "empty output",
			input:  "",
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseGeometry(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Fatalf("geometry = %+v, want %+v", got, tt.want)
			}
		})
	}
}
