package platform

import "testing"

func TestParseWindowID(t *testing.T) {
	tests := []struct {
		in      string
		want    WindowID
		wantErr bool
	}{
		{"0x03a00003", 0x03a00003, false},
		{"0X3A00003", 0x03a00003, false},
		{"60817411", 60817411, false},
		{" 42 ", 42, false},
		{"0", 0, true},
		{"0x", 0, true},
		{"abc", 0, true},
		{"0x1ffffffff", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseWindowID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWindowID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWindowID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatWindowID(t *testing.T) {
	if got := FormatWindowID(0x3a00003); got != "0x03a00003" {
		t.Fatalf("FormatWindowID = %q", got)
	}
}

func TestRectString(t *testing.T) {
	tests := []struct {
		r    Rect
		want string
	}{
		{Rect{X: 10, Y: 20, Width: 800, Height: 600}, "800x600+10+20"},
		{Rect{X: -5, Y: 0, Width: 1, Height: 2}, "1x2-5+0"},
	}
	for _, tt := range tests {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("%#v.String() = %q, want %q", tt.r, got, tt.want)
		}
	}
}
