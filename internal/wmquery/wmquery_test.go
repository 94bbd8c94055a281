//go:build !windows

package wmquery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/tether/internal/platform"
)

func x11Env(key string) string {
	if key == "XDG_SESSION_TYPE" {
		return "x11"
	}
	return ""
}

func writeStub(t *testing.T, dir, name, script string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
}

// setupStubTools installs wmctrl/xdotool/xwininfo stubs on PATH. Their
// output is driven by environment variables so each test can shape it.
func setupStubTools(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeStub(t, dir, "wmctrl", `
if [ "${1:-}" != "-lx" ]; then
  exit 2
fi
if [ -n "${WMCTRL_STUB_EXIT:-}" ]; then
  exit "${WMCTRL_STUB_EXIT}"
fi
printf '%s\n' "0x03a00003  0 myhost gnome-terminal-server.Gnome-terminal  shell one"
printf '%s\n' "0x04200007  1 myhost Navigator.firefox Firefox"
`)
	writeStub(t, dir, "xdotool", `
if [ "${1:-}" != "getactivewindow" ]; then
  exit 2
fi
if [ -n "${XDOTOOL_STUB_EXIT:-}" ]; then
  exit "${XDOTOOL_STUB_EXIT}"
fi
printf '%s\n' "${XDOTOOL_STUB_OUTPUT:-60817411}"
`)
	writeStub(t, dir, "xwininfo", `
if [ "${1:-}" != "-id" ]; then
  exit 2
fi
if [ "${2:-}" = "${XWININFO_STUB_MISSING:-none}" ]; then
  echo "X Error: BadWindow" 1>&2
  exit 1
fi
if [ -n "${XWININFO_STUB_SLEEP:-}" ]; then
  exec sleep "${XWININFO_STUB_SLEEP}"
fi
cat <<OUT
xwininfo: Window id: ${2}
  Absolute upper-left X:  100
  Absolute upper-left Y:  100
  Width: 800
  Height: 600
  Map State: IsViewable
OUT
`)

	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return dir
}

func newStubProvider(t *testing.T) *Provider {
	t.Helper()
	setupStubTools(t)
	p, err := New(Options{Getenv: x11Env, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestNew_RequiresX11Session(t *testing.T) {
	for _, session := range []string{"", "wayland", "tty"} {
		_, err := New(Options{Getenv: func(key string) string {
			if key == "XDG_SESSION_TYPE" {
				return session
			}
			return ""
		}})
		if !errors.Is(err, ErrUnsupportedSession) {
			t.Fatalf("session %q: expected ErrUnsupportedSession, got %v", session, err)
		}
	}

	if _, err := New(Options{Getenv: x11Env}); err != nil {
		t.Fatalf("x11 session: unexpected error %v", err)
	}
}

func TestProvider_ListWindows(t *testing.T) {
	p := newStubProvider(t)

	got := p.ListWindows(context.Background())
	if len(got) != 2 {
		t.Fatalf("expected 2 windows, got %#v", got)
	}
	if got[0].ID != 0x03a00003 || got[0].Title != "shell one" || got[0].Class != "gnome-terminal-server.Gnome-terminal" {
		t.Fatalf("unexpected first window: %#v", got[0])
	}
	if got[1].ID != 0x04200007 || got[1].Title != "Firefox" {
		t.Fatalf("unexpected second window: %#v", got[1])
	}
}

func TestProvider_ListWindowsFailureIsEmpty(t *testing.T) {
	p := newStubProvider(t)
	t.Setenv("WMCTRL_STUB_EXIT", "1")

	if got := p.ListWindows(context.Background()); len(got) != 0 {
		t.Fatalf("expected empty list on failure, got %#v", got)
	}
}

func TestProvider_ActiveWindow(t *testing.T) {
	p := newStubProvider(t)

	id, ok := p.ActiveWindow(context.Background())
	if !ok || id != 60817411 {
		t.Fatalf("ActiveWindow = (%d, %v), want (60817411, true)", id, ok)
	}

	t.Setenv("XDOTOOL_STUB_OUTPUT", "garbage")
	if _, ok := p.ActiveWindow(context.Background()); ok {
		t.Fatal("expected unparsable output to report no active window")
	}

	t.Setenv("XDOTOOL_STUB_OUTPUT", "")
	t.Setenv("XDOTOOL_STUB_EXIT", "1")
	if _, ok := p.ActiveWindow(context.Background()); ok {
		t.Fatal("expected failing tool to report no active window")
	}
}

func TestProvider_Geometry(t *testing.T) {
	p := newStubProvider(t)

	g, ok := p.Geometry(context.Background(), 42)
	if !ok {
		t.Fatal("expected geometry")
	}
	want := MappedGeometry{Rect: platform.Rect{X: 100, Y: 100, Width: 800, Height: 600}, Mapped: true}
	if g != want {
		t.Fatalf("Geometry = %+v, want %+v", g, want)
	}

	t.Setenv("XWININFO_STUB_MISSING", "42")
	if _, ok := p.Geometry(context.Background(), 42); ok {
		t.Fatal("expected missing window to report no geometry")
	}
}

func TestProvider_GeometryTimeout(t *testing.T) {
	setupStubTools(t)
	t.Setenv("XWININFO_STUB_SLEEP", "2")

	p, err := New(Options{Getenv: x11Env, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := time.Now()
	if _, ok := p.Geometry(context.Background(), 7); ok {
		t.Fatal("expected timed-out query to report no geometry")
	}
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Fatalf("query was not bounded by timeout: %s", elapsed)
	}
}

func TestProvider_MissingToolIsEmpty(t *testing.T) {
	p, err := New(Options{
		Getenv: x11Env,
		Tools:  Tools{List: "tether-no-such-tool", Active: "tether-no-such-tool", Geometry: "tether-no-such-tool"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if got := p.ListWindows(ctx); len(got) != 0 {
		t.Fatalf("expected empty list, got %#v", got)
	}
	if _, ok := p.ActiveWindow(ctx); ok {
		t.Fatal("expected no active window")
	}
	if _, ok := p.Geometry(ctx, 1); ok {
		t.Fatal("expected no geometry")
	}
}

func TestProvider_UsesInjectedRunner(t *testing.T) {
	var calls []string
	p, err := New(Options{
		Getenv: x11Env,
		Run: func(_ context.Context, _ []string, name string, args ...string) ([]byte, error) {
			calls = append(calls, name+" "+strings.Join(args, " "))
			return []byte("Width: 5\nHeight: 6\nMap State: IsViewable\n"), nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, ok := p.Geometry(context.Background(), 0x3a00003); !ok {
		t.Fatal("expected geometry")
	}
	if len(calls) != 1 || calls[0] != "xwininfo -id 60817411" {
		t.Fatalf("unexpected invocations: %v", calls)
	}
}

func TestToolEnv(t *testing.T) {
	orig := readDirFn
	defer func() { readDirFn = orig }()
	readDirFn = func(string) ([]os.DirEntry, error) { return nil, errors.New("no sockets") }

	home := t.TempDir()
	xauth := filepath.Join(home, ".Xauthority")
	if err := os.WriteFile(xauth, []byte("cookie"), 0600); err != nil {
		t.Fatalf("write xauthority: %v", err)
	}

	env := toolEnv([]string{"HOME=" + home, "DISPLAY=:7"}, ":1", "")
	if got := envLookup(env, "DISPLAY"); got != ":7" {
		t.Fatalf("DISPLAY = %q, want :7", got)
	}
	if got := envLookup(env, "XAUTHORITY"); got != xauth {
		t.Fatalf("XAUTHORITY = %q, want %q", got, xauth)
	}

	env = toolEnv([]string{"HOME=" + home}, ":1", "/tmp/cfg-xauth")
	if got := envLookup(env, "DISPLAY"); got != ":1" {
		t.Fatalf("DISPLAY = %q, want :1", got)
	}
	if got := envLookup(env, "XAUTHORITY"); got != "/tmp/cfg-xauth" {
		t.Fatalf("XAUTHORITY = %q, want /tmp/cfg-xauth", got)
	}
}

func TestDetectDisplayFromSockets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"X0", "X2", "Xfoo", "other"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if got := detectDisplayFromSockets(dir); got != ":2" {
		t.Fatalf("detectDisplayFromSockets = %q, want :2", got)
	}
	if got := detectDisplayFromSockets(filepath.Join(dir, "missing")); got != "" {
		t.Fatalf("expected empty display for missing dir, got %q", got)
	}
}
