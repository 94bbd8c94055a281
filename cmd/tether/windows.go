package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/1broseidon/tether/internal/attach"
	"github.com/1broseidon/tether/internal/config"
	"github.com/1broseidon/tether/internal/ipc"
	"github.com/1broseidon/tether/internal/platform"
	"github.com/1broseidon/tether/internal/wmquery"
)

var errNoActiveWindow = errors.New("no active window")

const columnPadding = 2

func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tether list [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "List top-level windows as seen by the daemon.")
	}
	if code, ok := parseNoArgs(fs, args); !ok {
		return code
	}

	windows, err := ipc.NewClient().ListWindows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		if windows == nil {
			windows = []wmquery.WindowRef{}
		}
		return printJSON(os.Stdout, windows)
	}

	fd := int(os.Stdout.Fd())
	width := 0
	tty := term.IsTerminal(fd)
	if tty {
		if w, _, err := term.GetSize(fd); err == nil {
			width = w
		}
	}
	writeWindowList(os.Stdout, windows, tty, width)
	return 0
}

// writeWindowList prints an aligned table for terminals and tab-separated
// rows otherwise. A positive width truncates long titles.
func writeWindowList(w io.Writer, windows []wmquery.WindowRef, table bool, width int) {
	if !table {
		for _, win := range windows {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
				platform.FormatWindowID(win.ID), win.Desktop, win.Host, win.Class, win.Title)
		}
		return
	}

	// Width of the columns before the title, as tabwriter will lay them out.
	desktopW, hostW, classW := len("DESKTOP"), len("HOST"), len("CLASS")
	for _, win := range windows {
		desktopW = max(desktopW, len(fmt.Sprint(win.Desktop)))
		hostW = max(hostW, len(win.Host))
		classW = max(classW, len(win.Class))
	}
	fixed := len("0x00000000") + desktopW + hostW + classW + 4*columnPadding

	tw := tabwriter.NewWriter(w, 0, 0, columnPadding, ' ', 0)
	fmt.Fprintln(tw, "ID\tDESKTOP\tHOST\tCLASS\tTITLE")
	for _, win := range windows {
		title := win.Title
		if width > 0 {
			title = truncate(title, width-fixed)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			platform.FormatWindowID(win.ID), win.Desktop, win.Host, win.Class, title)
	}
	tw.Flush()
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func runAttach(args []string) int {
	fs := flag.NewFlagSet("attach", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tether attach <window-id|active>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Attach the overlay to a window. Ids are hex (0x04200003) or decimal;")
		fmt.Fprintln(os.Stderr, "'active' resolves the currently focused window.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	id, err := resolveWindowArg(context.Background(), fs.Arg(0), activeWindowFromConfig)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ok, err := ipc.NewClient().Attach(id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "attach was not applied")
		return 1
	}
	fmt.Printf("attached to %s\n", platform.FormatWindowID(id))
	return 0
}

type activeFunc func(ctx context.Context) (platform.WindowID, bool, error)

// resolveWindowArg parses an explicit window id or resolves "active".
func resolveWindowArg(ctx context.Context, arg string, active activeFunc) (platform.WindowID, error) {
	if strings.EqualFold(strings.TrimSpace(arg), "active") {
		id, ok, err := active(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errNoActiveWindow
		}
		return id, nil
	}
	return platform.ParseWindowID(arg)
}

// activeWindowFromConfig asks the configured active-window tool directly;
// the daemon does not expose focus over IPC.
func activeWindowFromConfig(ctx context.Context) (platform.WindowID, bool, error) {
	cfg, err := config.Load()
	if err != nil {
		return 0, false, err
	}
	provider, err := newProvider(cfg, nil)
	if err != nil {
		return 0, false, err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.CommandTimeout()+time.Second)
	defer cancel()
	id, ok := provider.ActiveWindow(ctx)
	return id, ok, nil
}

func newProvider(cfg *config.Config, logger *slog.Logger) (*wmquery.Provider, error) {
	return wmquery.New(wmquery.Options{
		Tools:      cfg.Tools,
		Timeout:    cfg.CommandTimeout(),
		Display:    cfg.Display,
		XAuthority: cfg.XAuthority,
		Logger:     logger,
	})
}

func runDetach(args []string) int {
	fs := flag.NewFlagSet("detach", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tether detach")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Detach the overlay and restore its previous geometry.")
	}
	if code, ok := parseNoArgs(fs, args); !ok {
		return code
	}

	ok, err := ipc.NewClient().Detach()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if ok {
		fmt.Println("detached")
	} else {
		fmt.Println("already detached")
	}
	return 0
}

func runFollow(args []string) int {
	fs := flag.NewFlagSet("follow", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tether follow on|off")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Make the overlay follow whichever window has focus.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	enable, err := parseOnOff(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return 2
	}

	ok, err := ipc.NewClient().FollowFocused(enable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "follow mode was not changed")
		return 1
	}
	if enable {
		fmt.Println("following focused window")
	} else {
		fmt.Println("follow mode off")
	}
	return 0
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func runState(args []string) int {
	fs := flag.NewFlagSet("state", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tether state [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show the attachment mode, target and last observed geometry.")
	}
	if code, ok := parseNoArgs(fs, args); !ok {
		return code
	}

	state, err := ipc.NewClient().GetState()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *jsonOut {
		return printJSON(os.Stdout, state)
	}
	writeState(os.Stdout, *state)
	return 0
}

func writeState(w io.Writer, state attach.State) {
	target, geometry := "-", "-"
	if state.TargetID != nil {
		target = platform.FormatWindowID(*state.TargetID)
	}
	if state.LastGeometry != nil {
		geometry = state.LastGeometry.String()
	}
	fmt.Fprintf(w, "mode:          %s\n", state.Mode)
	fmt.Fprintf(w, "target:        %s\n", target)
	fmt.Fprintf(w, "last_geometry: %s\n", geometry)
}
