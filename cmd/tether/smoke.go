package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/tether/internal/logging"
	"github.com/1broseidon/tether/internal/platform"
	"github.com/1broseidon/tether/internal/smoke"
)

func runSmoke(args []string) int {
	fs := flag.NewFlagSet("smoke", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	window := fs.String("window", "active", "Target window id, or 'active'")
	cycles := fs.Int("cycles", 1, "Number of times to run the delta sequence")
	path := fs.String("path", "", "Config file path (default: ~/.config/tether/config.yaml)")
	jsonOut := fs.Bool("json", false, "Output the report as JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tether smoke [--window id|active] [--cycles N] [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Move the target window through a fixed sequence of geometry changes and")
		fmt.Fprintln(os.Stderr, "measure how quickly the overlay follows. The daemon must be running and")
		fmt.Fprintln(os.Stderr, "attached to the same window.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if code, ok := parseNoArgs(fs, args); !ok {
		return code
	}
	if *cycles < 1 {
		fmt.Fprintln(os.Stderr, "--cycles must be >= 1")
		return 2
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger, _ := logging.New(os.Stderr, cfg.LogLevel)

	provider, err := newProvider(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	client, err := platform.NewLinuxClient(cfg.Display)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer client.Disconnect()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	target, err := resolveWindowArg(ctx, *window, func(context.Context) (platform.WindowID, bool, error) {
		id, err := client.ActiveWindow()
		if err != nil {
			return 0, false, err
		}
		return id, id != 0, nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	overlay, err := client.FindWindowByTitle(cfg.Overlay.Title)
	if err != nil {
		fmt.Fprintf(os.Stderr, "overlay not found (is the daemon running?): %v\n", err)
		return 1
	}

	harness := smoke.New(smoke.Config{
		Target:   target,
		Overlay:  overlay,
		Cycles:   *cycles,
		Deadline: cfg.SmokeDeadline(),
		Sample:   cfg.SmokeSample(),
		Logger:   logger,
	}, client, provider)

	report, err := harness.Run(ctx)
	if report != nil {
		if *jsonOut {
			printJSON(os.Stdout, report)
		} else {
			writeSmokeReport(os.Stdout, report)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !report.Passed() {
		return 1
	}
	return 0
}

func writeSmokeReport(w io.Writer, r *smoke.Report) {
	for _, c := range r.Cycles {
		status := "ok"
		switch {
		case !c.Mapped:
			status = "MISSED (overlay not mapped)"
		case !c.Converged:
			status = "MISSED (no convergence)"
		}
		fmt.Fprintf(w, "cycle %d %-22s drift=%-4d max_drift=%-4d latency=%-8s %s\n",
			c.Index, c.Delta, c.Drift, c.MaxDrift, c.Latency.Round(time.Millisecond), status)
	}
	fmt.Fprintf(w, "max_drift:   %d px\n", r.MaxDrift)
	fmt.Fprintf(w, "max_latency: %s\n", r.MaxLatency.Round(time.Millisecond))
	fmt.Fprintf(w, "missed:      %d/%d\n", r.Missed, len(r.Cycles))
}
