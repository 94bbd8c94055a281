package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/tether/internal/attach"
	"github.com/1broseidon/tether/internal/config"
	"github.com/1broseidon/tether/internal/hotkeys"
	"github.com/1broseidon/tether/internal/ipc"
	"github.com/1broseidon/tether/internal/logging"
	"github.com/1broseidon/tether/internal/platform"
)

func runDaemon() {
	cfgPath, err := config.DefaultConfigPath()
	if err != nil {
		log.Fatalf("Failed to resolve config path: %v", err)
	}
	cfg, err := config.LoadFromPath(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded (poll interval: %s, overlay: %q)", cfg.PollInterval(), cfg.Overlay.Title)

	logger, level := logging.New(os.Stderr, cfg.LogLevel)

	color, err := cfg.OverlayColor()
	if err != nil {
		log.Fatalf("Invalid overlay color: %v", err)
	}
	backend, err := platform.NewLinuxBackendFromDisplay(cfg.Display, platform.OverlayOptions{
		Title:  cfg.Overlay.Title,
		Color:  color,
		Border: cfg.Overlay.Border,
	})
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer backend.Disconnect()

	log.Printf("Overlay window %s (%q)", platform.FormatWindowID(backend.OverlayID()), cfg.Overlay.Title)

	if err := backend.AssertAttributes(); err != nil {
		log.Printf("Warning: failed to set overlay attributes: %v", err)
	}
	if err := backend.Show(); err != nil {
		log.Printf("Warning: failed to show overlay: %v", err)
	}

	opts := attach.Options{
		Overlay:      backend,
		Screen:       backend,
		PollInterval: cfg.PollInterval(),
		Logger:       logger,
	}
	// Leave Provider as a nil interface when queries are unavailable.
	if provider, err := newProvider(cfg, logger); err != nil {
		log.Printf("Window queries disabled: %v", err)
	} else {
		opts.Provider = provider
	}

	engine, err := attach.New(opts)
	if err != nil {
		log.Fatalf("Failed to create attach engine: %v", err)
	}
	defer engine.Close()

	log.Println("tether daemon started successfully")

	applyConfig := func(newCfg *config.Config) {
		level.Set(logging.ParseLevel(newCfg.LogLevel))
		engine.SetPollInterval(newCfg.PollInterval())
		log.Printf("Config reloaded (poll interval: %s, log level: %s)", engine.PollInterval(), newCfg.LogLevel)
	}
	reload := func() error {
		newCfg, err := config.LoadFromPath(cfgPath)
		if err != nil {
			return err
		}
		applyConfig(newCfg)
		return nil
	}

	registerHotkeys(backend, engine, cfg.Hotkeys)

	ipcServer, err := ipc.NewServer(engine, reload)
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := ipcServer.Start(); err != nil {
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer ipcServer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.Watch(ctx, cfgPath, config.DefaultReloadDelay, applyConfig, func(err error) {
		log.Printf("Config reload failed: %v", err)
	}); err != nil {
		log.Printf("Warning: config hot reload disabled: %v", err)
	}

	if cfg.FollowOnStart {
		if _, err := engine.FollowFocused(true); err != nil {
			log.Printf("Warning: follow_on_start: %v", err)
		} else {
			log.Println("Following focused window")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigCh {
			switch sig {
			case syscall.SIGHUP:
				log.Println("Received SIGHUP, reloading config...")
				if err := reload(); err != nil {
					log.Printf("Config reload failed: %v", err)
				}
			case os.Interrupt, syscall.SIGTERM:
				log.Println("Shutting down tether daemon...")
				cancel()
				ipcServer.Stop()
				engine.Detach()
				engine.Close()
				backend.Disconnect()
				os.Exit(0)
			}
		}
	}()

	// Start event loop (blocking)
	log.Println("Entering event loop...")
	backend.EventLoop()
}

func registerHotkeys(backend *platform.LinuxBackend, engine *attach.Engine, keys config.HotkeyConfig) {
	if keys.FollowToggle == "" && keys.Detach == "" {
		return
	}
	handler, err := hotkeys.NewHandler(backend, engine)
	if err != nil {
		log.Printf("Warning: hotkeys disabled: %v", err)
		return
	}
	if keys.FollowToggle != "" {
		if err := handler.RegisterFollowToggle(keys.FollowToggle); err != nil {
			log.Printf("Warning: %v", err)
		} else {
			log.Printf("Follow hotkey registered: %s", keys.FollowToggle)
		}
	}
	if keys.Detach != "" {
		if err := handler.RegisterDetach(keys.Detach); err != nil {
			log.Printf("Warning: %v", err)
		} else {
			log.Printf("Detach hotkey registered: %s", keys.Detach)
		}
	}
}
