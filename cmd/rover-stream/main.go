// Command rover-stream streams drive frames to the rover without a UI. Sticks
// come from a gamepad, or stay centered.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tebeka/atexit"

	"github.com/gwillem/rover/pkg/input"
	"github.com/gwillem/rover/pkg/rover"
	"github.com/gwillem/rover/pkg/teleop"
	"github.com/gwillem/rover/pkg/transport"
)

func main() {
	var (
		configFile = flag.String("config", rover.DefaultConfigFile, "Configuration file (optional)")
		host       = flag.String("host", "", "Rover host (overrides config)")
		port       = flag.Int("port", 0, "Rover port (overrides config)")
		speed      = flag.Int("speed", 0, "Speed multiplier 1-10 (overrides config)")
		joystick   = flag.Bool("joystick", false, "Read sticks from the first gamepad")
		record     = flag.String("record", "", "Record sent frames to this pcap file")
		verbose    = flag.Bool("v", false, "Log every frame sent")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := rover.LoadConfigFrom(*configFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = rover.DefaultConfig()
	case err != nil:
		fmt.Fprintf(os.Stderr, "Cannot load %s: %v\n", *configFile, err)
		atexit.Exit(1)
	default:
		fmt.Printf("Loaded configuration from %s\n", *configFile)
	}

	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *speed != 0 {
		cfg.Speed = *speed
	}
	if *joystick {
		cfg.Joystick.Enabled = true
		cfg.Joystick.Index = -1
	}
	if *record != "" {
		cfg.Record = *record
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		atexit.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tap transport.Tap
	var recorder *transport.Recorder
	if cfg.Record != "" {
		recorder, err = transport.CreateRecorder(cfg.Record, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			atexit.Exit(1)
		}
		tap = recorder
	}

	ctrl, err := teleop.NewController(teleop.Config{
		Inputs:   teleop.NewInputs(cfg),
		Opener:   transport.NewOpener(cfg, tap, logger),
		Interval: cfg.Interval(),
		BindPort: cfg.BindPort,
		Logger:   logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create controller: %v\n", err)
		atexit.Exit(1)
	}

	atexit.Register(func() {
		if err := ctrl.Close(); err != nil {
			logger.Warn("closing session", "error", err)
		}
		if recorder != nil {
			logger.Info("recording closed", "file", cfg.Record, "packets", recorder.Packets())
			recorder.Close()
		}
	})

	if cfg.Joystick.Enabled {
		pad, err := input.Open(cfg.Joystick, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Gamepad: %v\n", err)
			atexit.Exit(1)
		}
		fmt.Printf("Using gamepad %s\n", pad.Name())
		go func() {
			defer pad.Close()
			if err := pad.Run(ctx, ctrl.Inputs()); err != nil {
				logger.Warn("gamepad lost, sticks centered", "error", err)
			}
		}()
	}

	if err := ctrl.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot start streaming: %v\n", err)
		atexit.Exit(1)
	}
	fmt.Printf("Streaming to %s:%d at %d Hz, Ctrl-C to stop\n", cfg.Host, cfg.Port, ctrl.Hz())

	report(ctx, ctrl)
	fmt.Println()
	fmt.Printf("Stopped after %d ticks\n", ctrl.Ticks())
	atexit.Exit(0)
}

// report prints the latest frame once per second until ctx is done.
func report(ctx context.Context, ctrl *teleop.Controller) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var last teleop.State
	var failed int
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-ctrl.States():
			last = st
			if st.Error != nil {
				failed++
			}
		case msg := <-ctrl.Logs():
			fmt.Println(msg)
		case <-ticker.C:
			fmt.Printf("\rtick %6d  %s  failed %d   ", last.Tick, last.Frame, failed)
		}
	}
}
