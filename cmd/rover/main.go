package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/tebeka/atexit"

	"github.com/gwillem/rover/pkg/rover"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"rover.json" description:"Configuration file"`
	LogFile string `long:"log-file" default:"rover.log" description:"Write logs to this file"`
	Verbose bool   `short:"v" long:"verbose" description:"Log every frame sent"`

	Setup SetupCommand `command:"setup" description:"Configure the rover address, link and inputs"`
	Drive DriveCommand `command:"drive" alias:"teleop" description:"Drive the rover from the terminal"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Rover - teleoperation client for the differential drive rover"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				atexit.Exit(0)
			}
		}
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// setupLogging sends slog output to the log file so it never garbles the TUI.
func setupLogging() *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open log file %s: %v\n", opts.LogFile, err)
		atexit.Exit(1)
	}
	atexit.Register(func() { f.Close() })

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads the configuration file, falling back to defaults when it
// does not exist yet.
func loadConfig() (*rover.Config, bool) {
	if _, err := os.Stat(opts.Config); err != nil {
		return rover.DefaultConfig(), false
	}
	cfg, err := rover.LoadConfigFrom(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", opts.Config, err)
		atexit.Exit(1)
	}
	return cfg, true
}
