package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/piggybank/internal/simrun"
)

// Default configuration constants.
const (
	defaultWage     = "36.00"
	defaultSeconds  = 60
	defaultFPS      = 60
	defaultWidth    = 800
	defaultHeight   = 600
	defaultWindow   = 50
)

func main() {
	var (
		wage    = flag.String("wage", defaultWage, "Hourly wage")
		seconds = flag.Float64("seconds", defaultSeconds, "Simulated seconds to run")
		fps     = flag.Int("fps", defaultFPS, "Frames per simulated second")
		width   = flag.Int("width", defaultWidth, "Scene width")
		height  = flag.Int("height", defaultHeight, "Scene height")
		seed    = flag.Int64("seed", 0, "Random seed, 0 seeds from the clock")
		window  = flag.Int("window", defaultWindow, "Collision partners checked per coin")
		logFile = flag.String("log", "", "Log file (default: stdout)")
		verbose = flag.Bool("verbose", false, "Log every coin")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simrun.ShowHelp()
		return
	}

	if err := simrun.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := &simrun.Config{
		Wage:     *wage,
		Duration: time.Duration(*seconds * float64(time.Second)),
		FPS:      *fps,
		Width:    *width,
		Height:   *height,
		Seed:     *seed,
		Window:   *window,
		Verbose:  *verbose,
	}

	if _, err := simrun.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}
