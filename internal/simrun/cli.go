package simrun

import (
	"fmt"
	"os"

	"github.com/okian/piggybank/pkg/logger"
)

// SetupLogging initializes the global logger on stdout, or on logFile when
// one is given. Verbose runs log at debug level so every coin is printed.
func SetupLogging(logFile string, verbose bool) error {
	var opts []logger.Option
	if logFile != "" {
		opts = append(opts, logger.WithFile(logFile))
	}
	if err := logger.Init(opts...); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return fmt.Errorf("failed to set log level: %w", err)
		}
	}
	return nil
}

// ShowHelp prints usage information for the headless simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Piggybank Headless Simulator
============================

Runs the coin simulation on a synthetic clock and checks that coins keep
pace with the wage.

Usage:
  go run ./cmd/simulate [options]

Options:
  -wage string
        Hourly wage (default "36.00")
  -seconds float
        Simulated seconds to run (default 60)
  -fps int
        Frames per simulated second (default 60)
  -width int
        Scene width (default 800)
  -height int
        Scene height (default 600)
  -seed int
        Random seed, 0 seeds from the clock (default 0)
  -window int
        Collision partners checked per coin (default 50)
  -log string
        Log file (default: stdout)
  -verbose
        Log every coin
  -help
        Show this help message

Examples:
  # One simulated hour at minimum wage
  go run ./cmd/simulate -wage 7.25 -seconds 3600

  # Reproducible run with every coin logged
  go run ./cmd/simulate -wage 120 -seed 42 -verbose
`)
}
