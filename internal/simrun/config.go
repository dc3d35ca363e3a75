package simrun

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds configuration for a headless run.
type Config struct {
	Wage     string        // hourly wage as typed by the user
	Duration time.Duration // simulated time to run
	FPS      int           // frames per simulated second
	Width    int           // scene width
	Height   int           // scene height
	Seed     int64         // random seed; 0 seeds from the clock
	Window   int           // collision partners per coin
	Verbose  bool          // log every coin
}

func (c *Config) validate() error {
	switch {
	case c.Duration <= 0:
		return fmt.Errorf("duration %s must be positive: %w", c.Duration, ErrInvalidConfig)
	case c.FPS <= 0:
		return fmt.Errorf("fps %d must be positive: %w", c.FPS, ErrInvalidConfig)
	case c.Window < 0:
		return fmt.Errorf("window %d must not be negative: %w", c.Window, ErrInvalidConfig)
	}
	return nil
}

// Stats holds the outcome of a run.
type Stats struct {
	Frames        int
	Emitted       int
	Coins         int
	Settled       int
	Contacts      int64
	Imprints      int64
	Peak          float64
	Dispensed     decimal.Decimal
	Expected      decimal.Decimal
	MaxLead       decimal.Decimal // largest dispensed-minus-expected seen on any frame
	Denominations map[string]int
	Elapsed       time.Duration // wall time spent
}
