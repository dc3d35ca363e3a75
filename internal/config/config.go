// Package config defines service configuration and its loading.
package config

import (
	"fmt"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile diverts logs to a file. Terminal mode needs this because the
	// screen owns stdout.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// SceneWidth and SceneHeight size the scene in scene units. The terminal
	// view replaces them with the real terminal size on its first resize.
	SceneWidth  int `koanf:"scene_width"`
	SceneHeight int `koanf:"scene_height"`

	// FrameRate is the number of simulation steps per second.
	FrameRate int `koanf:"frame_rate"`

	// CollisionWindow bounds how many later coins each coin is checked against.
	CollisionWindow int `koanf:"collision_window"`

	// FirstDropDelayMS holds back the first coin of a session.
	FirstDropDelayMS int `koanf:"first_drop_delay_ms"`

	// Seed fixes the random source; 0 seeds from the clock.
	Seed int64 `koanf:"seed"`

	// EventQueueSize bounds the in-memory emission queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ledger workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many emission IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// LedgerDSN is the SQLite database; ":memory:" keeps it in process.
	LedgerDSN string `koanf:"ledger_dsn"`

	AudioEnabled bool    `koanf:"audio_enabled"`
	AudioVolume  float64 `koanf:"audio_volume"`

	// TerminalEnabled draws the pile in the terminal.
	TerminalEnabled bool `koanf:"terminal_enabled"`

	// CellWidth and CellHeight are the scene units covered by one terminal cell.
	CellWidth  float64 `koanf:"cell_width"`
	CellHeight float64 `koanf:"cell_height"`

	// Wage starts a session at boot when set.
	Wage string `koanf:"wage"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		SceneWidth:       800,
		SceneHeight:      600,
		FrameRate:        60,
		CollisionWindow:  50,
		FirstDropDelayMS: 1000,
		EventQueueSize:   1024,
		WorkerCount:      2,
		DedupeSize:       4096,
		LedgerDSN:        ":memory:",
		AudioVolume:      0.5,
		CellWidth:        8,
		CellHeight:       16,
	}
}

// FrameInterval is the time between simulation steps.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

// FirstDropDelay is FirstDropDelayMS as a duration.
func (c *Config) FirstDropDelay() time.Duration {
	return time.Duration(c.FirstDropDelayMS) * time.Millisecond
}

// Validate checks the values the service cannot run without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("addr must not be empty: %w", ErrInvalidConfig)
	case c.SceneWidth <= 0 || c.SceneHeight <= 0:
		return fmt.Errorf("scene %dx%d must be positive: %w", c.SceneWidth, c.SceneHeight, ErrInvalidConfig)
	case c.FrameRate <= 0:
		return fmt.Errorf("frame_rate %d must be positive: %w", c.FrameRate, ErrInvalidConfig)
	case c.CollisionWindow < 0:
		return fmt.Errorf("collision_window %d must not be negative: %w", c.CollisionWindow, ErrInvalidConfig)
	case c.FirstDropDelayMS < 0:
		return fmt.Errorf("first_drop_delay_ms %d must not be negative: %w", c.FirstDropDelayMS, ErrInvalidConfig)
	case c.AudioVolume < 0 || c.AudioVolume > 1:
		return fmt.Errorf("audio_volume %v must be within [0, 1]: %w", c.AudioVolume, ErrInvalidConfig)
	case c.CellWidth <= 0 || c.CellHeight <= 0:
		return fmt.Errorf("cell size %vx%v must be positive: %w", c.CellWidth, c.CellHeight, ErrInvalidConfig)
	}
	return nil
}
