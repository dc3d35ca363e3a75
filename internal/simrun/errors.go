package simrun

import "errors"

var (
	// ErrInvalidConfig is returned for run settings that cannot be simulated.
	ErrInvalidConfig = errors.New("invalid run config")
	// ErrOvershoot is returned when dispensed ran ahead of expected.
	ErrOvershoot = errors.New("dispensed ran ahead of expected")
)
