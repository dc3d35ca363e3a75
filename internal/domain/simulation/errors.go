package simulation

import "errors"

// Sentinel kinds for simulation errors.
var (
	ErrInvalidScene = errors.New("invalid scene size")
)
