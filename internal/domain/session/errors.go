package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrInvalidWage = errors.New("invalid hourly wage")
)
