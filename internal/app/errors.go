package service

import "errors"

var (
	// ErrNotStarted is returned by commands sent before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrNoSession is returned when an operation needs a running session.
	ErrNoSession = errors.New("no active session")
)
