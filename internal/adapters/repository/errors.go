package repository

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrLedger       = errors.New("ledger failure")
	ErrInvalidLimit = errors.New("invalid ledger limit")
	ErrClosed       = errors.New("ledger closed")
)
