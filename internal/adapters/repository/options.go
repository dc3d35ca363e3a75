package repository

import "time"

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithBusyTimeout sets how long a file-backed ledger waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.busyTimeout = d
		}
	}
}

// WithMaxRecent caps the limit accepted by Recent.
func WithMaxRecent(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxRecent = n
		}
	}
}
