// Package repository stores emitted coins in a SQLite ledger.
package repository

import (
	"context"

	"github.com/okian/piggybank/internal/domain/model"
)

// Store is the emission ledger.
type Store interface {
	// Record writes e. Recording the same emission id twice is a no-op.
	Record(ctx context.Context, e model.Emission) error

	// Breakdown tallies a session's emissions per denomination, smallest value
	// first.
	Breakdown(ctx context.Context, sessionID string) ([]model.Tally, error)

	// Recent returns up to limit of a session's latest emissions, newest first.
	Recent(ctx context.Context, sessionID string, limit int) ([]model.Emission, error)

	// Count returns the number of a session's emissions.
	Count(ctx context.Context, sessionID string) (int, error)

	// PurgeExcept deletes every row that does not belong to sessionID.
	PurgeExcept(ctx context.Context, sessionID string) (int64, error)

	Close() error
}
