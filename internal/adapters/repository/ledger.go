package repository

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/okian/piggybank/internal/domain/model"
	"github.com/okian/piggybank/pkg/metrics"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// MemoryDSN keeps the ledger in memory for the process lifetime.
const MemoryDSN = ":memory:"

const (
	defaultBusyTimeout = 5 * time.Second
	defaultMaxRecent   = 500
)

const schema = `
CREATE TABLE IF NOT EXISTS emissions (
	id           TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	denomination TEXT NOT NULL,
	value        TEXT NOT NULL,
	gap          TEXT NOT NULL,
	delay_ms     INTEGER NOT NULL,
	x            REAL NOT NULL,
	ts           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_emissions_session ON emissions(session_id, ts);
`

// Ledger implements Store on SQLite.
type Ledger struct {
	db          *sqlx.DB
	busyTimeout time.Duration
	maxRecent   int
	closed      atomic.Bool
}

var _ Store = (*Ledger)(nil)

type emissionRow struct {
	ID           string          `db:"id"`
	SessionID    string          `db:"session_id"`
	Denomination string          `db:"denomination"`
	Value        decimal.Decimal `db:"value"`
	Gap          decimal.Decimal `db:"gap"`
	DelayMS      int64           `db:"delay_ms"`
	X            float64         `db:"x"`
	TS           int64           `db:"ts"`
}

type tallyRow struct {
	Denomination string          `db:"denomination"`
	Count        int             `db:"count"`
	Unit         decimal.Decimal `db:"unit"`
}

// Open opens or creates the ledger at dsn. MemoryDSN gives a private in-memory
// ledger.
func Open(ctx context.Context, dsn string, opts ...Option) (*Ledger, error) {
	l := &Ledger{busyTimeout: defaultBusyTimeout, maxRecent: defaultMaxRecent}
	for _, opt := range opts {
		opt(l)
	}
	if strings.TrimSpace(dsn) == "" {
		dsn = MemoryDSN
	}

	db, err := sqlx.Open("sqlite", l.connString(dsn))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w: %w", ErrLedger, err)
	}
	// Every pooled connection to ":memory:" would see its own database.
	db.SetMaxOpenConns(1)
	l.db = db

	if err := l.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger: %w: %w", ErrLedger, err)
	}
	return l, nil
}

func (l *Ledger) connString(dsn string) string {
	if dsn == MemoryDSN || strings.Contains(dsn, "?") {
		return dsn
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", dsn, l.busyTimeout.Milliseconds())
}

func (l *Ledger) migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) check() error {
	if l.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Record writes one emission.
func (l *Ledger) Record(ctx context.Context, e model.Emission) error { //nolint:gocritic // hugeParam: mirrors the worker contract
	if err := l.check(); err != nil {
		return err
	}
	_, err := l.db.NamedExecContext(ctx, `INSERT OR IGNORE INTO emissions
		(id, session_id, denomination, value, gap, delay_ms, x, ts)
		VALUES (:id, :session_id, :denomination, :value, :gap, :delay_ms, :x, :ts)`,
		emissionRow{
			ID:           e.ID,
			SessionID:    e.SessionID,
			Denomination: e.Denomination,
			Value:        e.Value,
			Gap:          e.Gap,
			DelayMS:      e.Delay.Milliseconds(),
			X:            e.X,
			TS:           e.TS.UnixNano(),
		})
	if err != nil {
		metrics.RecordErrorByComponent("ledger", "write")
		return fmt.Errorf("record %s: %w: %w", e.ID, ErrLedger, err)
	}
	metrics.RecordLedgerWrite()
	return nil
}

// Breakdown tallies a session's emissions.
func (l *Ledger) Breakdown(ctx context.Context, sessionID string) ([]model.Tally, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	defer observe(time.Now())

	var rows []tallyRow
	err := l.db.SelectContext(ctx, &rows, `SELECT denomination, COUNT(*) AS count, value AS unit
		FROM emissions WHERE session_id = ?
		GROUP BY denomination, value
		ORDER BY CAST(value AS REAL)`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("breakdown: %w: %w", ErrLedger, err)
	}

	out := make([]model.Tally, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Tally{
			Denomination: r.Denomination,
			Count:        r.Count,
			Total:        r.Unit.Mul(decimal.NewFromInt(int64(r.Count))),
		})
	}
	return out, nil
}

// Recent returns a session's latest emissions.
func (l *Ledger) Recent(ctx context.Context, sessionID string, limit int) ([]model.Emission, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > l.maxRecent {
		return nil, fmt.Errorf("limit %d outside 1..%d: %w", limit, l.maxRecent, ErrInvalidLimit)
	}
	defer observe(time.Now())

	var rows []emissionRow
	err := l.db.SelectContext(ctx, &rows, `SELECT id, session_id, denomination, value, gap, delay_ms, x, ts
		FROM emissions WHERE session_id = ?
		ORDER BY ts DESC, rowid DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent: %w: %w", ErrLedger, err)
	}

	out := make([]model.Emission, len(rows))
	for i, r := range rows {
		out[i] = model.Emission{
			ID:           r.ID,
			SessionID:    r.SessionID,
			Denomination: r.Denomination,
			Value:        r.Value,
			Gap:          r.Gap,
			Delay:        time.Duration(r.DelayMS) * time.Millisecond,
			X:            r.X,
			TS:           time.Unix(0, r.TS).UTC(),
		}
	}
	return out, nil
}

// Count returns the number of a session's emissions.
func (l *Ledger) Count(ctx context.Context, sessionID string) (int, error) {
	if err := l.check(); err != nil {
		return 0, err
	}
	var n int
	if err := l.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM emissions WHERE session_id = ?`, sessionID); err != nil {
		return 0, fmt.Errorf("count: %w: %w", ErrLedger, err)
	}
	return n, nil
}

// PurgeExcept deletes rows from every other session.
func (l *Ledger) PurgeExcept(ctx context.Context, sessionID string) (int64, error) {
	if err := l.check(); err != nil {
		return 0, err
	}
	res, err := l.db.ExecContext(ctx, `DELETE FROM emissions WHERE session_id <> ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("purge: %w: %w", ErrLedger, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w: %w", ErrLedger, err)
	}
	return n, nil
}

func observe(start time.Time) {
	metrics.RecordLedgerQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}
