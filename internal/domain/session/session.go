// Package session holds the earnings state of one wage session.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//nolint:gochecknoglobals // constant divisor for expected earnings
var nanosPerHour = decimal.NewFromInt(int64(time.Hour))

// Session tracks what has been earned versus dispensed since it started.
// It is owned by the simulation goroutine.
type Session struct {
	ID           string
	Wage         decimal.Decimal // currency per hour
	StartedAt    time.Time
	Dispensed    decimal.Decimal // sum of every emitted coin's value
	NextEmission time.Time       // no emission before this instant
	LastEmission time.Time
	Emitted      int
}

// Info is the read-only view of a session handed to callers.
type Info struct {
	ID        string    `json:"id"`
	Wage      string    `json:"wage"`
	StartedAt time.Time `json:"started_at"`
}

// ParseWage validates user input for the hourly wage. Only positive numbers are
// accepted.
func ParseWage(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("empty wage: %w", ErrInvalidWage)
	}
	wage, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("wage %q is not a number: %w", trimmed, ErrInvalidWage)
	}
	if !wage.IsPositive() {
		return decimal.Zero, fmt.Errorf("wage %s must be positive: %w", wage, ErrInvalidWage)
	}
	return wage, nil
}

// New starts a session at now. The first emission is allowed after firstDelay.
func New(wage decimal.Decimal, now time.Time, firstDelay time.Duration) *Session {
	return &Session{
		ID:           uuid.NewString(),
		Wage:         wage,
		StartedAt:    now,
		Dispensed:    decimal.Zero,
		NextEmission: now.Add(firstDelay),
		LastEmission: now,
	}
}

// Info returns the session summary.
func (s *Session) Info() Info {
	return Info{ID: s.ID, Wage: s.Wage.StringFixed(2), StartedAt: s.StartedAt}
}

// Elapsed returns the time since start, never negative.
func (s *Session) Elapsed(now time.Time) time.Duration {
	d := now.Sub(s.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Expected returns wage x elapsed hours.
func (s *Session) Expected(now time.Time) decimal.Decimal {
	elapsed := decimal.NewFromInt(int64(s.Elapsed(now)))
	return s.Wage.Mul(elapsed).Div(nanosPerHour)
}

// Gap returns expected minus dispensed. It is negative when ahead.
func (s *Session) Gap(now time.Time) decimal.Decimal {
	return s.Expected(now).Sub(s.Dispensed)
}

// Ready reports whether the pacing delay has passed.
func (s *Session) Ready(now time.Time) bool {
	return !now.Before(s.NextEmission)
}

// Dispense books an emitted coin and schedules the next allowed emission.
func (s *Session) Dispense(value decimal.Decimal, now time.Time, delay time.Duration) {
	s.Dispensed = s.Dispensed.Add(value)
	s.LastEmission = now
	s.NextEmission = now.Add(delay)
	s.Emitted++
}
