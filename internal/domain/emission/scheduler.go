// Package emission turns the gap between expected and dispensed earnings into
// discrete coin drops.
package emission

import (
	"time"

	"github.com/google/uuid"
	"github.com/okian/piggybank/internal/domain/coin"
	"github.com/okian/piggybank/internal/domain/denomination"
	"github.com/okian/piggybank/internal/domain/session"
	"github.com/shopspring/decimal"
)

const (
	// DefaultMinDelay and DefaultMaxDelay bound the pause after each drop.
	DefaultMinDelay = 500 * time.Millisecond
	DefaultMaxDelay = 30 * time.Second
	// DefaultFirstDelay holds the first drop of a session back.
	DefaultFirstDelay = time.Second

	jitterLow  = 0.5
	jitterSpan = 1.0
)

// tier picks preferred with probability p once the gap reaches floor, else
// fallback.
type tier struct {
	floor     decimal.Decimal
	preferred int
	fallback  int
	p         float64
}

//nolint:gochecknoglobals // constant multiplier for earn time
var secondsPerHour = decimal.NewFromInt(3600)

//nolint:gochecknoglobals // static selection table, largest floor first
var tiers = []tier{
	{floor: decimal.RequireFromString("1.00"), preferred: denomination.Dollar, fallback: denomination.Quarter, p: 0.7},
	{floor: decimal.RequireFromString("0.25"), preferred: denomination.Quarter, fallback: denomination.Dime, p: 0.8},
	{floor: decimal.RequireFromString("0.10"), preferred: denomination.Dime, fallback: denomination.Nickel, p: 0.7},
	{floor: decimal.RequireFromString("0.05"), preferred: denomination.Nickel, fallback: denomination.Nickel, p: 1},
	{floor: decimal.RequireFromString("0.01"), preferred: denomination.Penny, fallback: denomination.Penny, p: 1},
}

// Drop is the outcome of a tick that emitted a coin.
type Drop struct {
	Coin  *coin.Coin
	Delay time.Duration
	Gap   decimal.Decimal // gap before the coin was booked
}

// Scheduler decides when and which denomination to emit.
type Scheduler struct {
	rng        RandomSource
	minDelay   time.Duration
	maxDelay   time.Duration
	firstDelay time.Duration
	newID      func() string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRandomSource replaces the random source.
func WithRandomSource(r RandomSource) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.rng = r
		}
	}
}

// WithDelayBounds sets the clamp applied to every delay.
func WithDelayBounds(lo, hi time.Duration) Option {
	return func(s *Scheduler) {
		if lo > 0 && hi >= lo {
			s.minDelay = lo
			s.maxDelay = hi
		}
	}
}

// WithFirstDelay sets how long a new session waits before its first drop.
func WithFirstDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.firstDelay = d
		}
	}
}

// WithIDGenerator sets the coin ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewScheduler creates a Scheduler with default pacing.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		rng:        NewSeededSource(0),
		minDelay:   DefaultMinDelay,
		maxDelay:   DefaultMaxDelay,
		firstDelay: DefaultFirstDelay,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FirstDelay is the hold-back applied to a new session.
func (s *Scheduler) FirstDelay() time.Duration { return s.firstDelay }

// Select picks a denomination for gap. It reports false when the gap is below
// the smallest denomination.
func (s *Scheduler) Select(gap decimal.Decimal) (*denomination.Denomination, bool) {
	for _, t := range tiers {
		if gap.LessThan(t.floor) {
			continue
		}
		if t.preferred == t.fallback || s.rng.Float64() < t.p {
			return denomination.Get(t.preferred), true
		}
		return denomination.Get(t.fallback), true
	}
	return nil, false
}

// Delay returns the pause after emitting d at wage: the time it takes to earn
// d, jittered by [0.5, 1.5) and clamped to the configured bounds.
func (s *Scheduler) Delay(d *denomination.Denomination, wage decimal.Decimal) time.Duration {
	if !wage.IsPositive() {
		return s.maxDelay
	}
	seconds := d.Value.Mul(secondsPerHour).Div(wage).InexactFloat64()
	factor := jitterLow + s.rng.Float64()*jitterSpan
	nanos := seconds * factor * float64(time.Second)

	// Clamp in float space so huge values never overflow Duration.
	if nanos < float64(s.minDelay) {
		return s.minDelay
	}
	if nanos > float64(s.maxDelay) {
		return s.maxDelay
	}
	return time.Duration(nanos)
}

// Spawn creates a coin of d at a random position along the top edge. The margin
// on each side is the coin's radius.
func (s *Scheduler) Spawn(d *denomination.Denomination, sceneWidth float64) *coin.Coin {
	margin := d.Radius
	x := sceneWidth / 2
	if span := sceneWidth - 2*margin; span > 0 {
		x = margin + s.rng.Float64()*span
	}
	y := -coin.SpawnLiftFactor * d.Radius
	vx := (s.rng.Float64()*2 - 1) * coin.SpawnDriftMax
	return coin.New(s.newID(), d, x, y, vx)
}

// Tick runs one scheduling step for sess at now. When the gap and the pacing
// allow it, a coin is spawned and booked against the session.
func (s *Scheduler) Tick(sess *session.Session, now time.Time, sceneWidth float64) (Drop, bool) {
	if sess == nil || !sess.Ready(now) {
		return Drop{}, false
	}
	gap := sess.Gap(now)
	d, ok := s.Select(gap)
	if !ok {
		return Drop{}, false
	}

	c := s.Spawn(d, sceneWidth)
	delay := s.Delay(d, sess.Wage)
	sess.Dispense(d.Value, now, delay)
	return Drop{Coin: c, Delay: delay, Gap: gap}, true
}
