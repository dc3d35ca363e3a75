package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/okian/piggybank/internal/domain/model"
	"github.com/okian/piggybank/pkg/logger"
	"github.com/okian/piggybank/pkg/metrics"
)

// Player turns emissions into chimes. It satisfies the worker notifier.
type Player struct {
	rate   beep.SampleRate
	volume float64
	sink   func(beep.Streamer)
	closer func()
	logger logger.Logger

	mu     sync.Mutex
	closed bool
}

// Option configures a Player.
type Option func(*Player)

// WithVolume sets the chime volume in [0, 1].
func WithVolume(v float64) Option {
	return func(p *Player) {
		if v >= 0 {
			p.volume = v
		}
	}
}

// WithSampleRate sets the output sample rate.
func WithSampleRate(r beep.SampleRate) Option {
	return func(p *Player) {
		if r > 0 {
			p.rate = r
		}
	}
}

// WithSink replaces the speaker with fn. Tests use it to capture streamers.
func WithSink(fn func(beep.Streamer)) Option {
	return func(p *Player) {
		if fn != nil {
			p.sink = fn
			p.closer = func() {}
		}
	}
}

// NewPlayer creates a player. Without WithSink it opens the system speaker.
func NewPlayer(opts ...Option) (*Player, error) {
	p := &Player{
		rate:   DefaultSampleRate,
		volume: 0.5,
		logger: logger.Get().Named("audio"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sink == nil {
		if err := speaker.Init(p.rate, p.rate.N(100*time.Millisecond)); err != nil {
			return nil, fmt.Errorf("init speaker: %w: %w", ErrSpeaker, err)
		}
		p.sink = func(s beep.Streamer) { speaker.Play(s) }
		p.closer = speaker.Close
	}
	return p, nil
}

// Notify plays the chime for e's denomination.
func (p *Player) Notify(ctx context.Context, e model.Emission) { //nolint:gocritic // hugeParam: worker notifier contract
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	s, err := Chime(e.Denomination, p.rate, p.volume)
	if err != nil {
		p.logger.Warn(ctx, "no chime", logger.String("denomination", e.Denomination), logger.Error(err))
		return
	}
	p.sink(s)
	metrics.RecordChime(e.Denomination)
}

// Close releases the speaker. Later notifications are ignored.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.closer()
}
