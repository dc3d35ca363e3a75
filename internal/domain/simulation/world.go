// Package simulation runs the per-frame loop: emission, coin physics, collision
// checks, terrain imprinting and rendering.
package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/piggybank/internal/domain/coin"
	"github.com/okian/piggybank/internal/domain/collision"
	"github.com/okian/piggybank/internal/domain/emission"
	"github.com/okian/piggybank/internal/domain/model"
	"github.com/okian/piggybank/internal/domain/session"
	"github.com/okian/piggybank/internal/domain/terrain"
	"github.com/okian/piggybank/pkg/logger"
	"github.com/okian/piggybank/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Sink receives emission events. Enqueue must not block.
type Sink interface {
	Enqueue(ctx context.Context, e model.Emission) bool
}

// Frame summarizes one Step.
type Frame struct {
	Drop     *model.Emission // set when a coin was emitted
	Contacts int
	Imprints int
}

// Stats are running totals since the world was created.
type Stats struct {
	Frames     int64
	Contacts   int64
	Imprints   int64
	Emitted    int64
	Dropped    int64 // emissions the sink refused
	Sessions   int64
	Rejections int64 // invalid session starts
}

// SessionView is the session part of a snapshot.
type SessionView struct {
	session.Info
	Expected  decimal.Decimal `json:"expected"`
	Dispensed decimal.Decimal `json:"dispensed"`
	Gap       decimal.Decimal `json:"gap"`
	Emitted   int             `json:"emitted"`
}

// Snapshot is a copy of the world state safe to hand to other goroutines.
type Snapshot struct {
	Width   int          `json:"width"`
	Height  int          `json:"height"`
	Overlay bool         `json:"overlay"`
	Settled int          `json:"settled"`
	Peak    float64      `json:"peak"`
	Coins   []CoinView   `json:"coins"`
	Session *SessionView `json:"session,omitempty"`
}

// World owns all mutable simulation state. It is not safe for concurrent use;
// one goroutine drives it.
type World struct {
	width, height int
	terrain       *terrain.Terrain
	coins         []*coin.Coin
	session       *session.Session
	scheduler     *emission.Scheduler
	window        int
	overlay       bool

	renderer Renderer
	sink     Sink
	logger   logger.Logger
	stats    Stats
}

// New creates an empty world for a width x height scene.
func New(width, height int, opts ...Option) (*World, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("scene %dx%d: %w", width, height, ErrInvalidScene)
	}
	t, err := terrain.New(width, height)
	if err != nil {
		return nil, fmt.Errorf("scene %dx%d: %w: %w", width, height, ErrInvalidScene, err)
	}

	w := &World{
		width:    width,
		height:   height,
		terrain:  t,
		window:   collision.DefaultWindow,
		renderer: nopRenderer{},
		logger:   logger.Get().Named("simulation"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.scheduler == nil {
		w.scheduler = emission.NewScheduler()
	}
	return w, nil
}

// StartSession validates wageInput and, only if it is valid, replaces the
// session, clears the pile, hides the overlay and resets the terrain.
func (w *World) StartSession(ctx context.Context, wageInput string, now time.Time) (session.Info, error) {
	wage, err := session.ParseWage(wageInput)
	if err != nil {
		w.stats.Rejections++
		metrics.RecordInvalidWage()
		w.logger.Warn(ctx, "session start rejected", logger.String("input", wageInput), logger.Error(err))
		return session.Info{}, err
	}

	w.coins = nil
	w.overlay = false
	w.terrain.Reset()
	w.session = session.New(wage, now, w.scheduler.FirstDelay())
	w.stats.Sessions++
	metrics.RecordSessionStarted()
	metrics.UpdateTotals(0, 0)
	metrics.UpdatePile(0, 0)

	info := w.session.Info()
	w.logger.Info(ctx, "session started", logger.String("session_id", info.ID), logger.String("wage", info.Wage))
	return info, nil
}

// Active reports whether a session is running.
func (w *World) Active() bool { return w.session != nil }

// Session returns the active session info.
func (w *World) Session() (session.Info, bool) {
	if w.session == nil {
		return session.Info{}, false
	}
	return w.session.Info(), true
}

// Step advances one frame at now.
func (w *World) Step(ctx context.Context, now time.Time) Frame {
	start := time.Now()
	var f Frame

	if drop, ok := w.scheduler.Tick(w.session, now, float64(w.width)); ok {
		w.coins = append(w.coins, drop.Coin)
		f.Drop = w.publish(ctx, drop, now)
	}

	settled := 0
	for i, c := range w.coins {
		c.Advance(w.terrain, float64(w.width))
		f.Contacts += collision.ResolveWindow(w.coins, i, w.window)
	}
	// Imprint after the collision pass so a coin disturbed this frame is not
	// written into the terrain.
	for _, c := range w.coins {
		if !c.Settled() {
			continue
		}
		settled++
		if !c.Imprinted() {
			w.terrain.Imprint(c)
			c.MarkImprinted()
			f.Imprints++
			metrics.RecordTerrainImprint()
		}
	}

	w.render(now)

	w.stats.Frames++
	w.stats.Contacts += int64(f.Contacts)
	w.stats.Imprints += int64(f.Imprints)
	metrics.RecordCollisions(f.Contacts)
	metrics.UpdatePile(len(w.coins), settled)
	if w.session != nil {
		metrics.UpdateTotals(w.session.Dispensed.InexactFloat64(), w.session.Expected(now).InexactFloat64())
	}
	metrics.RecordFrameDuration(float64(time.Since(start).Microseconds()) / 1000)
	return f
}

func (w *World) publish(ctx context.Context, drop emission.Drop, now time.Time) *model.Emission {
	d := drop.Coin.Denomination
	e := model.Emission{
		ID:           drop.Coin.ID,
		SessionID:    w.session.ID,
		Denomination: d.Name,
		Value:        d.Value,
		Gap:          drop.Gap,
		Delay:        drop.Delay,
		X:            drop.Coin.X,
		TS:           now,
	}
	w.stats.Emitted++
	metrics.RecordCoinEmitted(d.Name)
	metrics.RecordEmissionDelay(drop.Delay.Seconds())

	if w.sink != nil && !w.sink.Enqueue(ctx, e) {
		w.stats.Dropped++
		w.logger.Debug(ctx, "emission not queued", logger.String("emission_id", e.ID))
	}
	return &e
}

func (w *World) render(now time.Time) {
	w.renderer.Clear()
	for _, c := range w.coins {
		w.renderer.DrawCoin(view(c))
	}
	w.renderer.DrawOverlay(w.overlayAt(now))
	w.renderer.Show()
}

func (w *World) overlayAt(now time.Time) Overlay {
	o := Overlay{Active: w.session != nil, Visible: w.overlay, Coins: len(w.coins)}
	if w.session != nil {
		o.Wage = w.session.Wage
		o.Expected = w.session.Expected(now)
		o.Dispensed = w.session.Dispensed
		o.Gap = o.Expected.Sub(o.Dispensed)
	}
	return o
}

// Resize changes the scene size. Coins keep their positions; falling coins are
// pulled back inside by the walls, settled ones stay until disturbed.
func (w *World) Resize(ctx context.Context, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize %dx%d: %w", width, height, ErrInvalidScene)
	}
	if err := w.terrain.Resize(width, height); err != nil {
		return fmt.Errorf("resize %dx%d: %w: %w", width, height, ErrInvalidScene, err)
	}
	w.width, w.height = width, height
	w.logger.Info(ctx, "scene resized", logger.Int("width", width), logger.Int("height", height))
	return nil
}

// ToggleOverlay flips the stats overlay while a session is active. It returns
// the new overlay state and whether a session is active.
func (w *World) ToggleOverlay() (visible, active bool) {
	if w.session == nil {
		return w.overlay, false
	}
	w.overlay = !w.overlay
	return w.overlay, true
}

// Size returns the scene size.
func (w *World) Size() (width, height int) { return w.width, w.height }

// Terrain exposes the height map for inspection.
func (w *World) Terrain() *terrain.Terrain { return w.terrain }

// Coins returns the number of coins in the pile.
func (w *World) Coins() int { return len(w.coins) }

// Stats returns running totals.
func (w *World) Stats() Stats { return w.stats }

// Overlay returns the overlay as rendered at now.
func (w *World) Overlay(now time.Time) Overlay { return w.overlayAt(now) }

// Snapshot copies the state at now.
func (w *World) Snapshot(now time.Time) Snapshot {
	s := Snapshot{
		Width:   w.width,
		Height:  w.height,
		Overlay: w.overlay,
		Peak:    w.terrain.Peak(),
		Coins:   make([]CoinView, len(w.coins)),
	}
	for i, c := range w.coins {
		s.Coins[i] = view(c)
		if c.Settled() {
			s.Settled++
		}
	}
	if w.session != nil {
		expected := w.session.Expected(now)
		s.Session = &SessionView{
			Info:      w.session.Info(),
			Expected:  expected,
			Dispensed: w.session.Dispensed,
			Gap:       expected.Sub(w.session.Dispensed),
			Emitted:   w.session.Emitted,
		}
	}
	return s
}

func view(c *coin.Coin) CoinView {
	return CoinView{
		ID:           c.ID,
		X:            c.X,
		Y:            c.Y,
		Radius:       c.Radius(),
		Denomination: c.Denomination.Name,
		Color:        c.Denomination.Color,
		Settled:      c.Settled(),
	}
}
