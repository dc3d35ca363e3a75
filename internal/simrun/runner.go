// Package simrun drives the simulation on a synthetic clock for pacing checks.
package simrun

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/piggybank/internal/domain/emission"
	"github.com/okian/piggybank/internal/domain/model"
	"github.com/okian/piggybank/internal/domain/simulation"
	"github.com/okian/piggybank/pkg/logger"
	"github.com/shopspring/decimal"
)

// epoch anchors the synthetic clock so runs are reproducible.
//
//nolint:gochecknoglobals // fixed reference time
var epoch = time.Date(2000, time.January, 1, 9, 0, 0, 0, time.UTC)

// counter is the run's emission sink.
type counter struct {
	log     logger.Logger
	verbose bool
	byName  map[string]int
}

func (c *counter) Enqueue(ctx context.Context, e model.Emission) bool { //nolint:gocritic // hugeParam: sink contract
	c.byName[e.Denomination]++
	if c.verbose {
		c.log.Debug(ctx, "coin",
			logger.String("denomination", e.Denomination),
			logger.String("gap", e.Gap.StringFixed(2)),
			logger.Duration("delay", e.Delay),
			logger.Float64("x", e.X),
			logger.Duration("at", e.TS.Sub(epoch)))
	}
	return true
}

// Run executes the simulation for config.Duration of simulated time without
// sleeping and verifies its pacing.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("simrun")
	started := time.Now()

	log.Info(ctx, "starting headless run",
		logger.String("wage", config.Wage),
		logger.Duration("duration", config.Duration),
		logger.Int("fps", config.FPS),
		logger.Int("width", config.Width),
		logger.Int("height", config.Height),
		logger.Int("window", config.Window),
		logger.Any("seed", config.Seed))

	sink := &counter{log: log, verbose: config.Verbose, byName: map[string]int{}}
	scheduler := emission.NewScheduler(emission.WithRandomSource(emission.NewSeededSource(config.Seed)))
	world, err := simulation.New(config.Width, config.Height,
		simulation.WithScheduler(scheduler),
		simulation.WithCollisionWindow(config.Window),
		simulation.WithSink(sink),
	)
	if err != nil {
		return nil, fmt.Errorf("create world: %w", err)
	}
	if _, err := world.StartSession(ctx, config.Wage, epoch); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	stats := &Stats{MaxLead: decimal.Zero, Denominations: sink.byName}
	frames := int(config.Duration.Seconds() * float64(config.FPS))
	for i := 0; i <= frames; i++ {
		if i%config.FPS == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("run interrupted at frame %d: %w", i, err)
			}
		}
		now := epoch.Add(time.Duration(i) * time.Second / time.Duration(config.FPS))
		world.Step(ctx, now)

		o := world.Overlay(now)
		if lead := o.Dispensed.Sub(o.Expected); lead.GreaterThan(stats.MaxLead) {
			stats.MaxLead = lead
		}
		stats.Frames++
	}

	end := epoch.Add(time.Duration(frames) * time.Second / time.Duration(config.FPS))
	snap := world.Snapshot(end)
	ws := world.Stats()
	stats.Emitted = snap.Session.Emitted
	stats.Coins = len(snap.Coins)
	stats.Settled = snap.Settled
	stats.Peak = snap.Peak
	stats.Contacts = ws.Contacts
	stats.Imprints = ws.Imprints
	stats.Dispensed = snap.Session.Dispensed
	stats.Expected = snap.Session.Expected
	stats.Elapsed = time.Since(started)

	displayFinalStats(ctx, log, stats)

	if err := verifyPacing(stats); err != nil {
		return stats, err
	}
	log.Info(ctx, "run completed")
	return stats, nil
}

// displayFinalStats logs the outcome of a run.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "final statistics",
		logger.Int("frames", stats.Frames),
		logger.Int("emitted", stats.Emitted),
		logger.Int("coins", stats.Coins),
		logger.Int("settled", stats.Settled),
		logger.Any("contacts", stats.Contacts),
		logger.Any("imprints", stats.Imprints),
		logger.Float64("peak", stats.Peak),
		logger.String("dispensed", stats.Dispensed.StringFixed(2)),
		logger.String("expected", stats.Expected.StringFixed(2)),
		logger.String("maxLead", stats.MaxLead.StringFixed(2)),
		logger.Any("denominations", stats.Denominations),
		logger.Duration("elapsed", stats.Elapsed))
}
