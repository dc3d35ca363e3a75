package simrun

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/okian/piggybank/internal/domain/session"
	"github.com/okian/piggybank/pkg/logger"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init(logger.WithWriter(io.Discard))
}

func baseConfig() *Config {
	return &Config{
		Wage:     "36.00",
		Duration: time.Minute,
		FPS:      60,
		Width:    400,
		Height:   300,
		Seed:     5,
		Window:   50,
	}
}

func TestRun(t *testing.T) {
	Convey("Given a one minute run at $36/hr", t, func() {
		cfg := baseConfig()

		Convey("When it runs", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then it keeps pace with the wage", func() {
				So(err, ShouldBeNil)
				So(stats.Frames, ShouldEqual, 3601)
				So(stats.Expected.Equal(decimal.RequireFromString("0.6")), ShouldBeTrue)
				So(stats.Dispensed.GreaterThanOrEqual(decimal.RequireFromString("0.30")), ShouldBeTrue)
				So(stats.Dispensed.LessThanOrEqual(decimal.RequireFromString("0.90")), ShouldBeTrue)
				So(stats.MaxLead.IsZero(), ShouldBeTrue)
			})

			Convey("Then every emitted coin is counted once", func() {
				So(err, ShouldBeNil)
				So(stats.Coins, ShouldEqual, stats.Emitted)
				total := 0
				for _, n := range stats.Denominations {
					total += n
				}
				So(total, ShouldEqual, stats.Emitted)
				So(stats.Settled, ShouldBeLessThanOrEqualTo, stats.Coins)
				So(stats.Peak, ShouldBeLessThanOrEqualTo, 300)
			})
		})

		Convey("When the same seed runs twice", func() {
			cfg.Duration = 10 * time.Second
			cfg.Wage = "360"
			a, errA := Run(context.Background(), cfg)
			b, errB := Run(context.Background(), cfg)

			Convey("Then the outcomes match", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a.Dispensed.Equal(b.Dispensed), ShouldBeTrue)
				So(a.Denominations, ShouldResemble, b.Denominations)
				So(a.Settled, ShouldEqual, b.Settled)
			})
		})
	})

	Convey("Given invalid settings", t, func() {
		Convey("When the wage is not positive", func() {
			cfg := baseConfig()
			cfg.Wage = "0"
			_, err := Run(context.Background(), cfg)
			So(errors.Is(err, session.ErrInvalidWage), ShouldBeTrue)
		})

		Convey("When the duration, fps or window is out of range", func() {
			for _, mutate := range []func(*Config){
				func(c *Config) { c.Duration = 0 },
				func(c *Config) { c.FPS = 0 },
				func(c *Config) { c.Window = -1 },
			} {
				cfg := baseConfig()
				mutate(cfg)
				_, err := Run(context.Background(), cfg)
				So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
			}
		})

		Convey("When the scene is empty", func() {
			cfg := baseConfig()
			cfg.Width = 0
			_, err := Run(context.Background(), cfg)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a canceled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, baseConfig())
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}

func TestVerifyPacing(t *testing.T) {
	Convey("Given run statistics", t, func() {
		Convey("When dispensed never passed expected", func() {
			So(verifyPacing(&Stats{MaxLead: decimal.Zero}), ShouldBeNil)
		})

		Convey("When dispensed led by a single penny", func() {
			err := verifyPacing(&Stats{MaxLead: decimal.RequireFromString("0.01")})
			So(errors.Is(err, ErrOvershoot), ShouldBeTrue)
		})
	})

	Convey("Given a rich wage over a long run", t, func() {
		cfg := baseConfig()
		cfg.Wage = "1000000"
		cfg.Duration = 30 * time.Second

		Convey("When it runs", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then no coin ever overshoots the earnings", func() {
				So(err, ShouldBeNil)
				So(stats.MaxLead.IsZero(), ShouldBeTrue)
				So(stats.Denominations["dollar"], ShouldBeGreaterThan, 0)
			})
		})
	})
}
