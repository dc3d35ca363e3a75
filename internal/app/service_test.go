package service_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	service "github.com/okian/piggybank/internal/app"
	"github.com/okian/piggybank/internal/domain/session"
	"github.com/okian/piggybank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report stopped with its configuration", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueSize"], ShouldEqual, 1024)
			So(stats["frameRate"], ShouldEqual, 60)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(4),
			service.WithQueueSize(64),
			service.WithDedupeSize(128),
			service.WithFrameRate(30),
			service.WithFrameRate(-1),
		)

		Convey("Then valid options apply and invalid ones are ignored", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 4)
			So(stats["queueSize"], ShouldEqual, 64)
			So(stats["dedupeSize"], ShouldEqual, 128)
			So(stats["frameRate"], ShouldEqual, 30)
		})
	})
}

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then every command reports it", func() {
			_, err := svc.StartSession(ctx, "36")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(errors.Is(svc.Resize(ctx, 10, 10), service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.ToggleOverlay(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Snapshot(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Breakdown(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then Stop is a no-op", func() {
			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithFrameRate(120))
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When starting the service twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["queueLength"], ShouldEqual, 0)
				So(stats["coins"], ShouldEqual, 0)
			})

			Convey("And stopping marks it stopped and rejects commands", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
				_, err := svc.Snapshot(ctx)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})

		Convey("When the scene size is configured", func() {
			svc := service.New(service.WithSceneSize(320, 240))
			defer svc.Stop()
			So(svc.Start(ctx), ShouldBeNil)

			snap, err := svc.Snapshot(ctx)

			Convey("Then the snapshot has that size and no session", func() {
				So(err, ShouldBeNil)
				So(snap.Width, ShouldEqual, 320)
				So(snap.Height, ShouldEqual, 240)
				So(snap.Session, ShouldBeNil)
			})
		})
	})
}

func TestService_Commands(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithFrameRate(120))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When toggling without a session", func() {
			visible, err := svc.ToggleOverlay(ctx)

			Convey("Then nothing changes", func() {
				So(visible, ShouldBeFalse)
				So(errors.Is(err, service.ErrNoSession), ShouldBeTrue)
				_, err := svc.Breakdown(ctx)
				So(errors.Is(err, service.ErrNoSession), ShouldBeTrue)
			})
		})

		Convey("When starting with an invalid wage", func() {
			_, err := svc.StartSession(ctx, "-5")

			Convey("Then it is rejected and no session exists", func() {
				So(errors.Is(err, session.ErrInvalidWage), ShouldBeTrue)
				snap, err := svc.Snapshot(ctx)
				So(err, ShouldBeNil)
				So(snap.Session, ShouldBeNil)
				So(svc.GetStats()["rejections"], ShouldEqual, int64(1))
			})
		})

		Convey("When a session is running", func() {
			info, err := svc.StartSession(ctx, "36")
			So(err, ShouldBeNil)

			Convey("Then the overlay toggles", func() {
				visible, err := svc.ToggleOverlay(ctx)
				So(err, ShouldBeNil)
				So(visible, ShouldBeTrue)
				visible, err = svc.ToggleOverlay(ctx)
				So(err, ShouldBeNil)
				So(visible, ShouldBeFalse)
			})

			Convey("Then the snapshot shows the session", func() {
				snap, err := svc.Snapshot(ctx)
				So(err, ShouldBeNil)
				So(snap.Session, ShouldNotBeNil)
				So(snap.Session.ID, ShouldEqual, info.ID)
				So(snap.Session.Wage, ShouldEqual, "36.00")
				So(svc.GetStats()["sessionId"], ShouldEqual, info.ID)
			})

			Convey("Then concurrent restarts leave one live session everywhere", func() {
				var wg sync.WaitGroup
				for g := 0; g < 4; g++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						for i := 0; i < 10; i++ {
							_, _ = svc.StartSession(ctx, "3600")
						}
					}()
				}
				wg.Wait()

				snap, err := svc.Snapshot(ctx)
				So(err, ShouldBeNil)
				So(snap.Session, ShouldNotBeNil)
				So(snap.Session.ID, ShouldNotEqual, info.ID)
				So(svc.GetStats()["sessionId"], ShouldEqual, snap.Session.ID)

				tallies, err := svc.Breakdown(ctx)
				So(err, ShouldBeNil)
				So(len(tallies), ShouldBeLessThanOrEqualTo, 5)
			})

			Convey("Then resizing validates the size", func() {
				So(svc.Resize(ctx, 640, 480), ShouldBeNil)
				So(svc.Resize(ctx, 0, 480), ShouldNotBeNil)
				snap, _ := svc.Snapshot(ctx)
				So(snap.Width, ShouldEqual, 640)
				So(snap.Height, ShouldEqual, 480)
			})
		})
	})
}
