package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	service "github.com/okian/piggybank/internal/app"
	"github.com/okian/piggybank/internal/domain/model"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

type countingNotifier struct {
	mu    sync.Mutex
	names map[string]int
}

func (n *countingNotifier) Notify(_ context.Context, e model.Emission) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.names[e.ID]++
}

func (n *countingNotifier) snapshot() map[string]int {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]int, len(n.names))
	for k, v := range n.names {
		out[k] = v
	}
	return out
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with a file ledger and a recording notifier", t, func() {
		notifier := &countingNotifier{names: map[string]int{}}
		svc := service.New(
			service.WithWorkerCount(2),
			service.WithQueueSize(256),
			service.WithFrameRate(120),
			service.WithFirstDropDelay(0),
			service.WithSeed(11),
			service.WithLedgerDSN(filepath.Join(t.TempDir(), "ledger.db")),
			service.WithNotifier(notifier),
		)
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When a high wage session runs for a while", func() {
			info, err := svc.StartSession(ctx, "36000")
			So(err, ShouldBeNil)

			recorded := waitFor(5*time.Second, func() bool {
				tallies, err := svc.Breakdown(ctx)
				return err == nil && len(tallies) > 0
			})
			So(recorded, ShouldBeTrue)

			Convey("Then the ledger agrees with the world once drained", func() {
				snap, err := svc.Snapshot(ctx)
				So(err, ShouldBeNil)
				So(snap.Session.ID, ShouldEqual, info.ID)
				So(len(snap.Coins), ShouldBeGreaterThan, 0)

				drained := waitFor(5*time.Second, func() bool {
					tallies, err := svc.Breakdown(ctx)
					if err != nil {
						return false
					}
					count := 0
					for _, t := range tallies {
						count += t.Count
					}
					return count >= len(snap.Coins)
				})
				So(drained, ShouldBeTrue)

				recent, err := svc.Recent(ctx, 5)
				So(err, ShouldBeNil)
				So(len(recent), ShouldBeBetweenOrEqual, 1, 5)
				for _, e := range recent {
					So(e.SessionID, ShouldEqual, info.ID)
				}
			})

			Convey("Then every recorded coin was announced once", func() {
				So(waitFor(5*time.Second, func() bool { return len(notifier.snapshot()) > 0 }), ShouldBeTrue)
				for _, n := range notifier.snapshot() {
					So(n, ShouldEqual, 1)
				}
			})

			Convey("Then a new session starts with an empty ledger", func() {
				next, err := svc.StartSession(ctx, "1")
				So(err, ShouldBeNil)
				So(next.ID, ShouldNotEqual, info.ID)

				tallies, err := svc.Breakdown(ctx)
				So(err, ShouldBeNil)
				So(model.Sum(tallies).Equal(decimal.Zero), ShouldBeTrue)

				snap, err := svc.Snapshot(ctx)
				So(err, ShouldBeNil)
				So(len(snap.Coins), ShouldEqual, 0)
			})
		})
	})
}
