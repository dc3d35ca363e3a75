package terminal

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/okian/piggybank/internal/domain/denomination"
	"github.com/okian/piggybank/internal/domain/simulation"
	"github.com/okian/piggybank/pkg/logger"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

func newScreen(cols, rows int) tcell.SimulationScreen {
	s := tcell.NewSimulationScreen("UTF-8")
	So(s.Init(), ShouldBeNil)
	s.SetSize(cols, rows)
	return s
}

func rowText(s tcell.Screen, row, from, n int) string {
	out := make([]rune, 0, n)
	for col := from; col < from+n; col++ {
		r, _, _, _ := s.GetContent(col, row)
		out = append(out, r)
	}
	return string(out)
}

type fakeController struct {
	mu      sync.Mutex
	toggles int
	sizes   [][2]int
}

func (f *fakeController) ToggleOverlay(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
	return f.toggles%2 == 1, nil
}

func (f *fakeController) Resize(_ context.Context, w, h int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sizes = append(f.sizes, [2]int{w, h})
	return nil
}

func TestView(t *testing.T) {
	Convey("Given a view on a 40x10 screen", t, func() {
		s := newScreen(40, 10)
		defer s.Fini()
		v := NewView(s)

		Convey("When a dollar is drawn", func() {
			gold := denomination.Get(denomination.Dollar).Color
			v.Clear()
			v.DrawCoin(simulation.CoinView{X: 84, Y: 50, Denomination: "dollar", Color: gold})
			v.Show()

			Convey("Then its glyph lands in the mapped cell with its color", func() {
				r, _, style, _ := s.GetContent(10, 3)
				So(r, ShouldEqual, '$')
				fg, _, _ := style.Decompose()
				So(fg, ShouldEqual, tcell.NewRGBColor(255, 215, 0))
			})
		})

		Convey("When coins are off screen", func() {
			v.Clear()
			v.DrawCoin(simulation.CoinView{X: 10, Y: -20, Denomination: "penny"})
			v.DrawCoin(simulation.CoinView{X: 1000, Y: 20, Denomination: "penny"})
			v.Show()

			Convey("Then nothing is drawn", func() {
				for row := 0; row < 10; row++ {
					So(rowText(s, row, 0, 40), ShouldEqual, "                                        ")
				}
			})
		})

		Convey("When the overlay is visible", func() {
			v.Clear()
			v.DrawOverlay(simulation.Overlay{
				Active:    true,
				Visible:   true,
				Wage:      decimal.NewFromInt(36),
				Expected:  decimal.RequireFromString("0.5"),
				Dispensed: decimal.RequireFromString("0.45"),
				Gap:       decimal.RequireFromString("0.05"),
				Coins:     12,
			})
			v.Show()

			Convey("Then each stats line is printed from the second column", func() {
				So(rowText(s, 0, 1, 16), ShouldEqual, "Expected:  $0.50")
				So(rowText(s, 3, 1, 20), ShouldEqual, "Wage:      $36.00/hr")
				So(rowText(s, 5, 1, 9), ShouldEqual, "Coins: 12")
			})
		})

		Convey("When the overlay is hidden", func() {
			v.Clear()
			v.DrawOverlay(simulation.Overlay{Active: true})
			v.Show()
			So(rowText(s, 0, 1, 19), ShouldEqual, "click to show stats")
		})

		Convey("Then scene and cell sizes convert both ways", func() {
			w, h := v.SceneSize(40, 10)
			So(w, ShouldEqual, 320)
			So(h, ShouldEqual, 160)
			col, row := v.Cell(319, 159)
			So(col, ShouldEqual, 39)
			So(row, ShouldEqual, 9)
		})
	})
}

func TestPump(t *testing.T) {
	_ = logger.Init(logger.WithWriter(io.Discard))

	Convey("Given a pump over a simulation screen", t, func() {
		s := newScreen(40, 10)
		defer s.Fini()
		v := NewView(s, WithCellSize(4, 8))
		ctrl := &fakeController{}

		done := make(chan struct{})
		go func() {
			Pump(context.Background(), s, v, ctrl)
			close(done)
		}()

		Convey("When the user clicks twice, resizes and presses escape", func() {
			So(s.PostEvent(tcell.NewEventMouse(3, 3, tcell.Button1, tcell.ModNone)), ShouldBeNil)
			So(s.PostEvent(tcell.NewEventMouse(4, 3, tcell.Button1, tcell.ModNone)), ShouldBeNil)
			So(s.PostEvent(tcell.NewEventMouse(4, 3, tcell.ButtonNone, tcell.ModNone)), ShouldBeNil)
			So(s.PostEvent(tcell.NewEventMouse(5, 5, tcell.Button1, tcell.ModNone)), ShouldBeNil)
			So(s.PostEvent(tcell.NewEventResize(50, 20)), ShouldBeNil)
			So(s.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)), ShouldBeNil)
			So(s.PostEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)), ShouldBeNil)

			var finished bool
			select {
			case <-done:
				finished = true
			case <-time.After(2 * time.Second):
			}

			Convey("Then a drag counts as one click and the resize is in scene units", func() {
				So(finished, ShouldBeTrue)
				ctrl.mu.Lock()
				defer ctrl.mu.Unlock()
				So(ctrl.toggles, ShouldEqual, 2)
				So(len(ctrl.sizes), ShouldBeGreaterThan, 0)
				So(ctrl.sizes[len(ctrl.sizes)-1], ShouldResemble, [2]int{200, 160})
			})
		})

		Convey("When q is pressed", func() {
			So(s.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)), ShouldBeNil)

			var finished bool
			select {
			case <-done:
				finished = true
			case <-time.After(2 * time.Second):
			}
			So(finished, ShouldBeTrue)
		})
	})
}
