package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/piggybank/internal/adapters/http/api"
	service "github.com/okian/piggybank/internal/app"
	"github.com/okian/piggybank/internal/domain/model"
	"github.com/okian/piggybank/internal/domain/session"
	"github.com/okian/piggybank/internal/domain/simulation"
	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"
)

type mockDependencies struct {
	wages      []string
	startErr   error
	active     bool
	overlay    bool
	toggleErr  error
	sizes      [][2]int
	resizeErr  error
	snapshot   simulation.Snapshot
	snapErr    error
	tallies    []model.Tally
	ledgerErr  error
	recent     []model.Emission
	recentArgs []int
}

func (m *mockDependencies) StartSession(_ context.Context, wage string) (session.Info, error) {
	m.wages = append(m.wages, wage)
	if m.startErr != nil {
		return session.Info{}, m.startErr
	}
	w, err := session.ParseWage(wage)
	if err != nil {
		return session.Info{}, err
	}
	m.active = true
	return session.Info{ID: "s-1", Wage: w.StringFixed(2)}, nil
}

func (m *mockDependencies) ToggleOverlay(context.Context) (bool, error) {
	if m.toggleErr != nil {
		return false, m.toggleErr
	}
	if !m.active {
		return false, service.ErrNoSession
	}
	m.overlay = !m.overlay
	return m.overlay, nil
}

func (m *mockDependencies) Resize(_ context.Context, w, h int) error {
	if m.resizeErr != nil {
		return m.resizeErr
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("resize: %w", simulation.ErrInvalidScene)
	}
	m.sizes = append(m.sizes, [2]int{w, h})
	return nil
}

func (m *mockDependencies) Snapshot(context.Context) (simulation.Snapshot, error) {
	return m.snapshot, m.snapErr
}

func (m *mockDependencies) Breakdown(context.Context) ([]model.Tally, error) {
	return m.tallies, m.ledgerErr
}

func (m *mockDependencies) Recent(_ context.Context, limit int) ([]model.Emission, error) {
	m.recentArgs = append(m.recentArgs, limit)
	return m.recent, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}, 50)
	mux := http.NewServeMux()
	server.Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Then health serves the metrics registry", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats are served as JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(decode(w)["started"], ShouldEqual, true)
		})

		Convey("Then wrong methods are not found", func() {
			So(do(mux, http.MethodGet, "/session", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/overlay", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/snapshot", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/ledger", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/stats", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestSessionHandler(t *testing.T) {
	Convey("Given the session endpoint", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When the wage is a number", func() {
			w := do(mux, http.MethodPost, "/session", `{"wage": 36}`)

			Convey("Then the session is created", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				body := decode(w)
				So(body["id"], ShouldEqual, "s-1")
				So(body["wage"], ShouldEqual, "36.00")
				So(deps.wages, ShouldResemble, []string{"36"})
			})
		})

		Convey("When the wage is a numeric string", func() {
			w := do(mux, http.MethodPost, "/session", `{"wage": "12.5"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			So(deps.wages, ShouldResemble, []string{"12.5"})
		})

		Convey("When the wage is invalid", func() {
			for _, body := range []string{`{"wage": 0}`, `{"wage": -5}`, `{"wage": "abc"}`, `{"wage": null}`, `{}`} {
				w := do(mux, http.MethodPost, "/session", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "invalid_wage")
			}
			So(deps.active, ShouldBeFalse)
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/session", `wage=36`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
			So(deps.wages, ShouldBeEmpty)
		})

		Convey("When the service is not running", func() {
			deps.startErr = service.ErrNotStarted
			w := do(mux, http.MethodPost, "/session", `{"wage": 36}`)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(w)["code"], ShouldEqual, "unavailable")
		})
	})
}

func TestSceneHandler(t *testing.T) {
	Convey("Given the overlay and resize endpoints", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When toggling without a session", func() {
			w := do(mux, http.MethodPost, "/overlay", "")

			Convey("Then it reports inactive", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["active"], ShouldEqual, false)
				So(body["overlay"], ShouldEqual, false)
			})
		})

		Convey("When toggling with a session", func() {
			deps.active = true
			first := decode(do(mux, http.MethodPost, "/overlay", ""))
			second := decode(do(mux, http.MethodPost, "/overlay", ""))

			Convey("Then the overlay flips", func() {
				So(first["active"], ShouldEqual, true)
				So(first["overlay"], ShouldEqual, true)
				So(second["overlay"], ShouldEqual, false)
			})
		})

		Convey("When toggling fails", func() {
			deps.toggleErr = errors.New("boom")
			w := do(mux, http.MethodPost, "/overlay", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When resizing to a valid size", func() {
			w := do(mux, http.MethodPost, "/resize", `{"width": 640, "height": 480}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.sizes, ShouldResemble, [][2]int{{640, 480}})
		})

		Convey("When resizing to a non-positive size", func() {
			w := do(mux, http.MethodPost, "/resize", `{"width": 0, "height": 480}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "invalid_scene")
			So(deps.sizes, ShouldBeEmpty)
		})

		Convey("When the resize body is malformed", func() {
			w := do(mux, http.MethodPost, "/resize", `{"width": "wide"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
		})
	})
}

func TestSnapshotHandler(t *testing.T) {
	Convey("Given the snapshot endpoint", t, func() {
		deps := &mockDependencies{snapshot: simulation.Snapshot{
			Width:  400,
			Height: 300,
			Coins:  []simulation.CoinView{{ID: "c1", X: 10, Y: 20, Radius: 7.5, Denomination: "penny", Settled: true}},
			Session: &simulation.SessionView{
				Info:      session.Info{ID: "s-1", Wage: "36.00"},
				Dispensed: decimal.RequireFromString("0.01"),
				Expected:  decimal.RequireFromString("0.02"),
				Gap:       decimal.RequireFromString("0.01"),
				Emitted:   1,
			},
		}}
		mux := newMux(deps)

		Convey("When reading it", func() {
			w := do(mux, http.MethodGet, "/snapshot", "")

			Convey("Then the scene, coins and totals are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["width"], ShouldEqual, 400)
				coins := body["coins"].([]interface{})
				So(len(coins), ShouldEqual, 1)
				coin := coins[0].(map[string]interface{})
				So(coin["denomination"], ShouldEqual, "penny")
				So(coin["settled"], ShouldEqual, true)
				sess := body["session"].(map[string]interface{})
				So(sess["id"], ShouldEqual, "s-1")
				So(sess["dispensed"], ShouldEqual, "0.01")
			})
		})

		Convey("When the service is stopped", func() {
			deps.snapErr = service.ErrNotStarted
			So(do(mux, http.MethodGet, "/snapshot", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestLedgerHandler(t *testing.T) {
	Convey("Given the ledger endpoint", t, func() {
		deps := &mockDependencies{
			tallies: []model.Tally{
				{Denomination: "penny", Count: 3, Total: decimal.RequireFromString("0.03")},
				{Denomination: "dime", Count: 2, Total: decimal.RequireFromString("0.20")},
			},
			recent: []model.Emission{{ID: "c9", Denomination: "dime"}},
		}
		mux := newMux(deps)

		Convey("When reading tallies only", func() {
			w := do(mux, http.MethodGet, "/ledger", "")

			Convey("Then the tallies and total are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(len(body["tallies"].([]interface{})), ShouldEqual, 2)
				So(body["total"], ShouldEqual, "0.23")
				So(body["recent"], ShouldBeNil)
				So(deps.recentArgs, ShouldBeEmpty)
			})
		})

		Convey("When asking for recent coins", func() {
			w := do(mux, http.MethodGet, "/ledger?recent=5", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.recentArgs, ShouldResemble, []int{5})
			So(len(decode(w)["recent"].([]interface{})), ShouldEqual, 1)
		})

		Convey("When recent is invalid or too large", func() {
			So(do(mux, http.MethodGet, "/ledger?recent=x", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/ledger?recent=-1", "").Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodGet, "/ledger?recent=51", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "limit_exceeded")
		})

		Convey("When no session is running", func() {
			deps.ledgerErr = service.ErrNoSession
			w := do(mux, http.MethodGet, "/ledger", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "no_session")
		})

		Convey("When the ledger is empty", func() {
			deps.tallies = nil
			body := decode(do(mux, http.MethodGet, "/ledger", ""))
			So(body["tallies"], ShouldResemble, []interface{}{})
			So(body["total"], ShouldEqual, "0")
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a wrapped handler", t, func() {
		h := api.MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		}, "teapot")

		Convey("Then the status and body pass through", func() {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/teapot", nil))
			So(w.Code, ShouldEqual, http.StatusTeapot)
			So(w.Body.String(), ShouldEqual, "short and stout")
		})
	})
}
