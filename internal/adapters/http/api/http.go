// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/piggybank/internal/app"
	"github.com/okian/piggybank/internal/domain/model"
	"github.com/okian/piggybank/internal/domain/session"
	"github.com/okian/piggybank/internal/domain/simulation"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service.
type Dependencies interface {
	StartSession(ctx context.Context, wageInput string) (session.Info, error)
	ToggleOverlay(ctx context.Context) (bool, error)
	Resize(ctx context.Context, width, height int) error
	Snapshot(ctx context.Context) (simulation.Snapshot, error)
	Breakdown(ctx context.Context) ([]model.Tally, error)
	Recent(ctx context.Context, limit int) ([]model.Emission, error)
}

// Server wires HTTP routes for the simulation API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	sessionHandler  *SessionHandler
	sceneHandler    *SceneHandler
	snapshotHandler *SnapshotHandler
	ledgerHandler   *LedgerHandler
}

// NewServer creates a new API server with all handlers. maxRecent caps
// GET /ledger?recent.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxRecent int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		sessionHandler:  NewSessionHandler(deps),
		sceneHandler:    NewSceneHandler(deps),
		snapshotHandler: NewSnapshotHandler(deps),
		ledgerHandler:   NewLedgerHandler(deps, maxRecent),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/session", MetricsMiddleware(s.sessionHandler.HandleStartSession, "session"))
	mux.HandleFunc("/overlay", MetricsMiddleware(s.sceneHandler.HandleToggleOverlay, "overlay"))
	mux.HandleFunc("/resize", MetricsMiddleware(s.sceneHandler.HandleResize, "resize"))
	mux.HandleFunc("/snapshot", MetricsMiddleware(s.snapshotHandler.HandleSnapshot, "snapshot"))
	mux.HandleFunc("/ledger", MetricsMiddleware(s.ledgerHandler.HandleLedger, "ledger"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service and domain errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidWage):
		writeError(w, http.StatusBadRequest, "invalid_wage", err)
	case errors.Is(err, simulation.ErrInvalidScene):
		writeError(w, http.StatusBadRequest, "invalid_scene", err)
	case errors.Is(err, service.ErrNoSession):
		writeError(w, http.StatusNotFound, "no_session", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
