package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/piggybank/internal/domain/model"
	"github.com/shopspring/decimal"
)

// LedgerDependencies reads recorded coins.
type LedgerDependencies interface {
	Breakdown(ctx context.Context) ([]model.Tally, error)
	Recent(ctx context.Context, limit int) ([]model.Emission, error)
}

// LedgerHandler handles ledger requests.
type LedgerHandler struct {
	deps      LedgerDependencies
	maxRecent int
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(deps LedgerDependencies, maxRecent int) *LedgerHandler {
	return &LedgerHandler{deps: deps, maxRecent: maxRecent}
}

type ledgerResponse struct {
	Tallies []model.Tally    `json:"tallies"`
	Total   decimal.Decimal  `json:"total"`
	Recent  []model.Emission `json:"recent,omitempty"`
}

// HandleLedger handles GET /ledger?recent=N requests. recent defaults to 0.
func (h *LedgerHandler) HandleLedger(w http.ResponseWriter, r *http.Request) {
	const op = "api.ledger"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	recent := 0
	if v := r.URL.Query().Get("recent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxRecent {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		recent = n
	}

	tallies, err := h.deps.Breakdown(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	resp := ledgerResponse{Tallies: tallies, Total: model.Sum(tallies)}
	if resp.Tallies == nil {
		resp.Tallies = []model.Tally{}
	}
	if recent > 0 {
		if resp.Recent, err = h.deps.Recent(r.Context(), recent); err != nil {
			writeServiceError(w, op, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
