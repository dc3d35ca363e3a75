package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/piggybank/internal/domain/session"
)

// SessionDependencies starts sessions.
type SessionDependencies interface {
	StartSession(ctx context.Context, wageInput string) (session.Info, error)
}

// SessionHandler handles session requests.
type SessionHandler struct {
	deps SessionDependencies
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps SessionDependencies) *SessionHandler {
	return &SessionHandler{deps: deps}
}

// sessionRequest accepts the wage as a JSON number or a numeric string.
type sessionRequest struct {
	Wage json.RawMessage `json:"wage"`
}

// wageInput returns the wage as typed by the user. Validation is left to the
// session so the HTTP and terminal paths reject the same inputs.
func (r sessionRequest) wageInput() string {
	raw := bytes.TrimSpace(r.Wage)
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}

// HandleStartSession handles POST /session requests.
func (h *SessionHandler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	const op = "api.start_session"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	info, err := h.deps.StartSession(r.Context(), req.wageInput())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}
