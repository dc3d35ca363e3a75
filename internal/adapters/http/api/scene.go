package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/piggybank/internal/app"
)

// SceneDependencies changes how the scene is shown.
type SceneDependencies interface {
	ToggleOverlay(ctx context.Context) (bool, error)
	Resize(ctx context.Context, width, height int) error
}

// SceneHandler handles overlay and resize requests.
type SceneHandler struct {
	deps SceneDependencies
}

// NewSceneHandler creates a new scene handler.
func NewSceneHandler(deps SceneDependencies) *SceneHandler {
	return &SceneHandler{deps: deps}
}

type overlayResponse struct {
	Active  bool `json:"active"`
	Overlay bool `json:"overlay"`
}

type resizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// HandleToggleOverlay handles POST /overlay requests. Without a session the
// toggle is ignored and reported as inactive.
func (h *SceneHandler) HandleToggleOverlay(w http.ResponseWriter, r *http.Request) {
	const op = "api.toggle_overlay"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	visible, err := h.deps.ToggleOverlay(r.Context())
	switch {
	case errors.Is(err, service.ErrNoSession):
		writeJSON(w, http.StatusOK, overlayResponse{Active: false, Overlay: visible})
	case err != nil:
		writeServiceError(w, op, err)
	default:
		writeJSON(w, http.StatusOK, overlayResponse{Active: true, Overlay: visible})
	}
}

// HandleResize handles POST /resize requests.
func (h *SceneHandler) HandleResize(w http.ResponseWriter, r *http.Request) {
	const op = "api.resize"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req resizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.Resize(r.Context(), req.Width, req.Height); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
