package api

import (
	"context"
	"net/http"

	"github.com/okian/piggybank/internal/domain/simulation"
)

// SnapshotDependencies reads the world.
type SnapshotDependencies interface {
	Snapshot(ctx context.Context) (simulation.Snapshot, error)
}

// SnapshotHandler handles snapshot requests.
type SnapshotHandler struct {
	deps SnapshotDependencies
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(deps SnapshotDependencies) *SnapshotHandler {
	return &SnapshotHandler{deps: deps}
}

// HandleSnapshot handles GET /snapshot requests.
func (h *SnapshotHandler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snap, err := h.deps.Snapshot(r.Context())
	if err != nil {
		writeServiceError(w, "api.snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
