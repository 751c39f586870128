package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "agrirank/internal/errors"
	"agrirank/internal/operations"
)

// RunsHandler serves run snapshots for clients that poll instead of
// holding a websocket open.
type RunsHandler struct {
	runs         RunStore
	errorHandler *apperrors.ErrorHandler
}

// NewRunsHandler creates a runs handler
func NewRunsHandler(runs RunStore, errorHandler *apperrors.ErrorHandler) *RunsHandler {
	return &RunsHandler{runs: runs, errorHandler: errorHandler}
}

// Routes returns the run routes
func (h *RunsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListRuns)
	r.Get("/{runID}", h.GetRun)
	return r
}

// ListRuns handles GET /api/runs?limit=n, newest first.
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	snapshots := h.runs.Snapshots()
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			h.errorHandler.HandleError(w, r, apperrors.NewValidationErrors([]apperrors.ValidationError{
				{Field: "limit", Message: "limit must be a positive integer"},
			}))
			return
		}
		if limit < len(snapshots) {
			snapshots = snapshots[:limit]
		}
	}
	if snapshots == nil {
		snapshots = []*operations.RunSnapshot{}
	}
	render.JSON(w, r, map[string]interface{}{
		"runs":  snapshots,
		"count": len(snapshots),
	})
}

// GetRun handles GET /api/runs/{runID}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	snapshot, ok := h.runs.GetSnapshot(runID)
	if !ok {
		h.errorHandler.HandleError(w, r, apperrors.NotFoundError("run "+runID))
		return
	}
	render.JSON(w, r, snapshot)
}
