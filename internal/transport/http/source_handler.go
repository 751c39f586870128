package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "agrirank/internal/errors"
	"agrirank/internal/infrastructure"
)

// SourceHandler exposes the loaded dataset and reloads it on demand.
type SourceHandler struct {
	service      RankingService
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewSourceHandler creates a source handler
func NewSourceHandler(service RankingService, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *SourceHandler {
	return &SourceHandler{
		service:      service,
		logger:       infrastructure.WithComponent(logger, "source_handler"),
		errorHandler: errorHandler,
	}
}

// Routes returns the source routes
func (h *SourceHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetSource)
	r.Post("/refresh", h.Refresh)
	return r
}

// GetSource handles GET /api/source
func (h *SourceHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	info, ok := h.service.Info()
	if !ok {
		h.errorHandler.HandleError(w, r, apperrors.ErrNoData)
		return
	}
	render.JSON(w, r, info)
}

// Refresh handles POST /api/source/refresh
func (h *SourceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Refresh(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "source refreshed",
		slog.String("origin", info.Origin),
		slog.Int("observations", info.Observations),
		slog.String("fingerprint", info.Fingerprint),
	)
	render.JSON(w, r, info)
}
