package http

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"agrirank/internal/config"
	apperrors "agrirank/internal/errors"
	"agrirank/internal/exporter"
	"agrirank/internal/infrastructure"
	"agrirank/internal/report"
)

// CriteriaHandler serves the per-criterion report.
type CriteriaHandler struct {
	service      RankingService
	workbooks    *exporter.WorkbookWriter
	errorHandler *apperrors.ErrorHandler
}

// NewCriteriaHandler creates a criteria handler
func NewCriteriaHandler(service RankingService, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *CriteriaHandler {
	return &CriteriaHandler{
		service:      service,
		workbooks:    exporter.NewWorkbookWriter("", infrastructure.WithComponent(logger, "criteria_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the criteria routes
func (h *CriteriaHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetCriteria)
	r.Get("/export/{format}", h.Export)
	return r
}

// GetCriteria handles GET /api/criteria
func (h *CriteriaHandler) GetCriteria(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.Criteria(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, rep)
}

// Export handles GET /api/criteria/export/{format}
func (h *CriteriaHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := checkFormat(format); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	rep, err := h.service.Criteria(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		err = exporter.WriteCriteriaTo(&buf, rep)
	case FormatXLSX:
		err = h.workbooks.WriteCriteriaTo(&buf, rep)
	case FormatMarkdown:
		buf.WriteString(report.RenderCriteriaMarkdown(rep))
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	writeDownload(w, exportName(config.DefaultCriteriaWorkbook, format), format, &buf)
}
