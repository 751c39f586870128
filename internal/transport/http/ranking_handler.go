package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"agrirank/internal/config"
	apperrors "agrirank/internal/errors"
	"agrirank/internal/exporter"
	"agrirank/internal/infrastructure"
	"agrirank/internal/middleware"
	"agrirank/internal/report"
	"agrirank/internal/services"
)

// RankingHandler serves the ranking report.
type RankingHandler struct {
	service      RankingService
	validator    *middleware.Validator
	workbooks    *exporter.WorkbookWriter
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewRankingHandler creates a ranking handler
func NewRankingHandler(service RankingService, validator *middleware.Validator, logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *RankingHandler {
	logger = infrastructure.WithComponent(logger, "ranking_handler")
	return &RankingHandler{
		service:      service,
		validator:    validator,
		workbooks:    exporter.NewWorkbookWriter("", logger),
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// Routes returns the ranking routes
func (h *RankingHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetRankings)
	r.With(middleware.ContentTypeValidator("application/json")).Post("/", h.PostRankings)
	r.Get("/export/{format}", h.Export)
	r.Get("/{month}", h.GetMonth)
	return r
}

// GetRankings handles GET /api/rankings
func (h *RankingHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	req, err := h.requestFromQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, req)
}

// PostRankings handles POST /api/rankings
func (h *RankingHandler) PostRankings(w http.ResponseWriter, r *http.Request) {
	var req services.AnalysisRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r, req)
}

func (h *RankingHandler) respond(w http.ResponseWriter, r *http.Request, req services.AnalysisRequest) {
	rep, err := h.service.Rankings(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.logger.DebugContext(r.Context(), "rankings served",
		slog.String("run_id", rep.Metadata.RunID),
		slog.Int("months", len(rep.Months)),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
	render.JSON(w, r, rep)
}

// GetMonth handles GET /api/rankings/{month}
func (h *RankingHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	req, err := h.requestFromQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	month, err := h.service.Month(r.Context(), chi.URLParam(r, "month"), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, month)
}

// Export handles GET /api/rankings/export/{format}
func (h *RankingHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := checkFormat(format); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	req, err := h.requestFromQuery(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	rep, err := h.service.Rankings(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	name := config.DefaultRankingWorkbook
	switch format {
	case FormatCSV:
		name = config.DefaultRankingCSV
		err = exporter.WriteRankingTo(&buf, rep)
	case FormatXLSX:
		err = h.workbooks.WriteRankingTo(&buf, rep)
	case FormatMarkdown:
		name = exportName(config.DefaultRankingCSV, FormatMarkdown)
		buf.WriteString(report.RenderMarkdown(rep))
	}
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	writeDownload(w, name, format, &buf)
}

// requestFromQuery reads analysis overrides from the query string.
func (h *RankingHandler) requestFromQuery(r *http.Request) (services.AnalysisRequest, error) {
	q := r.URL.Query()
	req := services.AnalysisRequest{
		Strategy:            q.Get("strategy"),
		Metric:              q.Get("metric"),
		MissingProductivity: q.Get("missing_productivity"),
		RateParsePolicy:     q.Get("rate_parse_policy"),
	}
	if v := q.Get("metrics"); v != "" {
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				req.Metrics = append(req.Metrics, m)
			}
		}
	}

	var invalid []apperrors.ValidationError
	if v := q.Get("top_n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			invalid = append(invalid, apperrors.ValidationError{Field: "top_n", Message: "top_n must be an integer"})
		}
		req.TopN = n
	}
	if v := q.Get("degenerate_value"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			invalid = append(invalid, apperrors.ValidationError{Field: "degenerate_value", Message: "degenerate_value must be a number"})
		} else {
			req.DegenerateValue = &f
		}
	}
	if len(invalid) > 0 {
		return req, apperrors.NewValidationErrors(invalid)
	}
	return req, h.validator.ValidateStruct(&req)
}
