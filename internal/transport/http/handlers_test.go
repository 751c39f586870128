package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"agrirank/internal/config"
	"agrirank/internal/dataprocessing"
	apperrors "agrirank/internal/errors"
	"agrirank/internal/exporter"
	"agrirank/internal/middleware"
	"agrirank/internal/operations"
	"agrirank/internal/report"
	"agrirank/internal/services"
	"agrirank/pkg/contracts/domain"
)

type memorySource struct {
	loads atomic.Int32
	err   error
}

func (s *memorySource) Describe() string { return "memory" }

func (s *memorySource) Load(context.Context) (*dataprocessing.Dataset, error) {
	s.loads.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	row := func(month time.Month, d, code int, name, qty, max, min string) domain.RawObservation {
		return domain.RawObservation{
			Date:          time.Date(2024, month, d, 0, 0, 0, 0, time.UTC),
			CommodityCode: code,
			HasCode:       true,
			CommodityName: name,
			QuantityText:  qty,
			MaxRateText:   max,
			MinRateText:   min,
		}
	}
	return &dataprocessing.Dataset{
		Observations: []domain.RawObservation{
			row(time.March, 5, 2001, "Onion", "50", "1200", "1000"),
			row(time.March, 6, 2001, "Onion", "70", "1300", "1100"),
			row(time.March, 5, 2002, "Garlic", "40", "3100", "2900"),
			row(time.April, 2, 2001, "Onion", "90", "1100", "900"),
		},
		Fingerprint: "fp-test",
		Origin:      "memory",
		LoadedAt:    time.Now().UTC(),
	}, nil
}

type fixture struct {
	router http.Handler
	runs   *operations.RunBroadcaster
	source *memorySource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runs := operations.NewRunBroadcaster(nil, logger)
	t.Cleanup(runs.Stop)

	cfg := config.DefaultAnalysis()
	cfg.Metrics = []string{"price", "volume"}
	cfg.TopN = 2
	src := &memorySource{}
	svc, err := services.NewRankingService(cfg, src, operations.Deps{Logger: logger, Events: runs})
	require.NoError(t, err)

	eh := apperrors.NewErrorHandler(logger)
	v := middleware.NewValidator(logger)
	health := services.NewHealthService("test", svc, nil, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.NotFound(eh.NotFound)
	r.MethodNotAllowed(eh.MethodNotAllowed)
	r.Mount("/api/health", NewHealthHandler(health).Routes())
	r.Mount("/api/rankings", NewRankingHandler(svc, v, logger, eh).Routes())
	r.Mount("/api/criteria", NewCriteriaHandler(svc, logger, eh).Routes())
	r.Mount("/api/source", NewSourceHandler(svc, logger, eh).Routes())
	r.Mount("/api/runs", NewRunsHandler(runs, eh).Routes())
	return &fixture{router: r, runs: runs, source: src}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func problemOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var p map[string]interface{}
	decode(t, rec, &p)
	return p
}

func TestGetRankings(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/rankings", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rep report.Report
	decode(t, rec, &rep)
	assert.Equal(t, 2, rep.Metadata.TopN)
	assert.Equal(t, "fp-test", rep.Metadata.InputFingerprint)
	require.Len(t, rep.Months, 2)
	assert.Equal(t, "March 2024", rep.Months[0].Label)
	assert.Equal(t, "April 2024", rep.Months[1].Label)
}

func TestGetRankingsQueryOverrides(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/rankings?metric=volume&top_n=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rep report.Report
	decode(t, rec, &rep)
	assert.Equal(t, "single", rep.Metadata.StrategyKind)
	require.Len(t, rep.Months[0].Rows, 1)
	assert.Equal(t, "Onion", rep.Months[0].Rows[0].Commodity)
}

func TestGetRankingsInvalidQuery(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"non-numeric top_n", "top_n=ten", "top_n"},
		{"negative top_n", "top_n=-1", "top_n"},
		{"unknown metric", "metric=profit", "metric"},
		{"unknown metric in list", "metrics=price,profit", "metrics[1]"},
		{"unknown strategy", "strategy=random", "strategy"},
		{"bad degenerate value", "degenerate_value=half", "degenerate_value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/rankings?"+tt.query, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)

			p := problemOf(t, rec)
			assert.Equal(t, apperrors.TypeValidation, p["type"])
			assert.Equal(t, "VALIDATION_FAILED", p["error_code"])
			details := p["details"].(map[string]interface{})
			errs := details["errors"].([]interface{})
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].(map[string]interface{})["field"])
		})
	}
	assert.Zero(t, f.source.loads.Load(), "invalid requests never touch the source")
}

func TestPostRankings(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/rankings", `{"metrics":["price"],"top_n":1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep report.Report
	decode(t, rec, &rep)
	assert.Equal(t, []string{"price"}, rep.Metrics)
	require.Len(t, rep.Months[0].Rows, 1)
	assert.Equal(t, "Garlic", rep.Months[0].Rows[0].Commodity)
}

func TestPostRankingsConfigError(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"duplicate metric", `{"metrics":["price","price"]}`},
		{"weights do not sum to one", `{"metrics":["price","volume"],"weights":{"price":0.9,"volume":0.3}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/rankings", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			p := problemOf(t, rec)
			assert.Equal(t, apperrors.TypeConfig, p["type"])
			assert.Equal(t, "INVALID_CONFIGURATION", p["error_code"])
		})
	}
}

func TestPostRankingsRejectsBadBodies(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/rankings", `{"metrics":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/rankings", `{"colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/rankings", strings.NewReader("metric=price"))
	req.Header.Set("Content-Type", "text/plain")
	out := httptest.NewRecorder()
	f.router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, out.Code)
}

func TestGetMonth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/rankings/2024-04", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var m report.Month
	decode(t, rec, &m)
	assert.Equal(t, "2024-04", m.Month)
	require.Len(t, m.Rows, 1)
	assert.Equal(t, "Onion", m.Rows[0].Commodity)

	rec = f.do(t, http.MethodGet, "/api/rankings/2023-01", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, apperrors.TypeNotFound, problemOf(t, rec)["type"])

	rec = f.do(t, http.MethodGet, "/api/rankings/march", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportRankings(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/rankings/export/csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), config.DefaultRankingCSV)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF}))

	rec = f.do(t, http.MethodGet, "/api/rankings/export/xlsx?top_n=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), config.DefaultRankingWorkbook)
	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	assert.Contains(t, wb.GetSheetList(), exporter.TopSheetName(1))
	assert.Contains(t, wb.GetSheetList(), exporter.SheetFullScores)

	rec = f.do(t, http.MethodGet, "/api/rankings/export/md", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "rankings.md")
	assert.Contains(t, rec.Body.String(), "### March 2024")

	rec = f.do(t, http.MethodGet, "/api/rankings/export/pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCriteria(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/criteria", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep report.CriteriaReport
	decode(t, rec, &rep)
	assert.Equal(t, []string{"Price", "Quantity", "Productivity"}, rep.Criteria)
	assert.NotEmpty(t, rep.Rows)

	rec = f.do(t, http.MethodGet, "/api/criteria/export/csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "top_commodities_by_criteria.csv")
	assert.Contains(t, rec.Body.String(), "Canonical Name")

	rec = f.do(t, http.MethodGet, "/api/criteria/export/xlsx", "")
	require.Equal(t, http.StatusOK, rec.Code)
	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	assert.Contains(t, wb.GetSheetList(), exporter.SheetFullReport)
}

func TestSource(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/source", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/source/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info services.DatasetInfo
	decode(t, rec, &info)
	assert.Equal(t, 4, info.Observations)
	assert.Equal(t, "fp-test", info.Fingerprint)

	rec = f.do(t, http.MethodGet, "/api/source", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSourceRefreshFailure(t *testing.T) {
	f := newFixture(t)
	f.source.err = apperrors.NewStorageError("open workbook", errors.New("no such file"))

	rec := f.do(t, http.MethodPost, "/api/source/refresh", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, apperrors.TypeSourceFailed, problemOf(t, rec)["type"])
}

func TestRuns(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var empty struct {
		Count int `json:"count"`
	}
	decode(t, rec, &empty)
	assert.Zero(t, empty.Count)

	rec = f.do(t, http.MethodGet, "/api/rankings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep report.Report
	decode(t, rec, &rep)

	rec = f.do(t, http.MethodGet, "/api/runs/"+rep.Metadata.RunID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap operations.RunSnapshot
	decode(t, rec, &snap)
	assert.Equal(t, operations.RunCompleted, snap.Status)
	assert.Len(t, snap.Stages, 4)

	rec = f.do(t, http.MethodGet, "/api/runs?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs  []operations.RunSnapshot `json:"runs"`
		Count int                      `json:"count"`
	}
	decode(t, rec, &list)
	assert.Equal(t, 1, list.Count)

	rec = f.do(t, http.MethodGet, "/api/runs?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status services.HealthStatus
	decode(t, rec, &status)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "not_loaded", status.Services["source"])

	rec = f.do(t, http.MethodGet, "/api/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.do(t, http.MethodPost, "/api/source/refresh", "")
	rec = f.do(t, http.MethodGet, "/api/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/health/live", "")
	decode(t, rec, &status)
	assert.Equal(t, "alive", status.Status)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/rankings", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMetricsHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	custom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("custom")) })
	rec = httptest.NewRecorder()
	NewMetricsHandler(custom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "custom", rec.Body.String())
}
