package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"agrirank/internal/config"
)

func TestInitializeOTelServesPrometheus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	providers, err := InitializeOTel(config.TelemetryConfig{
		ServiceName:    "agrirank-test",
		TraceExporter:  "none",
		MetricsEnabled: true,
	}, logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	require.NotNil(t, providers.PrometheusHTTP)
	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.RecordIngested(context.Background(), 12)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "observations_ingested_total")
}

func TestInitializeOTelRejectsUnknownExporter(t *testing.T) {
	_, err := InitializeOTel(config.TelemetryConfig{TraceExporter: "jaeger"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestBusinessMetricsRecording(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordIngested(ctx, 10)
	metrics.RecordExcluded(ctx, "unparseable_rate", 2)
	metrics.RecordExcluded(ctx, "not_in_vocabulary", 0)
	metrics.RecordBucketsRanked(ctx, 3)
	metrics.RecordDegenerate(ctx, "short_bucket")
	metrics.RecordRun(ctx, 150*time.Millisecond, errors.New("boom"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(10), sums["observations_ingested_total"])
	assert.Equal(t, int64(2), sums["observations_excluded_total"])
	assert.Equal(t, int64(3), sums["buckets_ranked_total"])
	assert.Equal(t, int64(1), sums["degenerate_buckets_total"])
}

func TestNilBusinessMetricsIsSafe(t *testing.T) {
	var m *BusinessMetrics
	assert.NotPanics(t, func() {
		m.RecordIngested(context.Background(), 1)
		m.RecordRun(context.Background(), time.Second, nil)
		m.RecordHTTPRequest(context.Background(), "GET", "/api/health", 200, time.Millisecond)
	})
	assert.NotNil(t, NoopBusinessMetrics())
}
