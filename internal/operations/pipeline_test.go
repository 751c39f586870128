package operations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrirank/internal/config"
	"agrirank/internal/dataprocessing"
	apperrors "agrirank/internal/errors"
	"agrirank/internal/infrastructure"
	"agrirank/pkg/contracts/domain"
	"agrirank/pkg/contracts/events"
)

type staticSource struct {
	ds  *dataprocessing.Dataset
	err error
}

func (s staticSource) Load(context.Context) (*dataprocessing.Dataset, error) { return s.ds, s.err }
func (s staticSource) Describe() string                                        { return "static" }

type recorder struct {
	mu     sync.Mutex
	events []events.RunEvent
}

func (r *recorder) Publish(_ context.Context, e events.RunEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) transitions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = string(e.Stage) + ":" + string(e.Status)
	}
	return out
}

func obs(d int, code int, name, qty, max, min string) domain.RawObservation {
	return domain.RawObservation{
		Date:          time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC),
		CommodityCode: code,
		HasCode:       true,
		CommodityName: name,
		QuantityText:  qty,
		MaxRateText:   max,
		MinRateText:   min,
	}
}

func dataset() *dataprocessing.Dataset {
	return &dataprocessing.Dataset{
		Observations: []domain.RawObservation{
			obs(5, 2001, "Onion", "50", "Rs. 1200/-", "Rs. 1000/-"),
			obs(6, 2001, "Onion", "70", "Rs. 1300/-", "Rs. 1100/-"),
			obs(5, 2002, "Garlic", "40", "Rs. 3100/-", "Rs. 2900/-"),
			obs(5, 2003, "Potato", "90", "n/a", "Rs. 700/-"),
			obs(5, 5001, "Mango", "10", "Rs. 5000/-", "Rs. 4000/-"),
		},
		Fingerprint: "abc123",
		Origin:      "test.xlsx",
		LoadedAt:    time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
	}
}

func analysis() config.AnalysisConfig {
	cfg := config.DefaultAnalysis()
	cfg.Metrics = []string{"price", "volume"}
	cfg.TopN = 2
	cfg.Workers = 1
	return cfg
}

func newTestPipeline(t *testing.T, cfg config.AnalysisConfig) (*Pipeline, *recorder) {
	t.Helper()
	rec := &recorder{}
	p, err := NewPipeline(cfg, Deps{Events: rec})
	require.NoError(t, err)
	return p, rec
}

func TestPipelineRun(t *testing.T) {
	p, rec := newTestPipeline(t, analysis())

	ctx := infrastructure.WithRunID(context.Background(), "run-1")
	r, err := p.Run(ctx, dataset())
	require.NoError(t, err)

	assert.Equal(t, "run-1", r.Metadata.RunID)
	assert.Equal(t, "abc123", r.Metadata.InputFingerprint)
	assert.Equal(t, "test.xlsx", r.Metadata.Origin)
	assert.Equal(t, "strict", r.Metadata.ParsePolicy)
	assert.Equal(t, 2, r.Metadata.TopN)
	assert.Equal(t, []string{"price", "volume"}, r.Metrics)

	require.Len(t, r.Months, 1)
	march := r.Months[0]
	assert.Equal(t, "2024-03", march.Month)
	require.Len(t, march.Rows, 2)
	assert.Equal(t, "Garlic", march.Rows[0].Commodity)
	assert.Equal(t, "Onion", march.Rows[1].Commodity)
	assert.Equal(t, 1150.0, march.Rows[1].MeanPrice)
	assert.Equal(t, 120.0, march.Rows[1].TotalVolume)

	cleaning := r.Diagnostics.Cleaning
	assert.Equal(t, 5, cleaning.Input)
	assert.Equal(t, 3, cleaning.Kept)
	assert.Equal(t, 1, cleaning.Excluded[string(domain.ExcludedUnparseableRate)])
	assert.Equal(t, 1, cleaning.Excluded[string(domain.ExcludedCodeOutOfRange)])

	assert.Equal(t, []string{
		"clean:started", "clean:completed",
		"aggregate:started", "aggregate:completed",
		"rank:started", "rank:completed",
		"assemble:started", "assemble:completed",
	}, rec.transitions())
	for _, e := range rec.events {
		assert.Equal(t, "run-1", e.RunID)
		assert.False(t, e.At.IsZero())
	}
}

func TestPipelineExecute(t *testing.T) {
	p, rec := newTestPipeline(t, analysis())

	r, err := p.Execute(context.Background(), staticSource{ds: dataset()})
	require.NoError(t, err)
	assert.NotEmpty(t, r.Metadata.RunID)

	transitions := rec.transitions()
	require.Len(t, transitions, 10)
	assert.Equal(t, "load:started", transitions[0])
	assert.Equal(t, "load:completed", transitions[1])
	assert.Equal(t, 5, rec.events[1].Detail["observations"])
	for _, e := range rec.events {
		assert.Equal(t, r.Metadata.RunID, e.RunID, "one run ID across load and rank")
	}
}

func TestPipelineLoadFailure(t *testing.T) {
	p, rec := newTestPipeline(t, analysis())

	boom := apperrors.NewStorageError("workbook unreadable", errors.New("boom"))
	_, err := p.Execute(context.Background(), staticSource{err: boom})
	require.ErrorIs(t, err, boom)

	assert.Equal(t, []string{"load:started", "load:failed"}, rec.transitions())
	failed := rec.events[1]
	assert.Equal(t, "static", failed.Detail["source"])
	assert.Contains(t, failed.Detail["error"], "workbook unreadable")
}

func TestPipelineCancelled(t *testing.T) {
	p, rec := newTestPipeline(t, analysis())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, dataset())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.transitions())
}

func TestPipelineNilDataset(t *testing.T) {
	p, _ := newTestPipeline(t, analysis())
	_, err := p.Run(context.Background(), nil)
	require.Error(t, err)
	errType, ok := apperrors.TypeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrTypeValidation, errType)
}

func TestNewPipelineConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.AnalysisConfig)
	}{
		{"degenerate value", func(c *config.AnalysisConfig) { c.DegenerateValue = 0.3 }},
		{"unknown metric", func(c *config.AnalysisConfig) { c.Metrics = []string{"price", "colour"} }},
		{"duplicate metric", func(c *config.AnalysisConfig) { c.Metrics = []string{"price", "price"} }},
		{"unknown strategy", func(c *config.AnalysisConfig) { c.Strategy = "median" }},
		{"zero top n", func(c *config.AnalysisConfig) { c.TopN = 0 }},
		{"unknown criteria", func(c *config.AnalysisConfig) { c.CriteriaMetrics = []string{"weight"} }},
		{"parse policy", func(c *config.AnalysisConfig) { c.RateParsePolicy = "lenient" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := analysis()
			tt.mutate(&cfg)
			_, err := NewPipeline(cfg, Deps{})
			require.Error(t, err)
			assert.True(t, apperrors.IsConfigError(err), "got %v", err)
		})
	}
}

func TestPipelineRunCriteria(t *testing.T) {
	p, rec := newTestPipeline(t, analysis())

	r, err := p.RunCriteria(context.Background(), dataset())
	require.NoError(t, err)

	assert.Equal(t, []string{"Price", "Quantity", "Productivity"}, r.Criteria)
	assert.Equal(t, "criteria(price, volume, productivity)", r.Metadata.Strategy)
	assert.Equal(t, config.DefaultCriteriaTopN, r.Metadata.TopN)
	require.Len(t, r.Rows, 6)

	price := r.RowsFor("Price")
	require.Len(t, price, 2)
	assert.Equal(t, "Garlic", price[0].Commodity)
	quantity := r.RowsFor("Quantity")
	require.Len(t, quantity, 2)
	assert.Equal(t, "Onion", quantity[0].Commodity)

	assert.Len(t, rec.transitions(), 8)
}

func TestPipelineStrategy(t *testing.T) {
	cfg := analysis()
	cfg.Strategy = config.StrategySingle
	cfg.Metric = "volume"
	p, _ := newTestPipeline(t, cfg)
	assert.Equal(t, domain.MetricVolume, p.Strategy().Metric)
}
