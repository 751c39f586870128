package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"agrirank/internal/config"
	"agrirank/internal/dataprocessing"
	apperrors "agrirank/internal/errors"
	"agrirank/internal/infrastructure"
	"agrirank/internal/operations"
	"agrirank/internal/report"
	"agrirank/pkg/contracts/domain"
)

// AnalysisRequest overrides parts of the configured analysis for one
// request. Zero fields keep the configured value.
type AnalysisRequest struct {
	Strategy            string             `json:"strategy,omitempty" validate:"omitempty,oneof=composite single"`
	Metric              string             `json:"metric,omitempty" validate:"omitempty,metric"`
	Metrics             []string           `json:"metrics,omitempty" validate:"omitempty,dive,metric"`
	Weights             map[string]float64 `json:"weights,omitempty" validate:"omitempty,dive,keys,metric,endkeys,gte=0,lte=1"`
	TopN                int                `json:"top_n,omitempty" validate:"omitempty,gt=0,lte=100"`
	DegenerateValue     *float64           `json:"degenerate_value,omitempty"`
	MissingProductivity string             `json:"missing_productivity,omitempty" validate:"omitempty,oneof=default omit"`
	RateParsePolicy     string             `json:"rate_parse_policy,omitempty" validate:"omitempty,oneof=strict tolerant"`
}

// IsZero reports whether the request overrides nothing.
func (r AnalysisRequest) IsZero() bool {
	return r.Strategy == "" && r.Metric == "" && len(r.Metrics) == 0 && len(r.Weights) == 0 &&
		r.TopN == 0 && r.DegenerateValue == nil && r.MissingProductivity == "" && r.RateParsePolicy == ""
}

// Apply returns base with the request's overrides. Naming a metric list
// without weights resets the weights to equal shares.
func (r AnalysisRequest) Apply(base config.AnalysisConfig) config.AnalysisConfig {
	cfg := base
	if r.Strategy != "" {
		cfg.Strategy = r.Strategy
	}
	if r.Metric != "" {
		cfg.Metric = r.Metric
		if r.Strategy == "" {
			cfg.Strategy = config.StrategySingle
		}
	}
	if len(r.Metrics) > 0 {
		cfg.Metrics = append([]string(nil), r.Metrics...)
		cfg.Weights = nil
	}
	if len(r.Weights) > 0 {
		cfg.Weights = make(map[string]float64, len(r.Weights))
		for k, v := range r.Weights {
			cfg.Weights[k] = v
		}
	}
	if r.TopN > 0 {
		cfg.TopN = r.TopN
	}
	if r.DegenerateValue != nil {
		cfg.DegenerateValue = *r.DegenerateValue
	}
	if r.MissingProductivity != "" {
		cfg.MissingProductivity = r.MissingProductivity
	}
	if r.RateParsePolicy != "" {
		cfg.RateParsePolicy = r.RateParsePolicy
	}
	return cfg
}

// DatasetInfo describes the currently loaded source table.
type DatasetInfo struct {
	Origin       string    `json:"origin"`
	Fingerprint  string    `json:"fingerprint"`
	Observations int       `json:"observations"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// RankingService serves ranking reports over a cached dataset. The source
// is loaded on first use and again on Refresh; the default report is
// cached until the dataset changes.
type RankingService struct {
	cfg      config.AnalysisConfig
	source   dataprocessing.Source
	deps     operations.Deps
	pipeline *operations.Pipeline
	logger   *slog.Logger

	loads singleflight.Group

	mu       sync.RWMutex
	dataset  *dataprocessing.Dataset
	report   *report.Report
	criteria *report.CriteriaReport
}

// NewRankingService validates cfg and prepares the default pipeline.
func NewRankingService(cfg config.AnalysisConfig, source dataprocessing.Source, deps operations.Deps) (*RankingService, error) {
	pipeline, err := operations.NewPipeline(cfg, deps)
	if err != nil {
		return nil, err
	}
	return &RankingService{
		cfg:      cfg,
		source:   source,
		deps:     deps,
		pipeline: pipeline,
		logger:   infrastructure.WithComponent(deps.Logger, "ranking_service"),
	}, nil
}

// Strategy describes the configured ranking strategy.
func (s *RankingService) Strategy() string {
	return s.pipeline.Strategy().Describe()
}

// Refresh reloads the source and drops cached reports.
func (s *RankingService) Refresh(ctx context.Context) (DatasetInfo, error) {
	ds, err := s.load(ctx)
	if err != nil {
		return DatasetInfo{}, err
	}
	return infoOf(ds), nil
}

// Info returns the loaded dataset, if any.
func (s *RankingService) Info() (DatasetInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dataset == nil {
		return DatasetInfo{}, false
	}
	return infoOf(s.dataset), true
}

// Rankings returns the report for the configured analysis with req applied.
func (s *RankingService) Rankings(ctx context.Context, req AnalysisRequest) (*report.Report, error) {
	ds, err := s.currentDataset(ctx)
	if err != nil {
		return nil, err
	}

	if req.IsZero() {
		s.mu.RLock()
		cached := s.report
		s.mu.RUnlock()
		if cached != nil && cached.Metadata.InputFingerprint == ds.Fingerprint {
			return cached, nil
		}
	}

	pipeline := s.pipeline
	if !req.IsZero() {
		pipeline, err = operations.NewPipeline(req.Apply(s.cfg), s.deps)
		if err != nil {
			return nil, err
		}
	}

	r, err := pipeline.Run(ctx, ds)
	if err != nil {
		return nil, err
	}

	if req.IsZero() {
		s.mu.Lock()
		if s.dataset == ds {
			s.report = r
		}
		s.mu.Unlock()
	}
	return r, nil
}

// Month returns one month of the report for req. month is YYYY-MM.
func (s *RankingService) Month(ctx context.Context, month string, req AnalysisRequest) (report.Month, error) {
	bucket, err := domain.ParseMonthBucket(month)
	if err != nil {
		return report.Month{}, apperrors.NewAppValidationError(fmt.Sprintf("invalid month %q, want YYYY-MM", month))
	}

	r, err := s.Rankings(ctx, req)
	if err != nil {
		return report.Month{}, err
	}
	m, ok := r.Month(bucket.String())
	if !ok {
		return report.Month{}, apperrors.NewNotFoundError("month " + bucket.String())
	}
	return m, nil
}

// Criteria returns the per-criterion report.
func (s *RankingService) Criteria(ctx context.Context) (*report.CriteriaReport, error) {
	ds, err := s.currentDataset(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	cached := s.criteria
	s.mu.RUnlock()
	if cached != nil && cached.Metadata.InputFingerprint == ds.Fingerprint {
		return cached, nil
	}

	r, err := s.pipeline.RunCriteria(ctx, ds)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.dataset == ds {
		s.criteria = r
	}
	s.mu.Unlock()
	return r, nil
}

func (s *RankingService) currentDataset(ctx context.Context) (*dataprocessing.Dataset, error) {
	s.mu.RLock()
	ds := s.dataset
	s.mu.RUnlock()
	if ds != nil {
		return ds, nil
	}
	return s.load(ctx)
}

// load reads the source once for any number of concurrent callers.
func (s *RankingService) load(ctx context.Context) (*dataprocessing.Dataset, error) {
	v, err, shared := s.loads.Do("source", func() (interface{}, error) {
		ds, err := s.pipeline.Load(ctx, s.source)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.dataset = ds
		s.report = nil
		s.criteria = nil
		s.mu.Unlock()
		return ds, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "source load failed",
			slog.String("source", s.source.Describe()),
			slog.String("error", err.Error()))
		return nil, err
	}

	ds := v.(*dataprocessing.Dataset)
	if !shared {
		s.logger.InfoContext(ctx, "source loaded",
			slog.String("source", s.source.Describe()),
			slog.Int("observations", len(ds.Observations)),
			slog.String("fingerprint", ds.Fingerprint))
	}
	return ds, nil
}

func infoOf(ds *dataprocessing.Dataset) DatasetInfo {
	return DatasetInfo{
		Origin:       ds.Origin,
		Fingerprint:  ds.Fingerprint,
		Observations: len(ds.Observations),
		LoadedAt:     ds.LoadedAt,
	}
}
