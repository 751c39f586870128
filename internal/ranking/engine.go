package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"agrirank/pkg/contracts/domain"
)

// Options tunes an Engine.
type Options struct {
	// Workers bounds how many buckets are ranked at once; 0 means GOMAXPROCS.
	Workers int
	Logger  *slog.Logger
}

// Engine normalizes and ranks every month bucket. It is the only place
// where summaries are compared, and it only compares within a bucket.
type Engine struct {
	strategy   Strategy
	normalizer Normalizer
	workers    int
	logger     *slog.Logger
}

// NewEngine creates an engine for strategy.
func NewEngine(strategy Strategy, normalizer Normalizer, opts Options) *Engine {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		strategy:   strategy,
		normalizer: normalizer,
		workers:    workers,
		logger:     logger.With(slog.String("component", "ranking_engine")),
	}
}

// Strategy returns the active strategy.
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// Run ranks every bucket present in summaries. The input is not modified.
// Buckets are independent and may be processed concurrently; the outcome
// is identical to a sequential run.
func (e *Engine) Run(ctx context.Context, summaries []domain.CommodityMonthSummary) (*Outcome, error) {
	start := time.Now()

	byBucket := make(map[domain.MonthBucket][]domain.CommodityMonthSummary)
	for _, s := range summaries {
		byBucket[s.Bucket] = append(byBucket[s.Bucket], s.Clone())
	}
	buckets := make([]domain.MonthBucket, 0, len(byBucket))
	for b := range byBucket {
		buckets = append(buckets, b)
	}
	sortBuckets(buckets)

	results := make([]BucketResult, len(buckets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, bucket := range buckets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.rankBucket(bucket, byBucket[bucket])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rank buckets: %w", err)
	}

	outcome := &Outcome{
		Strategy: e.strategy,
		Buckets:  buckets,
		Results:  make(map[domain.MonthBucket]BucketResult, len(buckets)),
	}
	for i, bucket := range buckets {
		outcome.Results[bucket] = results[i]
		outcome.Warnings = append(outcome.Warnings, results[i].Warnings...)
	}

	for _, w := range outcome.Warnings {
		e.logger.WarnContext(ctx, "degenerate bucket",
			slog.String("bucket", w.Bucket.String()),
			slog.String("kind", string(w.Kind)),
			slog.String("detail", w.String()))
	}
	e.logger.InfoContext(ctx, "ranking complete",
		slog.String("strategy", e.strategy.Describe()),
		slog.Int("buckets", len(buckets)),
		slog.Int("summaries", len(summaries)),
		slog.Int("warnings", len(outcome.Warnings)),
		slog.Duration("duration", time.Since(start)))

	return outcome, nil
}

// rankBucket works on its own copy of the bucket's summaries.
func (e *Engine) rankBucket(bucket domain.MonthBucket, summaries []domain.CommodityMonthSummary) BucketResult {
	var warnings []Warning

	for _, metric := range e.strategy.NormalizedMetrics() {
		idx := make([]int, 0, len(summaries))
		values := make([]float64, 0, len(summaries))
		for i, s := range summaries {
			if v, ok := metric.Value(s); ok {
				idx = append(idx, i)
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}

		normalized, degenerate := e.normalizer.Normalize(values)
		if degenerate {
			warnings = append(warnings, Warning{
				Bucket:      bucket,
				Kind:        WarningConstantMetric,
				Metric:      metric,
				Commodities: len(values),
			})
		}
		for j, i := range idx {
			if summaries[i].Normalized == nil {
				summaries[i].Normalized = make(map[domain.Metric]float64)
			}
			summaries[i].Normalized[metric] = normalized[j]
		}
	}

	ranking, scored := e.strategy.Rank(bucket, summaries)

	if eligible := e.strategy.Eligible(summaries); eligible < e.strategy.TopN {
		warnings = append(warnings, Warning{
			Bucket:      bucket,
			Kind:        WarningShortBucket,
			Commodities: eligible,
			TopN:        e.strategy.TopN,
		})
	}

	return BucketResult{Ranking: ranking, Scored: scored, Warnings: warnings}
}
