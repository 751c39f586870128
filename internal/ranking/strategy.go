package ranking

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"agrirank/internal/config"
	apperrors "agrirank/internal/errors"
	"agrirank/pkg/contracts/domain"
)

// Strategy orders the commodities of one bucket. It is a closed set of
// variants selected by Kind; the zero value is invalid.
type Strategy struct {
	Kind Kind `json:"kind"`
	// Metric is the ordering key of a single-metric strategy.
	Metric domain.Metric `json:"metric,omitempty"`
	// Metrics and Weights define a weighted composite. Metrics keeps the
	// configured order for reporting.
	Metrics []domain.Metric           `json:"metrics,omitempty"`
	Weights map[domain.Metric]float64 `json:"weights,omitempty"`
	TopN    int                       `json:"top_n"`
}

// NewSingleMetric returns a strategy ordering by metric, highest first.
func NewSingleMetric(metric domain.Metric, topN int) (Strategy, error) {
	if _, err := domain.ParseMetric(string(metric)); err != nil {
		return Strategy{}, apperrors.NewConfigError("unknown ranking metric", err).WithContext("field", "metric")
	}
	if err := checkTopN(topN); err != nil {
		return Strategy{}, err
	}
	return Strategy{Kind: KindSingleMetric, Metric: metric, TopN: topN}, nil
}

// NewWeightedComposite returns a strategy ordering by the weighted sum of
// normalized metrics. Weights must cover exactly the listed metrics and sum
// to 1; they are never rescaled.
func NewWeightedComposite(metrics []domain.Metric, weights map[domain.Metric]float64, topN int) (Strategy, error) {
	if len(metrics) == 0 {
		return Strategy{}, apperrors.NewConfigError("composite strategy needs at least one metric", nil).
			WithContext("field", "metrics")
	}
	if err := checkTopN(topN); err != nil {
		return Strategy{}, err
	}

	seen := make(map[domain.Metric]bool, len(metrics))
	sum := 0.0
	for _, m := range metrics {
		if _, err := domain.ParseMetric(string(m)); err != nil {
			return Strategy{}, apperrors.NewConfigError("unknown ranking metric", err).WithContext("field", "metrics")
		}
		if seen[m] {
			return Strategy{}, apperrors.NewConfigError(fmt.Sprintf("metric %q listed twice", m), nil).
				WithContext("field", "metrics")
		}
		seen[m] = true

		w, ok := weights[m]
		if !ok {
			return Strategy{}, apperrors.NewConfigError(fmt.Sprintf("no weight given for metric %q", m), nil).
				WithContext("field", "weights")
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return Strategy{}, apperrors.NewConfigError(fmt.Sprintf("invalid weight %v for metric %q", w, m), nil).
				WithContext("field", "weights")
		}
		sum += w
	}
	if len(weights) != len(metrics) {
		return Strategy{}, apperrors.NewConfigError("weights name metrics that are not ranked", nil).
			WithContext("field", "weights")
	}
	if math.Abs(sum-1) > config.WeightTolerance {
		return Strategy{}, apperrors.NewConfigError(fmt.Sprintf("weights must sum to 1.0, got %.6f", sum), nil).
			WithContext("field", "weights")
	}

	copied := make(map[domain.Metric]float64, len(weights))
	for m, w := range weights {
		copied[m] = w
	}
	return Strategy{
		Kind:    KindWeightedComposite,
		Metrics: append([]domain.Metric(nil), metrics...),
		Weights: copied,
		TopN:    topN,
	}, nil
}

// EqualWeights returns 1/k for each of k metrics.
func EqualWeights(metrics []domain.Metric) map[domain.Metric]float64 {
	weights := make(map[domain.Metric]float64, len(metrics))
	for _, m := range metrics {
		weights[m] = 1 / float64(len(metrics))
	}
	return weights
}

// FromConfig builds the strategy described by cfg.
func FromConfig(cfg config.AnalysisConfig) (Strategy, error) {
	switch cfg.Strategy {
	case config.StrategySingle:
		metric, err := domain.ParseMetric(cfg.Metric)
		if err != nil {
			return Strategy{}, apperrors.NewConfigError("unknown ranking metric", err).WithContext("field", "metric")
		}
		return NewSingleMetric(metric, cfg.TopN)
	case config.StrategyComposite:
		metrics, weights, err := cfg.ResolvedWeights()
		if err != nil {
			return Strategy{}, err
		}
		return NewWeightedComposite(metrics, weights, cfg.TopN)
	default:
		return Strategy{}, apperrors.NewConfigError(fmt.Sprintf("unknown ranking strategy %q", cfg.Strategy), nil).
			WithContext("field", "strategy")
	}
}

func checkTopN(topN int) error {
	if topN <= 0 {
		return apperrors.NewConfigError(fmt.Sprintf("top_n must be positive, got %d", topN), nil).
			WithContext("field", "top_n")
	}
	return nil
}

// NormalizedMetrics lists the metrics the engine must normalize.
func (s Strategy) NormalizedMetrics() []domain.Metric {
	if s.Kind == KindWeightedComposite {
		return s.Metrics
	}
	return nil
}

// Describe renders the strategy for report metadata, e.g.
// "composite(price=0.5000, volume=0.5000)".
func (s Strategy) Describe() string {
	switch s.Kind {
	case KindSingleMetric:
		return fmt.Sprintf("single(%s)", s.Metric)
	case KindWeightedComposite:
		parts := make([]string, len(s.Metrics))
		for i, m := range s.Metrics {
			parts[i] = string(m) + "=" + strconv.FormatFloat(s.Weights[m], 'f', 4, 64)
		}
		return "composite(" + strings.Join(parts, ", ") + ")"
	default:
		return "invalid"
	}
}

// Rank scores the summaries of a single bucket, orders them and keeps the
// top N. Summaries must already carry their normalized values. The
// returned scored slice covers every input summary in ranking order.
func (s Strategy) Rank(bucket domain.MonthBucket, summaries []domain.CommodityMonthSummary) (domain.RankingResult, []domain.CommodityMonthSummary) {
	scored := make([]domain.CommodityMonthSummary, len(summaries))
	eligible := make([]bool, len(summaries))
	for i, sum := range summaries {
		scored[i] = sum
		scored[i].Score, eligible[i] = s.score(sum)
	}

	order := make([]int, len(scored))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		x, y := order[a], order[b]
		if eligible[x] != eligible[y] {
			return eligible[x]
		}
		if scored[x].Score != scored[y].Score {
			return scored[x].Score > scored[y].Score
		}
		return scored[x].Commodity < scored[y].Commodity
	})

	ordered := make([]domain.CommodityMonthSummary, len(order))
	result := domain.RankingResult{Bucket: bucket, Rows: []domain.RankedCommodity{}}
	for pos, idx := range order {
		ordered[pos] = scored[idx]
		if eligible[idx] && len(result.Rows) < s.TopN {
			result.Rows = append(result.Rows, domain.RankedCommodity{
				Rank:    len(result.Rows) + 1,
				Summary: scored[idx],
			})
		}
	}
	return result, ordered
}

// score returns the ordering key of one summary. A single-metric summary
// whose metric is absent cannot be ranked. In a composite an absent
// normalized metric contributes nothing.
func (s Strategy) score(sum domain.CommodityMonthSummary) (float64, bool) {
	if s.Kind == KindSingleMetric {
		return s.Metric.Value(sum)
	}
	total := 0.0
	for _, m := range s.Metrics {
		total += s.Weights[m] * sum.Normalized[m]
	}
	return total, true
}

// Eligible counts the summaries Rank would consider.
func (s Strategy) Eligible(summaries []domain.CommodityMonthSummary) int {
	n := 0
	for _, sum := range summaries {
		if _, ok := s.score(sum); ok {
			n++
		}
	}
	return n
}
