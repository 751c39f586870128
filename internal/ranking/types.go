package ranking

import (
	"fmt"
	"sort"

	"agrirank/pkg/contracts/domain"
)

// Kind selects a ranking strategy variant.
type Kind string

const (
	// KindSingleMetric orders by one raw metric.
	KindSingleMetric Kind = "single"
	// KindWeightedComposite orders by a weighted sum of normalized metrics.
	KindWeightedComposite Kind = "composite"
)

// WarningKind classifies a degenerate bucket.
type WarningKind string

const (
	// WarningShortBucket means a bucket had fewer qualifying commodities than top N.
	WarningShortBucket WarningKind = "short_bucket"
	// WarningConstantMetric means a metric had the same value for every commodity in a bucket.
	WarningConstantMetric WarningKind = "constant_metric"
)

// Warning reports a degenerate bucket. It never aborts a run.
type Warning struct {
	Bucket      domain.MonthBucket `json:"bucket"`
	Kind        WarningKind        `json:"kind"`
	Metric      domain.Metric      `json:"metric,omitempty"`
	Commodities int                `json:"commodities"`
	TopN        int                `json:"top_n,omitempty"`
}

func (w Warning) String() string {
	switch w.Kind {
	case WarningShortBucket:
		return fmt.Sprintf("%s: %d qualifying commodities, fewer than top %d", w.Bucket, w.Commodities, w.TopN)
	case WarningConstantMetric:
		return fmt.Sprintf("%s: %s is constant across %d commodities", w.Bucket, w.Metric, w.Commodities)
	default:
		return fmt.Sprintf("%s: %s", w.Bucket, w.Kind)
	}
}

// BucketResult is the ranking of one month.
type BucketResult struct {
	Ranking domain.RankingResult
	// Scored holds every summary of the bucket with normalized values and
	// score filled in, in ranking order. Commodities that could not be
	// ranked follow the ranked ones.
	Scored   []domain.CommodityMonthSummary
	Warnings []Warning
}

// Outcome is the result of one engine run.
type Outcome struct {
	Strategy Strategy
	Buckets  []domain.MonthBucket
	Results  map[domain.MonthBucket]BucketResult
	Warnings []Warning
}

// Ranking returns the ranking of bucket.
func (o *Outcome) Ranking(bucket domain.MonthBucket) (domain.RankingResult, bool) {
	r, ok := o.Results[bucket]
	if !ok {
		return domain.RankingResult{}, false
	}
	return r.Ranking, true
}

// Rankings returns the ranking of every bucket in month order.
func (o *Outcome) Rankings() []domain.RankingResult {
	out := make([]domain.RankingResult, 0, len(o.Buckets))
	for _, b := range o.Buckets {
		out = append(out, o.Results[b].Ranking)
	}
	return out
}

// WarningCounts counts warnings by kind.
func (o *Outcome) WarningCounts() map[WarningKind]int {
	counts := make(map[WarningKind]int)
	for _, w := range o.Warnings {
		counts[w.Kind]++
	}
	return counts
}

func sortBuckets(buckets []domain.MonthBucket) {
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Before(buckets[j]) })
}
