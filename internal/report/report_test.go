package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrirank/internal/dataprocessing"
	"agrirank/internal/ranking"
	"agrirank/pkg/contracts/domain"
)

var (
	march = domain.MonthBucket{Year: 2024, Month: time.March}
	april = domain.MonthBucket{Year: 2024, Month: time.April}
	fixed = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func summary(bucket domain.MonthBucket, name string, price, volume float64, days int, productivity float64) domain.CommodityMonthSummary {
	s := domain.CommodityMonthSummary{
		Bucket:      bucket,
		Commodity:   name,
		SourceName:  name + " (local)",
		MeanPrice:   price,
		TotalVolume: volume,
		TradingDays: days,
	}
	if productivity > 0 {
		s.Productivity = &productivity
	}
	return s
}

func fixture() []domain.CommodityMonthSummary {
	return []domain.CommodityMonthSummary{
		summary(march, "Onion", 1150.556, 120, 2, 100),
		summary(march, "Garlic", 3000, 40, 1, 40),
		summary(march, "Potato", 800, 300, 3, 0),
		summary(april, "Onion", 1000, 90, 3, 100),
	}
}

func run(t *testing.T, s ranking.Strategy, in []domain.CommodityMonthSummary) *ranking.Outcome {
	t.Helper()
	n, err := ranking.NewNormalizer(0)
	require.NoError(t, err)
	outcome, err := ranking.NewEngine(s, n, ranking.Options{Workers: 1}).Run(context.Background(), in)
	require.NoError(t, err)
	return outcome
}

func compositeOutcome(t *testing.T, topN int) *ranking.Outcome {
	t.Helper()
	metrics := []domain.Metric{domain.MetricPrice, domain.MetricVolume}
	s, err := ranking.NewWeightedComposite(metrics, ranking.EqualWeights(metrics), topN)
	require.NoError(t, err)
	return run(t, s, fixture())
}

func stats() dataprocessing.CleaningStats {
	return dataprocessing.CleaningStats{
		Input: 10,
		Kept:  7,
		Excluded: map[domain.ExclusionReason]int{
			domain.ExcludedUnparseableRate: 2,
			domain.ExcludedNotInVocabulary: 1,
		},
	}
}

func TestAssemble(t *testing.T) {
	a := &Assembler{now: func() time.Time { return fixed }}
	r := a.Assemble(compositeOutcome(t, 2), Metadata{RunID: "run-1", ParsePolicy: "strict"}, stats())

	assert.Equal(t, fixed, r.Metadata.GeneratedAt)
	assert.Equal(t, "run-1", r.Metadata.RunID)
	assert.Equal(t, "composite(price=0.5000, volume=0.5000)", r.Metadata.Strategy)
	assert.Equal(t, "composite", r.Metadata.StrategyKind)
	assert.Equal(t, 2, r.Metadata.TopN)
	assert.Equal(t, []string{"price", "volume"}, r.Metrics)

	require.Len(t, r.Months, 2)
	assert.Equal(t, "2024-03", r.Months[0].Month)
	assert.Equal(t, "March 2024", r.Months[0].Label)
	require.Len(t, r.Months[0].Rows, 2, "truncated to top N")
	assert.Equal(t, 1, r.Months[0].Rows[0].Rank)
	assert.Equal(t, 2, r.Months[0].Rows[1].Rank)

	// Every scored commodity-month appears in Scores, ranked or not.
	assert.Len(t, r.Scores, 4)
	unranked := 0
	for _, row := range r.Scores {
		if row.Rank == 0 {
			unranked++
		}
	}
	assert.Equal(t, 1, unranked)

	assert.Equal(t, 4, r.Diagnostics.Summaries)
	assert.Equal(t, 2, r.Diagnostics.Months)
	assert.Equal(t, 10, r.Diagnostics.Cleaning.Input)
	assert.Equal(t, 7, r.Diagnostics.Cleaning.Kept)
	assert.Len(t, r.Diagnostics.Cleaning.Excluded, len(domain.ExclusionReasons))
	assert.Equal(t, 2, r.Diagnostics.Cleaning.Excluded["unparseable_rate"])
	assert.Equal(t, 0, r.Diagnostics.Cleaning.Excluded["invalid_date"])
}

func TestAssembleRounding(t *testing.T) {
	a := &Assembler{now: func() time.Time { return fixed }}
	r := a.Assemble(compositeOutcome(t, 10), Metadata{}, stats())

	m, ok := r.Month("2024-03")
	require.True(t, ok)
	var onion Row
	for _, row := range m.Rows {
		if row.Commodity == "Onion" {
			onion = row
		}
	}
	assert.Equal(t, 1150.56, onion.MeanPrice)
	assert.Equal(t, "Onion (local)", onion.SourceName)
	require.NotNil(t, onion.ActivityRate)
	assert.Equal(t, 60.0, *onion.ActivityRate)
	require.NotNil(t, onion.RevenuePerAcre)
	assert.InDelta(t, 115055.6, *onion.RevenuePerAcre, 1e-9)

	// price (1150.556-800)/2200 = 0.15934, volume (120-40)/260 = 0.30769
	assert.Equal(t, 0.1593, onion.Normalized["price"])
	assert.Equal(t, 0.3077, onion.Normalized["volume"])
	assert.Equal(t, 0.2335, onion.Score)

	for _, row := range m.Rows {
		if row.Commodity == "Potato" {
			assert.Nil(t, row.Productivity)
			assert.Nil(t, row.RevenuePerAcre)
		}
	}

	_, ok = r.Month("2024-05")
	assert.False(t, ok)
}

func TestAssembleWarnings(t *testing.T) {
	a := NewAssembler()
	r := a.Assemble(compositeOutcome(t, 2), Metadata{}, stats())

	assert.False(t, r.Metadata.GeneratedAt.IsZero())
	// April has a single commodity: both metrics are constant and the
	// bucket is short of top 2.
	assert.Equal(t, map[string]int{"constant_metric": 2, "short_bucket": 1}, r.Diagnostics.WarningCounts)
	for _, w := range r.Diagnostics.Warnings {
		assert.Equal(t, "2024-04", w.Month)
		assert.NotEmpty(t, w.Detail)
	}
}

func TestRoundHelpers(t *testing.T) {
	tests := []struct {
		in     float64
		round2 float64
		round4 float64
	}{
		{1.005, 1.0, 1.005},
		{2.675, 2.68, 2.675},
		{0.123456, 0.12, 0.1235},
		{-3.14159, -3.14, -3.1416},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.round2, Round2(tt.in), 0.011)
		assert.Equal(t, tt.round4, Round4(tt.in))
	}
}

func TestCommodities(t *testing.T) {
	rows := []Row{{Commodity: "Onion"}, {Commodity: "Garlic"}, {Commodity: "Onion"}}
	assert.Equal(t, []string{"Garlic", "Onion"}, Commodities(rows))
	assert.Nil(t, Commodities(nil))
}

func TestAssembleCriteria(t *testing.T) {
	var outcomes []CriteriaOutcome
	for _, m := range []domain.Metric{domain.MetricPrice, domain.MetricVolume, domain.MetricProductivity} {
		s, err := ranking.NewSingleMetric(m, 2)
		require.NoError(t, err)
		outcomes = append(outcomes, CriteriaOutcome{Metric: m, Outcome: run(t, s, fixture())})
	}

	a := &Assembler{now: func() time.Time { return fixed }}
	r := a.AssembleCriteria(outcomes, Metadata{}, stats())

	assert.Equal(t, []string{"Price", "Quantity", "Productivity"}, r.Criteria)
	assert.Equal(t, "criteria(price, volume, productivity)", r.Metadata.Strategy)
	assert.Equal(t, "single", r.Metadata.StrategyKind)
	assert.Equal(t, 2, r.Metadata.TopN)
	assert.Equal(t, []string{"2024-03", "2024-04"}, r.Months())

	price := r.RowsFor("Price")
	require.Len(t, price, 3)
	assert.Equal(t, "Garlic", price[0].Commodity)
	assert.Equal(t, "Onion", price[1].Commodity)
	assert.Equal(t, 1150.56, price[1].AvgPrice)
	assert.Equal(t, "2024-04", price[2].Month)

	quantity := r.RowsFor("Quantity")
	require.Len(t, quantity, 3)
	assert.Equal(t, "Potato", quantity[0].Commodity)
	assert.Equal(t, 300.0, quantity[0].TotalQuantity)

	// Potato has no productivity and is not eligible on that criterion.
	productivity := r.RowsFor("Productivity")
	require.Len(t, productivity, 3)
	assert.Equal(t, "Onion", productivity[0].Commodity)
	assert.Equal(t, "Garlic", productivity[1].Commodity)
	require.NotNil(t, productivity[1].Productivity)
	assert.Equal(t, 40.0, *productivity[1].Productivity)

	// Row order: month, then criterion, then rank.
	assert.Equal(t, "Price", r.Rows[0].Criteria)
	assert.Equal(t, "Quantity", r.Rows[2].Criteria)
	assert.Equal(t, "Productivity", r.Rows[4].Criteria)
	assert.Equal(t, "2024-04", r.Rows[6].Month)

	assert.Equal(t, 4, r.Diagnostics.Summaries)
	assert.Equal(t, 2, r.Diagnostics.Months)
}

func TestCriteriaName(t *testing.T) {
	assert.Equal(t, "Price", CriteriaName(domain.MetricPrice))
	assert.Equal(t, "Quantity", CriteriaName(domain.MetricVolume))
	assert.Equal(t, "Revenue", CriteriaName(domain.MetricRevenuePerAcre))
	assert.Equal(t, "mystery", CriteriaName(domain.Metric("mystery")))
}
