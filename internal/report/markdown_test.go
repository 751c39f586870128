package report

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrirank/internal/dataprocessing"
	"agrirank/internal/ranking"
	"agrirank/pkg/contracts/domain"
)

func TestRenderMarkdown(t *testing.T) {
	a := &Assembler{now: func() time.Time { return fixed }}
	r := a.Assemble(compositeOutcome(t, 2), Metadata{
		RunID:               "run-7",
		Origin:              "workbook:rates.xlsx",
		ParsePolicy:         "strict",
		MissingProductivity: "default(50)",
	}, stats())

	md := RenderMarkdown(r)

	assert.True(t, strings.HasPrefix(md, "# Commodity Ranking Report\n\n"))
	assert.Contains(t, md, "Generated: 2024-05-01T12:00:00Z")
	assert.Contains(t, md, "| Run | run-7 |")
	assert.Contains(t, md, "| Source | workbook:rates.xlsx |")
	assert.Contains(t, md, "| Strategy | composite(price=0.5000, volume=0.5000) |")
	assert.Contains(t, md, "| Degenerate Value | 0 |")
	assert.Contains(t, md, "### March 2024")
	assert.Contains(t, md, "### April 2024")
	assert.Contains(t, md, "| Excluded: unparseable_rate | 2 |")
	assert.Contains(t, md, "| Excluded: invalid_date | 0 |")
	assert.Contains(t, md, "### Warnings")
	assert.Contains(t, md, "- 2024-04: 1 qualifying commodities, fewer than top 2")
	assert.NotContains(t, md, "| Input Fingerprint |")

	// Potato has no productivity.
	assert.Contains(t, md, "| Potato | 800.00 | 300.00 | 3 | - |")
}

func TestRenderMarkdownEmpty(t *testing.T) {
	r := NewAssembler().Assemble(&ranking.Outcome{}, Metadata{}, stats())
	md := RenderMarkdown(r)
	assert.Contains(t, md, "No months to rank.")
	assert.NotContains(t, md, "### Warnings")
}

func TestRenderCriteriaMarkdown(t *testing.T) {
	s, err := ranking.NewSingleMetric(domain.MetricVolume, 2)
	require.NoError(t, err)
	outcomes := []CriteriaOutcome{{Metric: domain.MetricVolume, Outcome: run(t, s, fixture())}}

	md := RenderCriteriaMarkdown(NewAssembler().AssembleCriteria(outcomes, Metadata{}, stats()))

	assert.Contains(t, md, "# Commodity Criteria Report")
	assert.Contains(t, md, "## Top 2 by Quantity")
	assert.Contains(t, md, "| March 2024 | 1 | Potato (local) | Potato | 800.00 | 300.00 | - |")
	assert.Contains(t, md, "| April 2024 | 1 | Onion (local) | Onion | 1000.00 | 90.00 | 100.00 |")
}

func Example_assemble() {
	metrics := []domain.Metric{domain.MetricPrice, domain.MetricVolume}
	strategy, _ := ranking.NewWeightedComposite(metrics, ranking.EqualWeights(metrics), 3)
	normalizer, _ := ranking.NewNormalizer(0)
	engine := ranking.NewEngine(strategy, normalizer, ranking.Options{Workers: 1})

	june := domain.MonthBucket{Year: 2024, Month: time.June}
	outcome, _ := engine.Run(context.Background(), []domain.CommodityMonthSummary{
		{Bucket: june, Commodity: "Tomato", MeanPrice: 1500.333, TotalVolume: 900, TradingDays: 20},
		{Bucket: june, Commodity: "Capsicum", MeanPrice: 3000, TotalVolume: 300, TradingDays: 18},
		{Bucket: june, Commodity: "Cabbage", MeanPrice: 1000, TotalVolume: 1200, TradingDays: 22},
	})

	r := NewAssembler().Assemble(outcome, Metadata{}, dataprocessing.CleaningStats{})
	for _, m := range r.Months {
		fmt.Println(m.Label)
		for _, row := range m.Rows {
			fmt.Printf("%d. %s %.2f %.4f\n", row.Rank, row.Commodity, row.MeanPrice, row.Score)
		}
	}
	// Output:
	// June 2024
	// 1. Cabbage 1000.00 0.5000
	// 2. Capsicum 3000.00 0.5000
	// 3. Tomato 1500.33 0.4584
}
