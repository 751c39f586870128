package report

import (
	"strings"

	"agrirank/internal/dataprocessing"
	"agrirank/internal/ranking"
	"agrirank/pkg/contracts/domain"
)

// CriteriaOutcome is the single-metric ranking for one criterion.
type CriteriaOutcome struct {
	Metric  domain.Metric
	Outcome *ranking.Outcome
}

// CriteriaRow is one line of the criteria table.
type CriteriaRow struct {
	Month         string   `json:"month"`
	Label         string   `json:"label"`
	Criteria      string   `json:"criteria"`
	Metric        string   `json:"metric"`
	Rank          int      `json:"rank"`
	SourceName    string   `json:"source_name"`
	Commodity     string   `json:"commodity"`
	AvgPrice      float64  `json:"avg_price"`
	TotalQuantity float64  `json:"total_quantity"`
	Productivity  *float64 `json:"productivity,omitempty"`
}

// CriteriaReport ranks every month separately on each criterion.
type CriteriaReport struct {
	Metadata    Metadata      `json:"metadata"`
	Criteria    []string      `json:"criteria"`
	Rows        []CriteriaRow `json:"rows"`
	Diagnostics Diagnostics   `json:"diagnostics"`
}

// CriteriaName returns the display name of a criterion.
func CriteriaName(m domain.Metric) string {
	switch m {
	case domain.MetricPrice:
		return "Price"
	case domain.MetricVolume:
		return "Quantity"
	case domain.MetricProductivity:
		return "Productivity"
	case domain.MetricTradingDays:
		return "Trading Days"
	case domain.MetricActivityRate:
		return "Activity"
	case domain.MetricRevenuePerAcre:
		return "Revenue"
	default:
		return string(m)
	}
}

// RowsFor returns the rows of one criterion in table order.
func (r *CriteriaReport) RowsFor(criteria string) []CriteriaRow {
	var rows []CriteriaRow
	for _, row := range r.Rows {
		if row.Criteria == criteria {
			rows = append(rows, row)
		}
	}
	return rows
}

// Months returns the distinct months of the report in order.
func (r *CriteriaReport) Months() []string {
	var months []string
	seen := make(map[string]bool)
	for _, row := range r.Rows {
		if !seen[row.Month] {
			seen[row.Month] = true
			months = append(months, row.Month)
		}
	}
	return months
}

// AssembleCriteria merges per-criterion outcomes into one table ordered by
// month, then criterion, then rank.
func (a *Assembler) AssembleCriteria(outcomes []CriteriaOutcome, meta Metadata, stats dataprocessing.CleaningStats) *CriteriaReport {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = a.now()
	}

	names := make([]string, len(outcomes))
	metrics := make([]string, len(outcomes))
	var buckets []domain.MonthBucket
	seen := make(map[domain.MonthBucket]bool)
	var warnings []ranking.Warning
	for i, co := range outcomes {
		names[i] = CriteriaName(co.Metric)
		metrics[i] = string(co.Metric)
		for _, b := range co.Outcome.Buckets {
			if !seen[b] {
				seen[b] = true
				buckets = append(buckets, b)
			}
		}
		warnings = append(warnings, co.Outcome.Warnings...)
		meta.TopN = co.Outcome.Strategy.TopN
	}
	sortMonthBuckets(buckets)

	meta.Strategy = "criteria(" + strings.Join(metrics, ", ") + ")"
	meta.StrategyKind = string(ranking.KindSingleMetric)

	r := &CriteriaReport{Metadata: meta, Criteria: names}
	for _, b := range buckets {
		for i, co := range outcomes {
			ranked, ok := co.Outcome.Ranking(b)
			if !ok {
				continue
			}
			for _, row := range ranked.Rows {
				s := row.Summary
				cr := CriteriaRow{
					Month:         b.String(),
					Label:         b.Label(),
					Criteria:      names[i],
					Metric:        metrics[i],
					Rank:          row.Rank,
					SourceName:    s.SourceName,
					Commodity:     s.Commodity,
					AvgPrice:      Round2(s.MeanPrice),
					TotalQuantity: Round2(s.TotalVolume),
				}
				if s.Productivity != nil {
					cr.Productivity = roundPtr(*s.Productivity, 2)
				}
				r.Rows = append(r.Rows, cr)
			}
		}
	}

	summaries := 0
	if len(outcomes) > 0 {
		for _, res := range outcomes[0].Outcome.Results {
			summaries += len(res.Scored)
		}
	}
	r.Diagnostics = newDiagnostics(warnings, stats, summaries, len(buckets))
	return r
}

func sortMonthBuckets(buckets []domain.MonthBucket) {
	for i := 1; i < len(buckets); i++ {
		for j := i; j > 0 && buckets[j].Before(buckets[j-1]); j-- {
			buckets[j], buckets[j-1] = buckets[j-1], buckets[j]
		}
	}
}
