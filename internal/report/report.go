package report

import (
	"math"
	"sort"
	"time"

	"agrirank/internal/dataprocessing"
	"agrirank/internal/ranking"
	"agrirank/pkg/contracts/domain"
)

// Metadata describes how a report was produced.
type Metadata struct {
	RunID               string    `json:"run_id"`
	GeneratedAt         time.Time `json:"generated_at"`
	InputFingerprint    string    `json:"input_fingerprint,omitempty"`
	Origin              string    `json:"origin,omitempty"`
	Strategy            string    `json:"strategy"`
	StrategyKind        string    `json:"strategy_kind"`
	TopN                int       `json:"top_n"`
	ParsePolicy         string    `json:"rate_parse_policy"`
	DegenerateValue     float64   `json:"degenerate_value"`
	MissingProductivity string    `json:"missing_productivity"`
	Filter              string    `json:"filter"`
}

// Cleaning reports what the cleaner kept and dropped.
type Cleaning struct {
	Input    int            `json:"input"`
	Kept     int            `json:"kept"`
	Excluded map[string]int `json:"excluded"`
}

// CleaningFromStats converts cleaner statistics, listing every known
// exclusion reason even when its count is zero.
func CleaningFromStats(stats dataprocessing.CleaningStats) Cleaning {
	c := Cleaning{
		Input:    stats.Input,
		Kept:     stats.Kept,
		Excluded: make(map[string]int, len(domain.ExclusionReasons)),
	}
	for _, reason := range domain.ExclusionReasons {
		c.Excluded[string(reason)] = stats.Excluded[reason]
	}
	return c
}

// WarningRow is a degenerate-bucket warning in report form.
type WarningRow struct {
	Month       string `json:"month"`
	Kind        string `json:"kind"`
	Metric      string `json:"metric,omitempty"`
	Commodities int    `json:"commodities"`
	TopN        int    `json:"top_n,omitempty"`
	Detail      string `json:"detail"`
}

// Diagnostics is the audit section of a report.
type Diagnostics struct {
	Cleaning      Cleaning       `json:"cleaning"`
	Summaries     int            `json:"summaries"`
	Months        int            `json:"months"`
	Warnings      []WarningRow   `json:"warnings"`
	WarningCounts map[string]int `json:"warning_counts"`
}

// Row is one commodity-month in a report. Currency and volume figures carry
// two decimals, normalized values and scores four.
type Row struct {
	Month          string             `json:"month"`
	Rank           int                `json:"rank,omitempty"`
	Commodity      string             `json:"commodity"`
	SourceName     string             `json:"source_name"`
	Code           int                `json:"code,omitempty"`
	MeanPrice      float64            `json:"mean_price"`
	TotalVolume    float64            `json:"total_volume"`
	TradingDays    int                `json:"trading_days"`
	ActivityRate   *float64           `json:"activity_rate,omitempty"`
	Productivity   *float64           `json:"productivity,omitempty"`
	RevenuePerAcre *float64           `json:"revenue_per_acre,omitempty"`
	Normalized     map[string]float64 `json:"normalized,omitempty"`
	Score          float64            `json:"score"`
}

// Month is the ranked table of one calendar month.
type Month struct {
	Month string `json:"month"`
	Label string `json:"label"`
	Rows  []Row  `json:"rows"`
}

// Report is the output contract of a ranking run.
type Report struct {
	Metadata Metadata `json:"metadata"`
	// Metrics lists the normalized metrics in configured order.
	Metrics     []string    `json:"metrics"`
	Months      []Month     `json:"months"`
	Scores      []Row       `json:"scores"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Month returns the table for a YYYY-MM month.
func (r *Report) Month(month string) (Month, bool) {
	for _, m := range r.Months {
		if m.Month == month {
			return m, true
		}
	}
	return Month{}, false
}

// Assembler shapes engine outcomes into reports. Rounding happens here and
// nowhere else.
type Assembler struct {
	now func() time.Time
}

// NewAssembler returns an assembler stamping reports with the current time.
func NewAssembler() *Assembler {
	return &Assembler{now: func() time.Time { return time.Now().UTC() }}
}

// Assemble builds the report for outcome.
func (a *Assembler) Assemble(outcome *ranking.Outcome, meta Metadata, stats dataprocessing.CleaningStats) *Report {
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = a.now()
	}
	meta.Strategy = outcome.Strategy.Describe()
	meta.StrategyKind = string(outcome.Strategy.Kind)
	meta.TopN = outcome.Strategy.TopN

	r := &Report{
		Metadata: meta,
		Metrics:  metricNames(outcome.Strategy.NormalizedMetrics()),
		Months:   make([]Month, 0, len(outcome.Buckets)),
	}

	summaries := 0
	for _, bucket := range outcome.Buckets {
		result := outcome.Results[bucket]
		month := Month{Month: bucket.String(), Label: bucket.Label(), Rows: make([]Row, 0, len(result.Ranking.Rows))}
		ranks := make(map[string]int, len(result.Ranking.Rows))
		for _, ranked := range result.Ranking.Rows {
			month.Rows = append(month.Rows, newRow(ranked.Summary, ranked.Rank))
			ranks[ranked.Summary.Commodity] = ranked.Rank
		}
		r.Months = append(r.Months, month)

		for _, s := range result.Scored {
			r.Scores = append(r.Scores, newRow(s, ranks[s.Commodity]))
		}
		summaries += len(result.Scored)
	}

	r.Diagnostics = newDiagnostics(outcome.Warnings, stats, summaries, len(outcome.Buckets))
	return r
}

func newDiagnostics(warnings []ranking.Warning, stats dataprocessing.CleaningStats, summaries, months int) Diagnostics {
	d := Diagnostics{
		Cleaning:      CleaningFromStats(stats),
		Summaries:     summaries,
		Months:        months,
		Warnings:      make([]WarningRow, 0, len(warnings)),
		WarningCounts: make(map[string]int),
	}
	for _, w := range warnings {
		d.Warnings = append(d.Warnings, WarningRow{
			Month:       w.Bucket.String(),
			Kind:        string(w.Kind),
			Metric:      string(w.Metric),
			Commodities: w.Commodities,
			TopN:        w.TopN,
			Detail:      w.String(),
		})
		d.WarningCounts[string(w.Kind)]++
	}
	return d
}

func newRow(s domain.CommodityMonthSummary, rank int) Row {
	row := Row{
		Month:       s.Bucket.String(),
		Rank:        rank,
		Commodity:   s.Commodity,
		SourceName:  s.SourceName,
		Code:        s.CommodityCode,
		MeanPrice:   Round2(s.MeanPrice),
		TotalVolume: Round2(s.TotalVolume),
		TradingDays: s.TradingDays,
		Score:       Round4(s.Score),
	}
	if v, ok := s.ActivityRate(); ok {
		row.ActivityRate = roundPtr(v, 2)
	}
	if s.Productivity != nil {
		row.Productivity = roundPtr(*s.Productivity, 2)
	}
	if v, ok := s.RevenuePerAcre(); ok {
		row.RevenuePerAcre = roundPtr(v, 2)
	}
	if len(s.Normalized) > 0 {
		row.Normalized = make(map[string]float64, len(s.Normalized))
		for m, v := range s.Normalized {
			row.Normalized[string(m)] = Round4(v)
		}
	}
	return row
}

func metricNames(metrics []domain.Metric) []string {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = string(m)
	}
	return names
}

// Round2 rounds currency and volume figures.
func Round2(v float64) float64 {
	return roundTo(v, 2)
}

// Round4 rounds normalized values and scores.
func Round4(v float64) float64 {
	return roundTo(v, 4)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func roundPtr(v float64, places int) *float64 {
	r := roundTo(v, places)
	return &r
}

// Commodities returns the distinct commodities of rows in name order.
func Commodities(rows []Row) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range rows {
		if !seen[r.Commodity] {
			seen[r.Commodity] = true
			names = append(names, r.Commodity)
		}
	}
	sort.Strings(names)
	return names
}
