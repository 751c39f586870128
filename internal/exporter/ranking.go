package exporter

import (
	"io"

	"agrirank/internal/report"
	"agrirank/pkg/contracts/domain"
)

// RankingHeaders returns the CSV header row for r.
func RankingHeaders(r *report.Report) []string {
	headers := []string{
		"Month", "Rank", "Commodity", "Source Name", "Code",
		"Avg Price", "Total Volume", "Trading Days", "Activity Rate",
		"Productivity", "Revenue Per Acre",
	}
	for _, m := range r.Metrics {
		headers = append(headers, normHeader(m))
	}
	return append(headers, "Score")
}

// RankingRecords flattens the ranked rows of every month.
func RankingRecords(r *report.Report) [][]string {
	var records [][]string
	for _, month := range r.Months {
		for _, row := range month.Rows {
			record := []string{
				row.Month,
				formatInt(row.Rank),
				row.Commodity,
				row.SourceName,
				formatInt(row.Code),
				formatFloat(row.MeanPrice),
				formatFloat(row.TotalVolume),
				formatInt(row.TradingDays),
				formatOptional(row.ActivityRate),
				formatOptional(row.Productivity),
				formatOptional(row.RevenuePerAcre),
			}
			for _, m := range r.Metrics {
				if v, ok := row.Normalized[m]; ok {
					record = append(record, formatScore(v))
				} else {
					record = append(record, "")
				}
			}
			records = append(records, append(record, formatScore(row.Score)))
		}
	}
	return records
}

// WriteRanking writes the ranked rows of r to filePath.
func (w *CSVWriter) WriteRanking(filePath string, r *report.Report) (string, error) {
	return w.WriteSimpleCSV(filePath, RankingHeaders(r), RankingRecords(r))
}

// WriteRankingTo streams the ranked rows of r as CSV.
func WriteRankingTo(out io.Writer, r *report.Report) error {
	return WriteTo(out, WriteOptions{Headers: RankingHeaders(r), Records: RankingRecords(r), BOMPrefix: true})
}

var criteriaHeaders = []string{
	"Month", "Criteria", "Rank", "Source Name", "Canonical Name",
	"Avg Price", "Total Quantity", "Productivity",
}

// CriteriaRecords flattens a criteria report.
func CriteriaRecords(r *report.CriteriaReport) [][]string {
	records := make([][]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		records = append(records, []string{
			row.Month,
			row.Criteria,
			formatInt(row.Rank),
			row.SourceName,
			row.Commodity,
			formatFloat(row.AvgPrice),
			formatFloat(row.TotalQuantity),
			formatOptional(row.Productivity),
		})
	}
	return records
}

// WriteCriteria writes the criteria table to filePath.
func (w *CSVWriter) WriteCriteria(filePath string, r *report.CriteriaReport) (string, error) {
	return w.WriteSimpleCSV(filePath, criteriaHeaders, CriteriaRecords(r))
}

func normHeader(name string) string {
	switch domain.Metric(name) {
	case domain.MetricPrice:
		return "Norm Price"
	case domain.MetricVolume:
		return "Norm Volume"
	case domain.MetricTradingDays:
		return "Norm Trading Days"
	case domain.MetricActivityRate:
		return "Norm Activity"
	case domain.MetricProductivity:
		return "Norm Per-Acre"
	case domain.MetricRevenuePerAcre:
		return "Norm Revenue"
	default:
		return "Norm " + name
	}
}

// WriteCriteriaTo streams the criteria table as CSV.
func WriteCriteriaTo(out io.Writer, r *report.CriteriaReport) error {
	return WriteTo(out, WriteOptions{Headers: criteriaHeaders, Records: CriteriaRecords(r), BOMPrefix: true})
}
