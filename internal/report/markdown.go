package report

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RenderMarkdown renders a ranking report as Markdown.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Commodity Ranking Report\n\n")
	writeMetadata(&sb, r.Metadata)

	sb.WriteString("## Monthly Rankings\n\n")
	if len(r.Months) == 0 {
		sb.WriteString("No months to rank.\n\n")
	}
	for _, m := range r.Months {
		sb.WriteString(fmt.Sprintf("### %s\n\n", m.Label))
		if len(m.Rows) == 0 {
			sb.WriteString("No eligible commodities.\n\n")
			continue
		}
		sb.WriteString("| Rank | Commodity | Avg Price | Total Volume | Trading Days | Per-Acre | Score |\n")
		sb.WriteString("|------|-----------|-----------|--------------|--------------|----------|-------|\n")
		for _, row := range m.Rows {
			sb.WriteString(fmt.Sprintf("| %d | %s | %.2f | %.2f | %d | %s | %.4f |\n",
				row.Rank, row.Commodity, row.MeanPrice, row.TotalVolume, row.TradingDays,
				optional(row.Productivity), row.Score))
		}
		sb.WriteString("\n")
	}

	writeDiagnostics(&sb, r.Diagnostics)
	return sb.String()
}

// RenderCriteriaMarkdown renders a criteria report as Markdown, one table
// per criterion.
func RenderCriteriaMarkdown(r *CriteriaReport) string {
	var sb strings.Builder

	sb.WriteString("# Commodity Criteria Report\n\n")
	writeMetadata(&sb, r.Metadata)

	for _, criteria := range r.Criteria {
		sb.WriteString(fmt.Sprintf("## Top %d by %s\n\n", r.Metadata.TopN, criteria))
		rows := r.RowsFor(criteria)
		if len(rows) == 0 {
			sb.WriteString("No eligible commodities.\n\n")
			continue
		}
		sb.WriteString("| Month | Rank | Source Name | Commodity | Avg Price | Total Quantity | Productivity |\n")
		sb.WriteString("|-------|------|-------------|-----------|-----------|----------------|--------------|\n")
		for _, row := range rows {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %.2f | %.2f | %s |\n",
				row.Label, row.Rank, row.SourceName, row.Commodity, row.AvgPrice, row.TotalQuantity,
				optional(row.Productivity)))
		}
		sb.WriteString("\n")
	}

	writeDiagnostics(&sb, r.Diagnostics)
	return sb.String()
}

func writeMetadata(sb *strings.Builder, meta Metadata) {
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", meta.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString("| Setting | Value |\n")
	sb.WriteString("|---------|-------|\n")
	if meta.RunID != "" {
		sb.WriteString(fmt.Sprintf("| Run | %s |\n", meta.RunID))
	}
	if meta.Origin != "" {
		sb.WriteString(fmt.Sprintf("| Source | %s |\n", meta.Origin))
	}
	if meta.InputFingerprint != "" {
		sb.WriteString(fmt.Sprintf("| Input Fingerprint | %s |\n", meta.InputFingerprint))
	}
	sb.WriteString(fmt.Sprintf("| Strategy | %s |\n", meta.Strategy))
	sb.WriteString(fmt.Sprintf("| Top N | %d |\n", meta.TopN))
	sb.WriteString(fmt.Sprintf("| Rate Parse Policy | %s |\n", meta.ParsePolicy))
	sb.WriteString(fmt.Sprintf("| Degenerate Value | %g |\n", meta.DegenerateValue))
	sb.WriteString(fmt.Sprintf("| Missing Productivity | %s |\n", meta.MissingProductivity))
	if meta.Filter != "" {
		sb.WriteString(fmt.Sprintf("| Filter | %s |\n", meta.Filter))
	}
	sb.WriteString("\n")
}

func writeDiagnostics(sb *strings.Builder, d Diagnostics) {
	sb.WriteString("## Diagnostics\n\n")
	sb.WriteString("| Counter | Value |\n")
	sb.WriteString("|---------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Input Rows | %d |\n", d.Cleaning.Input))
	sb.WriteString(fmt.Sprintf("| Kept Rows | %d |\n", d.Cleaning.Kept))

	reasons := make([]string, 0, len(d.Cleaning.Excluded))
	for reason := range d.Cleaning.Excluded {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		sb.WriteString(fmt.Sprintf("| Excluded: %s | %d |\n", reason, d.Cleaning.Excluded[reason]))
	}
	sb.WriteString(fmt.Sprintf("| Commodity-Months | %d |\n", d.Summaries))
	sb.WriteString(fmt.Sprintf("| Months | %d |\n", d.Months))
	sb.WriteString("\n")

	if len(d.Warnings) > 0 {
		sb.WriteString("### Warnings\n\n")
		for _, w := range d.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", w.Detail))
		}
		sb.WriteString("\n")
	}
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
