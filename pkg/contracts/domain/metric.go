package domain

import (
	"fmt"
	"strings"
)

// Metric names a per-summary figure that can be normalized or ranked on.
type Metric string

const (
	MetricPrice          Metric = "price"
	MetricVolume         Metric = "volume"
	MetricTradingDays    Metric = "trading_days"
	MetricActivityRate   Metric = "activity_rate"
	MetricProductivity   Metric = "productivity"
	MetricRevenuePerAcre Metric = "revenue_per_acre"
)

// KnownMetrics lists every metric in display order.
var KnownMetrics = []Metric{
	MetricPrice,
	MetricVolume,
	MetricTradingDays,
	MetricActivityRate,
	MetricProductivity,
	MetricRevenuePerAcre,
}

// ParseMetric resolves a metric by name.
func ParseMetric(name string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range KnownMetrics {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", name)
}

// Value extracts the metric from a summary. The second result is false when
// the metric is absent for this summary (unknown productivity, no trading days).
func (m Metric) Value(s CommodityMonthSummary) (float64, bool) {
	switch m {
	case MetricPrice:
		return s.MeanPrice, true
	case MetricVolume:
		return s.TotalVolume, true
	case MetricTradingDays:
		return float64(s.TradingDays), true
	case MetricActivityRate:
		return s.ActivityRate()
	case MetricProductivity:
		if s.Productivity == nil {
			return 0, false
		}
		return *s.Productivity, true
	case MetricRevenuePerAcre:
		return s.RevenuePerAcre()
	default:
		return 0, false
	}
}

// Title returns a column heading for the metric.
func (m Metric) Title() string {
	switch m {
	case MetricPrice:
		return "Avg Price (Rs)"
	case MetricVolume:
		return "Total Volume"
	case MetricTradingDays:
		return "Trading Days"
	case MetricActivityRate:
		return "Per-Day Volume"
	case MetricProductivity:
		return "Productivity (Q/Acre)"
	case MetricRevenuePerAcre:
		return "Revenue (Rs/Acre)"
	default:
		return string(m)
	}
}

