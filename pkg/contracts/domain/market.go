package domain

import (
	"fmt"
	"time"
)

// RawObservation is one market-day record as delivered by a loader.
// Numeric fields are kept as text; the cleaning stage decides what parses.
type RawObservation struct {
	Date          time.Time `json:"date"`
	CommodityCode int       `json:"commodity_code"`
	HasCode       bool      `json:"has_code"`
	CommodityName string    `json:"commodity_name"`
	QuantityText  string    `json:"quantity_text"`
	MaxRateText   string    `json:"max_rate_text"`
	MinRateText   string    `json:"min_rate_text"`
	Row           int       `json:"row,omitempty"`
}

// CleanedObservation is a RawObservation that survived parsing and filtering.
// All numeric fields are finite.
type CleanedObservation struct {
	Date          time.Time `json:"date"`
	CommodityCode int       `json:"commodity_code"`
	SourceName    string    `json:"source_name"`
	CommodityName string    `json:"commodity_name"`
	Quantity      float64   `json:"quantity"`
	MaxRate       float64   `json:"max_rate"`
	MinRate       float64   `json:"min_rate"`
	AvgRate       float64   `json:"avg_rate"`
}

// MonthBucket identifies one calendar month. Every normalization and
// ranking comparison is scoped to exactly one bucket.
type MonthBucket struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// BucketOf returns the bucket containing t.
func BucketOf(t time.Time) MonthBucket {
	return MonthBucket{Year: t.Year(), Month: t.Month()}
}

// ParseMonthBucket parses the YYYY-MM form produced by String.
func ParseMonthBucket(s string) (MonthBucket, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthBucket{}, fmt.Errorf("parse month bucket %q: %w", s, err)
	}
	return BucketOf(t), nil
}

// String returns the bucket as YYYY-MM.
func (b MonthBucket) String() string {
	return fmt.Sprintf("%04d-%02d", b.Year, int(b.Month))
}

// Label returns a display label such as "March 2024".
func (b MonthBucket) Label() string {
	return fmt.Sprintf("%s %d", b.Month.String(), b.Year)
}

// Before reports whether b is an earlier month than other.
func (b MonthBucket) Before(other MonthBucket) bool {
	if b.Year != other.Year {
		return b.Year < other.Year
	}
	return b.Month < other.Month
}

// CommodityMonthSummary holds the statistics of one commodity within one bucket.
type CommodityMonthSummary struct {
	Bucket        MonthBucket        `json:"bucket"`
	Commodity     string             `json:"commodity"`
	SourceName    string             `json:"source_name"`
	CommodityCode int                `json:"commodity_code,omitempty"`
	MeanPrice     float64            `json:"mean_price"`
	TotalVolume   float64            `json:"total_volume"`
	TradingDays   int                `json:"trading_days"`
	Productivity  *float64           `json:"productivity,omitempty"`
	Normalized    map[Metric]float64 `json:"normalized,omitempty"`
	Score         float64            `json:"score"`
}

// ActivityRate returns total volume per trading day. It is undefined when
// the summary has no trading days.
func (s CommodityMonthSummary) ActivityRate() (float64, bool) {
	if s.TradingDays <= 0 {
		return 0, false
	}
	return s.TotalVolume / float64(s.TradingDays), true
}

// RevenuePerAcre returns mean price times productivity, when productivity is known.
func (s CommodityMonthSummary) RevenuePerAcre() (float64, bool) {
	if s.Productivity == nil {
		return 0, false
	}
	return s.MeanPrice * *s.Productivity, true
}

// Clone returns a copy that does not share the Normalized map.
func (s CommodityMonthSummary) Clone() CommodityMonthSummary {
	c := s
	if s.Productivity != nil {
		v := *s.Productivity
		c.Productivity = &v
	}
	if s.Normalized != nil {
		c.Normalized = make(map[Metric]float64, len(s.Normalized))
		for k, v := range s.Normalized {
			c.Normalized[k] = v
		}
	}
	return c
}

// RankedCommodity is one row of a RankingResult.
type RankedCommodity struct {
	Rank    int                   `json:"rank"`
	Summary CommodityMonthSummary `json:"summary"`
}

// RankingResult is the ordered, truncated ranking of one bucket.
// Ranks are 1-based and dense.
type RankingResult struct {
	Bucket MonthBucket       `json:"bucket"`
	Rows   []RankedCommodity `json:"rows"`
}
