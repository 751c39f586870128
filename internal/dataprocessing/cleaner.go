package dataprocessing

import (
	"log/slog"
	"strings"

	"agrirank/internal/commodity"
	"agrirank/pkg/contracts/domain"
)

// CleaningStats counts what the cleaner did with its input.
type CleaningStats struct {
	Input    int                            `json:"input"`
	Kept     int                            `json:"kept"`
	Excluded map[domain.ExclusionReason]int `json:"excluded"`
}

// TotalExcluded returns the number of dropped observations.
func (s CleaningStats) TotalExcluded() int {
	total := 0
	for _, n := range s.Excluded {
		total += n
	}
	return total
}

// Cleaner turns raw observations into validated ones. It is the only stage
// that discards malformed input; it never fails on a bad row.
type Cleaner struct {
	parser *RateParser
	filter *commodity.Filter
	logger *slog.Logger
}

// NewCleaner creates a cleaner. A nil filter admits every commodity.
func NewCleaner(parser *RateParser, filter *commodity.Filter, logger *slog.Logger) *Cleaner {
	if filter == nil {
		filter = commodity.NewFilter(nil, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{
		parser: parser,
		filter: filter,
		logger: logger.With(slog.String("component", "cleaner")),
	}
}

// Clean validates raws in order. Checks run as: both rates, quantity,
// commodity filter, date; the first failing check names the exclusion reason.
// The output preserves input order.
func (c *Cleaner) Clean(raws []domain.RawObservation) ([]domain.CleanedObservation, CleaningStats) {
	stats := CleaningStats{
		Input:    len(raws),
		Excluded: make(map[domain.ExclusionReason]int),
	}
	cleaned := make([]domain.CleanedObservation, 0, len(raws))

	for _, raw := range raws {
		obs, reason, ok := c.cleanOne(raw)
		if !ok {
			stats.Excluded[reason]++
			continue
		}
		cleaned = append(cleaned, obs)
	}
	stats.Kept = len(cleaned)

	c.logger.Info("cleaning complete",
		slog.Int("input", stats.Input),
		slog.Int("kept", stats.Kept),
		slog.Int("excluded", stats.TotalExcluded()),
		slog.String("policy", string(c.parser.Policy())))

	return cleaned, stats
}

func (c *Cleaner) cleanOne(raw domain.RawObservation) (domain.CleanedObservation, domain.ExclusionReason, bool) {
	maxRate, okMax := c.parser.Parse(raw.MaxRateText)
	minRate, okMin := c.parser.Parse(raw.MinRateText)
	if !okMax || !okMin {
		return domain.CleanedObservation{}, domain.ExcludedUnparseableRate, false
	}

	qty, ok := ParseQuantity(raw.QuantityText)
	if !ok {
		return domain.CleanedObservation{}, domain.ExcludedInvalidQuantity, false
	}

	name, reason, ok := c.filter.Admit(raw)
	if !ok {
		return domain.CleanedObservation{}, reason, false
	}

	if raw.Date.IsZero() {
		return domain.CleanedObservation{}, domain.ExcludedInvalidDate, false
	}

	return domain.CleanedObservation{
		Date:          raw.Date,
		CommodityCode: raw.CommodityCode,
		SourceName:    strings.TrimSpace(raw.CommodityName),
		CommodityName: name,
		Quantity:      qty,
		MaxRate:       maxRate,
		MinRate:       minRate,
		AvgRate:       (maxRate + minRate) / 2,
	}, "", true
}
