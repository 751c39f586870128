package ranking

import (
	"fmt"
	"log/slog"
	"sort"

	"agrirank/internal/commodity"
	"agrirank/internal/config"
	apperrors "agrirank/internal/errors"
	"agrirank/pkg/contracts/domain"
)

// ProductivityPolicy decides what an unknown productivity figure becomes.
type ProductivityPolicy struct {
	// Omit leaves productivity absent; otherwise Default is used.
	Omit    bool
	Default float64
}

// ProductivityPolicyFromConfig reads the missing-productivity settings.
func ProductivityPolicyFromConfig(cfg config.AnalysisConfig) (ProductivityPolicy, error) {
	switch cfg.MissingProductivity {
	case config.MissingProductivityOmit:
		return ProductivityPolicy{Omit: true}, nil
	case config.MissingProductivityDefault, "":
		return ProductivityPolicy{Default: cfg.DefaultProductivity}, nil
	default:
		return ProductivityPolicy{}, apperrors.NewConfigError(
			fmt.Sprintf("unknown missing productivity policy %q", cfg.MissingProductivity), nil).
			WithContext("field", "missing_productivity")
	}
}

func (p ProductivityPolicy) String() string {
	if p.Omit {
		return config.MissingProductivityOmit
	}
	return fmt.Sprintf("%s(%g)", config.MissingProductivityDefault, p.Default)
}

// Aggregator groups cleaned observations into month summaries.
type Aggregator struct {
	productivity commodity.ProductivityLookup
	policy       ProductivityPolicy
	logger       *slog.Logger
}

// NewAggregator creates an aggregator. A nil lookup treats every commodity
// as having unknown productivity.
func NewAggregator(productivity commodity.ProductivityLookup, policy ProductivityPolicy, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		productivity: productivity,
		policy:       policy,
		logger:       logger.With(slog.String("component", "aggregator")),
	}
}

type groupKey struct {
	bucket    domain.MonthBucket
	commodity string
}

type group struct {
	sourceName string
	code       int
	priceSum   float64
	rows       int
	volume     float64
	dates      map[string]struct{}
}

// Aggregate returns one summary per (month, commodity), ordered by month
// then commodity name. Trading days count distinct dates, not rows.
func (a *Aggregator) Aggregate(cleaned []domain.CleanedObservation) []domain.CommodityMonthSummary {
	groups := make(map[groupKey]*group)
	for _, obs := range cleaned {
		key := groupKey{bucket: domain.BucketOf(obs.Date), commodity: obs.CommodityName}
		g, ok := groups[key]
		if !ok {
			g = &group{
				sourceName: obs.SourceName,
				code:       obs.CommodityCode,
				dates:      make(map[string]struct{}),
			}
			groups[key] = g
		}
		g.priceSum += obs.AvgRate
		g.rows++
		g.volume += obs.Quantity
		g.dates[obs.Date.Format("2006-01-02")] = struct{}{}
	}

	productivity := a.resolveProductivity(groups)

	summaries := make([]domain.CommodityMonthSummary, 0, len(groups))
	for key, g := range groups {
		s := domain.CommodityMonthSummary{
			Bucket:        key.bucket,
			Commodity:     key.commodity,
			SourceName:    g.sourceName,
			CommodityCode: g.code,
			MeanPrice:     g.priceSum / float64(g.rows),
			TotalVolume:   g.volume,
			TradingDays:   len(g.dates),
		}
		if v, ok := productivity[key.commodity]; ok {
			p := v
			s.Productivity = &p
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Bucket != summaries[j].Bucket {
			return summaries[i].Bucket.Before(summaries[j].Bucket)
		}
		return summaries[i].Commodity < summaries[j].Commodity
	})

	a.logger.Info("aggregation complete",
		slog.Int("observations", len(cleaned)),
		slog.Int("summaries", len(summaries)),
		slog.Int("with_productivity", len(productivity)))

	return summaries
}

// resolveProductivity looks each commodity up once so that every month of
// a commodity gets the same figure or the same absence.
func (a *Aggregator) resolveProductivity(groups map[groupKey]*group) map[string]float64 {
	resolved := make(map[string]float64)
	seen := make(map[string]bool)
	var unknown []string

	for key := range groups {
		name := key.commodity
		if seen[name] {
			continue
		}
		seen[name] = true

		if a.productivity != nil {
			if v, ok := a.productivity.Get(name); ok {
				resolved[name] = v
				continue
			}
		}
		unknown = append(unknown, name)
		if !a.policy.Omit {
			resolved[name] = a.policy.Default
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		a.logger.Debug("productivity unknown",
			slog.Any("commodities", unknown),
			slog.String("policy", a.policy.String()))
	}
	return resolved
}
