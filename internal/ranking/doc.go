// Package ranking turns cleaned market observations into per-month
// commodity rankings.
//
// # Components
//
//   - aggregator.go: groups observations by (month, commodity) and computes
//     mean price, total volume, distinct trading days and productivity
//   - normalizer.go: min-max scaling of one metric within one month
//   - strategy.go: the single-metric and weighted-composite variants
//   - engine.go: runs normalization and ranking for every month
//
// # Month scope
//
// Every comparison happens inside a single month. A score from March is
// never compared with a score from April, and nothing is carried between
// months. The Engine is the only component that walks several months and it
// treats each one as an independent task.
//
// # Determinism
//
// Ties on the ordering key are broken by ascending commodity name, so a
// repeated run over the same input gives the same order. A month with fewer
// qualifying commodities than top N yields a shorter ranking and a
// short_bucket warning. A metric that is constant across a month normalizes
// to the configured degenerate value (0 or 0.5) and yields a
// constant_metric warning.
//
// # Usage Example
//
//	strategy, err := ranking.FromConfig(cfg.Analysis)
//	if err != nil {
//	    return err
//	}
//	normalizer, err := ranking.NewNormalizer(cfg.Analysis.DegenerateValue)
//	if err != nil {
//	    return err
//	}
//	summaries := ranking.NewAggregator(table, policy, logger).Aggregate(cleaned)
//	outcome, err := ranking.NewEngine(strategy, normalizer, ranking.Options{Workers: 4}).Run(ctx, summaries)
package ranking
