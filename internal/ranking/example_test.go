package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"agrirank/pkg/contracts/domain"
)

// Example_compositeRanking ranks one month on price and volume with equal
// weights. Garlic and Potato tie at 0.5 and are ordered by name.
func Example_compositeRanking() {
	march := domain.MonthBucket{Year: 2024, Month: time.March}
	summaries := []domain.CommodityMonthSummary{
		{Bucket: march, Commodity: "Onion", MeanPrice: 1150, TotalVolume: 120, TradingDays: 2},
		{Bucket: march, Commodity: "Potato", MeanPrice: 900, TotalVolume: 300, TradingDays: 3},
		{Bucket: march, Commodity: "Garlic", MeanPrice: 4000, TotalVolume: 20, TradingDays: 1},
	}

	metrics := []domain.Metric{domain.MetricPrice, domain.MetricVolume}
	strategy, err := NewWeightedComposite(metrics, EqualWeights(metrics), 2)
	if err != nil {
		fmt.Println(err)
		return
	}
	normalizer, _ := NewNormalizer(0)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	outcome, err := NewEngine(strategy, normalizer, Options{Logger: logger}).Run(context.Background(), summaries)
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, result := range outcome.Rankings() {
		fmt.Println(result.Bucket.Label())
		for _, row := range result.Rows {
			fmt.Printf("%d. %s %.4f\n", row.Rank, row.Summary.Commodity, row.Summary.Score)
		}
	}
	// Output:
	// March 2024
	// 1. Garlic 0.5000
	// 2. Potato 0.5000
}

// Example_singleMetric ranks by mean price alone.
func Example_singleMetric() {
	march := domain.MonthBucket{Year: 2024, Month: time.March}
	strategy, _ := NewSingleMetric(domain.MetricPrice, 5)
	normalizer, _ := NewNormalizer(0)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	outcome, _ := NewEngine(strategy, normalizer, Options{Logger: logger}).Run(context.Background(),
		[]domain.CommodityMonthSummary{
			{Bucket: march, Commodity: "Okra", MeanPrice: 3200, TotalVolume: 40, TradingDays: 4},
			{Bucket: march, Commodity: "Tomato", MeanPrice: 1100, TotalVolume: 900, TradingDays: 20},
		})

	fmt.Println(strategy.Describe())
	for _, row := range outcome.Rankings()[0].Rows {
		fmt.Printf("%d. %s %.2f\n", row.Rank, row.Summary.Commodity, row.Summary.Score)
	}
	fmt.Println(len(outcome.Warnings), "warning(s)")
	// Output:
	// single(price)
	// 1. Okra 3200.00
	// 2. Tomato 1100.00
	// 1 warning(s)
}
