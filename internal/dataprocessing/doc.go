// Package dataprocessing turns market rate tables into validated observations.
//
// Loading is handled by a Source: WorkbookSource reads an .xlsx export,
// SheetsSource reads a Google Sheet and SQLiteSource reads a table in a
// SQLite database. All three expect the same columns (rate_date,
// code_number, product_name, product_quantity, product_max_rate,
// product_min_rate) and carry numeric fields as text.
//
// The Cleaner is the only stage that drops input. It parses both rate
// fields with a RateParser, parses the quantity, applies the commodity
// filter and checks the date. Rejected rows are counted by reason in
// CleaningStats instead of failing the run.
//
// # Usage
//
//	src, err := dataprocessing.NewSource(ctx, cfg.Source, logger)
//	if err != nil {
//	    return err
//	}
//	ds, err := src.Load(ctx)
//	if err != nil {
//	    return err
//	}
//	parser, _ := dataprocessing.NewRateParser(dataprocessing.PolicyStrict)
//	cleaner := dataprocessing.NewCleaner(parser, commodity.NewFilterFromConfig(cfg.Analysis), logger)
//	cleaned, stats := cleaner.Clean(ds.Observations)
//
// # Rate parsing
//
// The strict policy strips "Rs.", "/-", thousands separators and
// whitespace, then requires a decimal number. The tolerant policy takes the
// first run of digits, so "Rs. 12.5/-" reads as 12. Both treat an empty cell
// or the "&nbsp;" placeholder as unparseable.
package dataprocessing
