// Package config provides centralized configuration management for agrirank.
// It loads configuration from multiple sources, validates it, and exposes a
// typed API consumed by the CLI, the HTTP service and the analysis pipeline.
//
// # Configuration Sources
//
// Configuration is layered in order of increasing precedence:
//
//	1. Default values (Default)
//	2. A YAML file (--config flag, AGRIRANK_CONFIG_FILE, config.yaml or configs/config.yaml)
//	3. Environment variables prefixed with AGRIRANK_
//
// # Environment Variables
//
// Nested sections become underscore separated keys:
//
//	AGRIRANK_SERVER_PORT=8080
//	AGRIRANK_LOGGING_LEVEL=debug
//	AGRIRANK_ANALYSIS_TOP_N=5
//	AGRIRANK_ANALYSIS_WEIGHTS=price:0.5,productivity:0.5
//	AGRIRANK_ANALYSIS_CODE_RANGES=1001-1004,2001-2043
//	AGRIRANK_SOURCE_WORKBOOK_PATH=data/product_all.xlsx
//
// # Analysis Settings
//
// AnalysisConfig is the knob set of a ranking run: the rate parsing policy,
// the commodity filters, the ranking strategy with its metrics and weights,
// top N, the constant used for degenerate normalization and the policy for
// commodities with no known productivity. Validate rejects an inconsistent
// configuration with a CONFIG error before any data is read:
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    if errors.IsConfigError(err) {
//	        os.Exit(2)
//	    }
//	}
package config
