package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "agrirank"
	AppVersion = "1.0.0"

	// Rate Limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// Timeouts
	DefaultRequestTimeout = 60 * time.Second
	SourceLoadTimeout     = 2 * time.Minute

	// Log Settings
	DefaultLogLevel = "info"

	// File names
	DefaultSourceWorkbook   = "product_all.xlsx"
	DefaultRankingWorkbook  = "profitable_commodities.xlsx"
	DefaultRankingCSV       = "rankings.csv"
	DefaultCriteriaWorkbook = "top_commodities_by_criteria.xlsx"

	// Analysis defaults
	DefaultTopN                = 10
	DefaultCriteriaTopN        = 5
	DefaultProductivity        = 50.0 // quintals per acre
	WeightTolerance            = 1e-6
	RateParseStrict            = "strict"
	RateParseTolerant          = "tolerant"
	StrategyComposite          = "composite"
	StrategySingle             = "single"
	MissingProductivityDefault = "default"
	MissingProductivityOmit    = "omit"

	// Endpoints
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws/runs"
)
