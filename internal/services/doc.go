// Package services holds the business logic behind the HTTP API.
//
// RankingService owns the loaded dataset and the ranking pipeline. It loads
// the source lazily, caches the default report per input fingerprint and
// builds a fresh pipeline for requests that override the analysis
// configuration. HealthService reports liveness and readiness.
//
// Services take their collaborators at construction and never read global
// state; handlers in internal/transport/http depend on them through small
// interfaces.
package services
