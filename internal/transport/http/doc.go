// Package http implements the HTTP handlers of the ranking service. Handlers
// stay thin: they parse and validate the request, call a service and render
// the result with go-chi/render.
//
// # Routes
//
//	GET  /api/health               health summary
//	GET  /api/health/ready         ready once a dataset is loaded
//	GET  /api/health/live          liveness
//	GET  /api/rankings             report for the configured analysis
//	POST /api/rankings             report for an AnalysisRequest body
//	GET  /api/rankings/{month}     one month bucket (YYYY-MM)
//	GET  /api/rankings/export/{format}   csv, xlsx or md
//	GET  /api/criteria             per-criterion report
//	GET  /api/criteria/export/{format}   csv, xlsx or md
//	GET  /api/source               loaded dataset
//	POST /api/source/refresh       reload the source
//	GET  /api/runs                 recent run snapshots
//	GET  /api/runs/{runID}         one run snapshot
//
// GET /api/rankings and its export accept the query overrides strategy,
// metric, metrics (comma separated), top_n, degenerate_value,
// missing_productivity and rate_parse_policy.
//
// # Errors
//
// Every failure is rendered as RFC 7807 problem details by
// errors.ErrorHandler. Configuration and validation failures map to 400,
// unknown months and runs to 404.
package http
