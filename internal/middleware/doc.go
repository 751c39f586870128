// Package middleware holds the chi middleware stack for the HTTP API:
// request IDs, structured request logging, panic recovery, rate limiting,
// request deadlines, CORS, tracing and request metrics, plus request body
// validation helpers used by the handlers.
package middleware
