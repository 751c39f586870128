package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMetricsHandler serves the Prometheus exposition. exposition is the
// handler of the OpenTelemetry Prometheus registry; without one the default
// registry is served.
func NewMetricsHandler(exposition http.Handler) http.Handler {
	if exposition == nil {
		return promhttp.Handler()
	}
	return exposition
}
