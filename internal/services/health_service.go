package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"agrirank/internal/infrastructure"
)

// DatasetInfoProvider reports the loaded dataset.
type DatasetInfoProvider interface {
	Info() (DatasetInfo, bool)
}

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	dataset   DatasetInfoProvider
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    float64                `json:"uptime_seconds"`
	Dataset   *DatasetInfo           `json:"dataset,omitempty"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]string      `json:"services,omitempty"`
}

// NewHealthService creates a health service. dataset and clients may be nil.
func NewHealthService(version string, dataset DatasetInfoProvider, clients ClientCounter, logger *slog.Logger) *HealthService {
	return &HealthService{
		version:   version,
		dataset:   dataset,
		clients:   clients,
		startTime: time.Now(),
		logger:    infrastructure.WithComponent(logger, "health_service"),
	}
}

// HealthCheck returns overall health status. The service is healthy while
// it runs; a missing dataset only affects readiness.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   hs.version,
		Uptime:    time.Since(hs.startTime).Seconds(),
		Services:  make(map[string]string),
	}

	status.Services["source"] = "not_loaded"
	if hs.dataset != nil {
		if info, ok := hs.dataset.Info(); ok {
			status.Dataset = &info
			status.Services["source"] = "loaded"
		}
	}
	if hs.clients != nil {
		status.Runtime = map[string]interface{}{"websocket_clients": hs.clients.ClientCount()}
	}

	hs.logger.DebugContext(ctx, "health check", slog.String("source", status.Services["source"]))
	return status
}

// ReadinessCheck reports ready once a dataset has been loaded.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := hs.HealthCheck(ctx)
	status.Status = "ready"
	if status.Dataset == nil {
		status.Status = "not_ready"
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now().UTC(),
		Version:   hs.version,
		Uptime:    time.Since(hs.startTime).Seconds(),
		Runtime: map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}
