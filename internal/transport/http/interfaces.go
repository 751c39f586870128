package http

import (
	"context"

	"agrirank/internal/operations"
	"agrirank/internal/report"
	"agrirank/internal/services"
)

// RankingService is the part of services.RankingService the handlers use.
type RankingService interface {
	Rankings(ctx context.Context, req services.AnalysisRequest) (*report.Report, error)
	Month(ctx context.Context, month string, req services.AnalysisRequest) (report.Month, error)
	Criteria(ctx context.Context) (*report.CriteriaReport, error)
	Refresh(ctx context.Context) (services.DatasetInfo, error)
	Info() (services.DatasetInfo, bool)
}

// HealthChecker reports service health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
}

// RunStore exposes the snapshots kept by operations.RunBroadcaster.
type RunStore interface {
	Snapshots() []*operations.RunSnapshot
	GetSnapshot(runID string) (*operations.RunSnapshot, bool)
}
