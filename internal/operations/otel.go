package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"agrirank/internal/dataprocessing"
	"agrirank/internal/infrastructure"
	"agrirank/internal/ranking"
	"agrirank/pkg/contracts/events"
)

const (
	TracerName = "agrirank.operations"
)

// RunTracer provides OpenTelemetry instrumentation for ranking runs
type RunTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewRunTracer creates a tracer. A nil tracer uses the global provider and
// nil metrics record nothing.
func NewRunTracer(tracer trace.Tracer, metrics *infrastructure.BusinessMetrics) *RunTracer {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &RunTracer{tracer: tracer, metrics: metrics}
}

// TraceRun creates a span for a whole run
func (t *RunTracer) TraceRun(ctx context.Context, runID, kind string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("run.%s", kind),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.kind", kind),
		),
	)
}

// TraceStage creates a child span for one stage
func (t *RunTracer) TraceStage(ctx context.Context, runID string, stage events.RunStage) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("run.stage.%s", stage),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("stage", string(stage)),
		),
	)
}

// EndStage records the stage outcome on span and ends it.
func (t *RunTracer) EndStage(span trace.Span, duration time.Duration, detail map[string]interface{}, err error) {
	defer span.End()

	span.SetAttributes(attribute.Float64("stage.duration_seconds", duration.Seconds()))
	for k, v := range detail {
		switch val := v.(type) {
		case int:
			span.SetAttributes(attribute.Int("stage."+k, val))
		case string:
			span.SetAttributes(attribute.String("stage."+k, val))
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "stage completed")
}

// EndRun records the run outcome and ends span.
func (t *RunTracer) EndRun(ctx context.Context, span trace.Span, duration time.Duration, err error) {
	defer span.End()

	t.metrics.RecordRun(ctx, duration, err)
	span.SetAttributes(attribute.Float64("run.duration_seconds", duration.Seconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "run completed")
}

// RecordCleaning counts ingested and excluded observations.
func (t *RunTracer) RecordCleaning(ctx context.Context, stats dataprocessing.CleaningStats) {
	t.metrics.RecordIngested(ctx, stats.Input)
	for reason, n := range stats.Excluded {
		t.metrics.RecordExcluded(ctx, string(reason), n)
	}
}

// RecordOutcome counts ranked buckets and degenerate warnings.
func (t *RunTracer) RecordOutcome(ctx context.Context, outcome *ranking.Outcome) {
	t.metrics.RecordBucketsRanked(ctx, len(outcome.Buckets))
	for _, w := range outcome.Warnings {
		t.metrics.RecordDegenerate(ctx, string(w.Kind))
	}
}
