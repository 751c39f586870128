package operations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"agrirank/internal/infrastructure"
)

func TestPipelineSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	p, err := NewPipeline(analysis(), Deps{
		Tracer:  provider.Tracer(TracerName),
		Metrics: infrastructure.NoopBusinessMetrics(),
	})
	require.NoError(t, err)

	ctx := infrastructure.WithRunID(context.Background(), "run-7")
	_, err = p.Run(ctx, dataset())
	require.NoError(t, err)

	spans := recorder.Ended()
	names := make([]string, len(spans))
	for i, s := range spans {
		names[i] = s.Name()
	}
	assert.Equal(t, []string{
		"run.stage.clean", "run.stage.aggregate", "run.stage.rank", "run.stage.assemble", "run.ranking",
	}, names)

	root := spans[len(spans)-1]
	assert.Equal(t, codes.Ok, root.Status().Code)
	for _, s := range spans[:len(spans)-1] {
		assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID(), "%s is a child of the run span", s.Name())
	}
}

func TestPipelineSpanError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	p, err := NewPipeline(analysis(), Deps{Tracer: provider.Tracer(TracerName)})
	require.NoError(t, err)

	_, err = p.Run(context.Background(), nil)
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
