package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

func TestNewTracerProvider_ServiceResource(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp, err := NewTracerProvider(context.Background(), "tileworld-test", 1, trace.WithSpanProcessor(rec))
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "tick")
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "tick", ended[0].Name())
	assert.Contains(t, ended[0].Resource().Attributes(), semconv.ServiceName("tileworld-test"))
}

func TestNewTracerProvider_InvalidRatioSamplesAll(t *testing.T) {
	for _, ratio := range []float64{0, -1, 2} {
		rec := tracetest.NewSpanRecorder()
		tp, err := NewTracerProvider(context.Background(), "tileworld-test", ratio, trace.WithSpanProcessor(rec))
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			_, span := tp.Tracer("test").Start(context.Background(), "save")
			span.End()
		}
		assert.Len(t, rec.Ended(), 10, "ratio %v", ratio)
		require.NoError(t, tp.Shutdown(context.Background()))
	}
}

func TestInitTelemetry_Shutdown(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), "tileworld-test", Options{Endpoint: "127.0.0.1:1", Insecure: true})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()), "пустой батч не отправляется")
}
