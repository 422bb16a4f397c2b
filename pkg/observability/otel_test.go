package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitOTel_Disabled(t *testing.T) {
	logger := NewLogger(ErrorLevel, &bytes.Buffer{})
	providers, err := InitOTel(context.Background(), OTelConfig{Enabled: false}, logger)
	require.NoError(t, err)
	assert.Nil(t, providers)
	assert.NoError(t, ShutdownOTel(context.Background(), providers, logger))
}

func TestInitOTel_RequiresEndpoint(t *testing.T) {
	logger := NewLogger(ErrorLevel, &bytes.Buffer{})
	_, err := InitOTel(context.Background(), OTelConfig{Enabled: true}, logger)
	assert.Error(t, err)
}

func TestUpdateLoggerWithTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	assert.Same(t, logger, UpdateLoggerWithTraceContext(context.Background(), logger))

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	UpdateLoggerWithTraceContext(ctx, logger).Info("traced")
	assert.Contains(t, buf.String(), span.SpanContext().TraceID().String())
}

func TestTraceHandler(t *testing.T) {
	h := TraceHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), "test")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestOTelConfig_Sampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), OTelConfig{}.sampler().Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), OTelConfig{SampleRatio: 1}.sampler().Description())
	assert.Contains(t, OTelConfig{SampleRatio: 0.25}.sampler().Description(), "TraceIDRatioBased{0.25}")
}

func TestOTelProviders_ShutdownNil(t *testing.T) {
	var p *OTelProviders
	assert.NoError(t, p.Shutdown(context.Background()))
}
