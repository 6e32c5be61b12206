package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStartSpanNoopWithoutInitialize(t *testing.T) {
	Reset()
	ctx, span := StartSpan(context.Background(), "test.span")
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
	span.SetAttribute("k", "v")
	span.RecordError(nil)
	span.End() // must not panic
}

func TestInitializeIsIdempotent(t *testing.T) {
	Reset()
	tp := NewTestTracerProvider()
	Initialize("test-service", tp, nil)
	Initialize("test-service-2", tp, nil)

	r := registry()
	assert.NotNil(t, r)
	assert.Equal(t, "test-service", r.serviceName)
}

func TestEmitAfterInitializeDoesNotPanic(t *testing.T) {
	Reset()
	tp := NewTestTracerProvider()
	Initialize("test-service", tp, nil)
	Counter("test.counter", "label", "value")
	Histogram("test.histogram", 1.5)
}
