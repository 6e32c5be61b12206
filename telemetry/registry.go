// Package telemetry emits spans and metrics around every pipeline stage and
// sub-operation. It follows the teacher framework's progressive-disclosure
// design: a package-level global registry (set once via Initialize),
// simple Counter/Histogram/Duration helpers, and a StartSpan/End pair for
// tracing — backed by OpenTelemetry when initialized, a no-op otherwise.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// globalRegistry holds the singleton registry. atomic.Value gives lock-free
// reads on the metric-emission hot path; it is written once by Initialize.
var globalRegistry atomic.Value // *Registry

var initOnce sync.Once

// Registry bundles the OTel tracer/meter this package emits through.
type Registry struct {
	serviceName string
	tracer      trace.Tracer
	meter       metric.Meter
	counters    sync.Map // map[string]metric.Float64Counter
	histograms  sync.Map // map[string]metric.Float64Histogram
}

// Initialize wires the package-level emission functions to a real
// OpenTelemetry tracer provider and meter. Safe to call once; subsequent
// calls are no-ops, matching the teacher's sync.Once-guarded Initialize.
func Initialize(serviceName string, tp trace.TracerProvider, mp metric.MeterProvider) {
	initOnce.Do(func() {
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		r := &Registry{
			serviceName: serviceName,
			tracer:      tp.Tracer(serviceName),
			meter:       mp.Meter(serviceName),
		}
		globalRegistry.Store(r)
	})
}

// registry returns the active Registry, or nil if Initialize was never
// called (in which case all emission is a no-op).
func registry() *Registry {
	v := globalRegistry.Load()
	if v == nil {
		return nil
	}
	return v.(*Registry)
}

// NewTestTracerProvider returns an in-process TracerProvider suitable for
// unit tests (no exporter configured — spans are created and discarded).
func NewTestTracerProvider() *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider()
}

// Reset clears the global registry. Test-only; lets successive tests call
// Initialize again.
func Reset() {
	globalRegistry.Store((*Registry)(nil))
	initOnce = sync.Once{}
}

// Span wraps an OTel span plus the context carrying it.
type Span struct {
	span trace.Span
}

// End finishes the span.
func (s *Span) End() {
	if s == nil || s.span == nil {
		return
	}
	s.span.End()
}

// SetAttribute tags the span. string, bool, int, int64 and float64 values
// keep their type; any other value is stringified with %v.
func (s *Span) SetAttribute(key string, value interface{}) {
	if s == nil || s.span == nil {
		return
	}
	s.span.SetAttributes(attr(key, value))
}

// RecordError records an error against the span.
func (s *Span) RecordError(err error) {
	if s == nil || s.span == nil || err == nil {
		return
	}
	s.span.RecordError(err)
}

// StartSpan starts a span named `name` under the global tracer, or returns a
// no-op span if telemetry was never initialized.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	r := registry()
	if r == nil {
		return ctx, &Span{}
	}
	ctx, sp := r.tracer.Start(ctx, name)
	return ctx, &Span{span: sp}
}

// Duration records elapsed time since startTime in milliseconds under name.
func Duration(name string, startTime time.Time, labels ...string) {
	ms := float64(time.Since(startTime).Milliseconds())
	Histogram(name, ms, labels...)
}
