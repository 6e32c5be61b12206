package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counter records the value 1 under name. Like Histogram, it records into a
// histogram instrument; no counter instrument is created.
func Counter(name string, labels ...string) {
	Emit(name, 1, labels...)
}

// Histogram records a value in a distribution.
func Histogram(name string, value float64, labels ...string) {
	Emit(name, value, labels...)
}

// Emit records value under name with the given label pairs. A no-op until
// Initialize has been called.
func Emit(name string, value float64, labels ...string) {
	EmitWithContext(context.Background(), name, value, labels...)
}

// EmitWithContext is Emit with an explicit context, for callers that want
// span correlation in the future.
func EmitWithContext(ctx context.Context, name string, value float64, labels ...string) {
	r := registry()
	if r == nil {
		return
	}
	h := r.histogramFor(name)
	h.Record(ctx, value, metric.WithAttributes(attrsFromPairs(labels)...))
}

func (r *Registry) histogramFor(name string) metric.Float64Histogram {
	if v, ok := r.histograms.Load(name); ok {
		return v.(metric.Float64Histogram)
	}
	h, _ := r.meter.Float64Histogram(name)
	actual, _ := r.histograms.LoadOrStore(name, h)
	return actual.(metric.Float64Histogram)
}

func attrsFromPairs(labels []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		attrs = append(attrs, attribute.String(labels[i], labels[i+1]))
	}
	return attrs
}

func attr(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
