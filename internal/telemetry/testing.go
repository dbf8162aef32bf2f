package telemetry

import (
	"context"
	"slices"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTelemetry records spans and metrics in memory.
type TestTelemetry struct {
	*Telemetry

	SpanRecorder *tracetest.SpanRecorder
	MetricReader *sdkmetric.ManualReader
}

// NewTestTelemetry creates telemetry with in-memory exporters. Nothing is
// installed globally.
func NewTestTelemetry() *TestTelemetry {
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	spanRecorder := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()

	tel := newTelemetry(cfg)
	tel.tracerProvider = trace.NewTracerProvider(trace.WithSpanProcessor(spanRecorder))
	tel.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return &TestTelemetry{
		Telemetry:    tel,
		SpanRecorder: spanRecorder,
		MetricReader: reader,
	}
}

// Spans returns the ended spans in end order.
func (t *TestTelemetry) Spans() []trace.ReadOnlySpan {
	return t.SpanRecorder.Ended()
}

// SpanByName returns the first ended span called name, or nil.
func (t *TestTelemetry) SpanByName(name string) trace.ReadOnlySpan {
	i := slices.IndexFunc(t.Spans(), func(s trace.ReadOnlySpan) bool { return s.Name() == name })
	if i < 0 {
		return nil
	}
	return t.Spans()[i]
}

func (t *TestTelemetry) AssertSpanExists(tb testing.TB, name string) {
	tb.Helper()
	if t.SpanByName(name) == nil {
		tb.Errorf("no span %q among %v", name, t.spanNames())
	}
}

// AssertSpanAttribute compares the attribute's Go value (string, int64,
// float64, bool) with want.
func (t *TestTelemetry) AssertSpanAttribute(tb testing.TB, spanName, key string, want any) {
	tb.Helper()
	span := t.SpanByName(spanName)
	if span == nil {
		tb.Fatalf("no span %q among %v", spanName, t.spanNames())
	}
	set := attribute.NewSet(span.Attributes()...)
	got, ok := set.Value(attribute.Key(key))
	switch {
	case !ok:
		tb.Errorf("span %q has no attribute %q", spanName, key)
	case got.AsInterface() != want:
		tb.Errorf("span %q attribute %q = %v, want %v", spanName, key, got.AsInterface(), want)
	}
}

func (t *TestTelemetry) spanNames() []string {
	names := []string{}
	for _, s := range t.Spans() {
		names = append(names, s.Name())
	}
	return names
}

// CounterSum collects metrics and returns the sum of every data point of the
// named int64 counter whose attributes include attrs. Missing counters sum
// to zero.
func (t *TestTelemetry) CounterSum(tb testing.TB, name string, attrs ...attribute.KeyValue) int64 {
	tb.Helper()
	var rm metricdata.ResourceMetrics
	if err := t.MetricReader.Collect(context.Background(), &rm); err != nil {
		tb.Fatalf("collecting metrics: %v", err)
	}

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				tb.Fatalf("metric %q is %T, not an int64 sum", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				if hasAttrs(dp.Attributes, attrs) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func hasAttrs(set attribute.Set, want []attribute.KeyValue) bool {
	for _, kv := range want {
		v, ok := set.Value(kv.Key)
		if !ok || v.Emit() != kv.Value.Emit() {
			return false
		}
	}
	return true
}
