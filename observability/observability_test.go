package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectedMetrics(t *testing.T, reader *sdkmetric.ManualReader) map[string]bool {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	names := make(map[string]bool)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = true
		}
	}
	return names
}

func TestMetrics_RecordsCallInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordCallStart(ctx)
	metrics.RecordCallEnd(ctx, "ticket.search", "ok", 25*time.Millisecond)
	metrics.RecordRetry(ctx)
	metrics.RecordRejection(ctx, "rate_limited")
	metrics.RecordBreakerTransition(ctx, "closed", "open")

	names := collectedMetrics(t, reader)
	for _, want := range []string{
		"worker.call.total",
		"worker.call.duration",
		"worker.call.active",
		"worker.retry.total",
		"worker.rejected.total",
		"worker.breaker.transitions",
	} {
		if !names[want] {
			t.Errorf("expected instrument %s to be recorded", want)
		}
	}
}

func TestCallContext_SpanLifecycle(t *testing.T) {
	// The global no-op tracer is fine here; this exercises the code path,
	// not the exporter.
	cc := NewCallContext("ticket.search", "abc-123", nil)

	ctx, span := cc.StartSpan(context.Background())
	if span == nil {
		t.Fatal("expected a span")
	}
	cc.End(ctx, span, "error", errors.New("worker gone"))

	if cc.Duration() < 0 {
		t.Error("duration should be non-negative")
	}
}

func TestDefaultConfigs(t *testing.T) {
	mc := DefaultMeterConfig("workerlink")
	if mc.ServiceName != "workerlink" || mc.Endpoint == "" {
		t.Errorf("unexpected meter defaults: %+v", mc)
	}
	tc := DefaultTracerConfig("workerlink")
	if tc.SampleRate != 1.0 {
		t.Errorf("expected full sampling by default, got %v", tc.SampleRate)
	}
}
