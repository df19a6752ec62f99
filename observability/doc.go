// Package observability provides OpenTelemetry tracing and metrics for the
// worker client.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("workerlink"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanWorkerCall)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("workerlink"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("workerlink"))
//	metrics.RecordCallEnd(ctx, "ticket.search", "ok", duration)
//
// Both providers are optional: without initialization the global no-op
// providers are used and instrumentation costs next to nothing.
package observability
