package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CallContext tracks one worker call through its span and metrics. A nil
// Metrics field silently skips metric recording.
type CallContext struct {
	Method        string
	CorrelationID string
	StartTime     time.Time
	Metrics       *Metrics
}

// NewCallContext starts tracking a worker call.
func NewCallContext(method, correlationID string, metrics *Metrics) *CallContext {
	return &CallContext{
		Method:        method,
		CorrelationID: correlationID,
		StartTime:     time.Now(),
		Metrics:       metrics,
	}
}

// StartSpan opens the call span and records the in-flight metric.
func (cc *CallContext) StartSpan(ctx context.Context) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, SpanWorkerCall)
	span.SetAttributes(
		attribute.String(AttrMethod, cc.Method),
		attribute.String(AttrCorrelationID, cc.CorrelationID),
	)

	if cc.Metrics != nil {
		cc.Metrics.RecordCallStart(ctx)
	}
	return ctx, span
}

// End closes the span and records the call outcome.
func (cc *CallContext) End(ctx context.Context, span trace.Span, status string, err error) {
	duration := time.Since(cc.StartTime)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	if cc.Metrics != nil {
		cc.Metrics.RecordCallEnd(ctx, cc.Method, status, duration)
	}
}

// Duration returns the elapsed time since the call started.
func (cc *CallContext) Duration() time.Duration {
	return time.Since(cc.StartTime)
}
