package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "nciso/server"

// StartToolSpan opens a span around one tool execution. The global provider
// is a no-op unless the embedding process installs an SDK.
func StartToolSpan(ctx context.Context, tool, tenantID string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentation).Start(ctx, "tool "+tool,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("nciso.tool", tool),
			attribute.String("nciso.tenant_id", tenantID),
		),
	)
}

// EndToolSpan records the outcome and duration of a tool execution and ends the span.
func EndToolSpan(ctx context.Context, span trace.Span, tool string, d time.Duration, errMsg string) {
	status := "success"
	if errMsg != "" {
		status = "error"
		span.SetStatus(codes.Error, errMsg)
	}
	span.End()

	hist, err := otel.Meter(instrumentation).Float64Histogram(
		"nciso.tool.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Tool execution latency."),
	)
	if err != nil {
		return
	}
	hist.Record(ctx, float64(d.Microseconds())/1000, metric.WithAttributes(
		attribute.String("nciso.tool", tool),
		attribute.String("nciso.status", status),
	))
}
