// Package telemetry centralizes tracer access so packages never touch the
// global OpenTelemetry state directly.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/openclaw/autopilot"

// GetTracer returns the tracer for this module. With no SDK installed the
// returned tracer is a no-op, so call sites never need to guard.
func GetTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan opens a span with the given attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := GetTracer().Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}
