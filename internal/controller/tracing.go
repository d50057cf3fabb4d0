package controller

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openclaw/autopilot/internal/plan"
	"github.com/openclaw/autopilot/internal/telemetry"
)

// startTaskSpan opens the span covering a task's whole scheduling loop.
func startTaskSpan(ctx context.Context, task *plan.Task, stepCount int) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, "task.execute",
		attribute.String("task.id", task.ID),
		attribute.String("task.mode", string(task.Mode)),
		attribute.Int("task.steps", stepCount),
	)
}

// startStepSpan opens the span covering one step's validate/gate/dispatch.
func startStepSpan(ctx context.Context, step *plan.Step) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, "step.execute",
		attribute.String("step.id", step.ID),
		attribute.String("step.operation", step.OperationType),
		attribute.String("step.risk", string(step.Risk)),
	)
}

// endStepSpan records the step outcome on the span.
func endStepSpan(span trace.Span, step *plan.Step) {
	span.SetAttributes(attribute.String("step.status", string(step.Status)))
	if step.Err != nil {
		span.RecordError(step.Err)
		span.SetStatus(codes.Error, step.Err.Error())
	}
	span.End()
}
