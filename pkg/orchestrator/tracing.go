package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies this package's spans in any OTel exporter.
const tracerName = "github.com/corvid-robotics/robobrain/pkg/orchestrator"

var tracer = otel.Tracer(tracerName)

// startStageSpan opens a span named "<pipeline>.<stage>", the same
// (session, stage) pairing a checkpoint is keyed by, so a trace and its
// corresponding checkpoint can be correlated by eye in a dashboard.
func startStageSpan(ctx context.Context, pipeline, sessionID, stage string) (context.Context, trace.Span) {
	return tracer.Start(ctx, pipeline+"."+stage,
		trace.WithAttributes(
			attribute.String("robobrain.session_id", sessionID),
			attribute.String("robobrain.pipeline", pipeline),
			attribute.String("robobrain.stage", stage),
		),
	)
}

// endStageSpan records the stage's outcome and closes the span.
func endStageSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
