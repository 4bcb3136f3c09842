package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "dtplanner/pipeline"

// defaultTracer uses the global provider, which is a no-op until the process
// installs one.
func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func startRunSpan(ctx context.Context, tracer trace.Tracer, s *State) (context.Context, trace.Span) {
	return tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", s.RunID),
		attribute.String("company.name", s.Company.Name),
		attribute.String("company.industry", s.Company.Industry),
	))
}

func endRunSpan(span trace.Span, status string, err error) {
	span.SetAttributes(attribute.String("run.status", status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, status)
}

func startStageSpan(ctx context.Context, tracer trace.Tracer, stage string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "pipeline.stage."+stage, trace.WithAttributes(attribute.String("stage", stage)))
}

func endStageSpan(span trace.Span, r StageResult) {
	span.SetAttributes(
		attribute.Int("stage.attempts", r.Attempts),
		attribute.String("stage.outcome", r.Outcome()),
	)
	if r.Err != nil {
		span.RecordError(r.Err)
		span.SetStatus(codes.Error, r.Err.Error())
	}
}
