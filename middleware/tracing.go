package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/KennethAtchon/Loctelli-sub005/job"
)

// instrumentationName is the scope name for engine traces and metrics.
const instrumentationName = "github.com/KennethAtchon/Loctelli-sub005"

// Tracing wraps each attempt in a span from the global TracerProvider.
// Without a configured provider the noop tracer makes it a pass-through.
func Tracing() Middleware {
	return TracingWithTracer(otel.Tracer(instrumentationName))
}

// TracingWithTracer is Tracing with an explicit tracer.
//
// Span attributes: jobs.job.id, jobs.job.type, jobs.attempt,
// jobs.max_attempts. Errors set the span status to codes.Error.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) (any, error) {
		ctx, span := tracer.Start(ctx, "jobs.process",
			trace.WithAttributes(
				attribute.String("jobs.job.id", j.ID),
				attribute.String("jobs.job.type", string(j.Type)),
				attribute.Int("jobs.attempt", j.Attempts),
				attribute.Int("jobs.max_attempts", j.MaxAttempts),
			),
			trace.WithSpanKind(trace.SpanKindConsumer),
		)
		defer span.End()

		res, err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		return res, err
	}
}
