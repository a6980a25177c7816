package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/secretsanta/internal/domain"
)

// TracingEncryptor wraps a domain.TokenEncryptor with OpenTelemetry tracing.
// Only counts are recorded; tokens and recipients stay out of telemetry.
type TracingEncryptor struct {
	next        domain.TokenEncryptor
	tracer      trace.Tracer
	instruments *Instruments
}

// Compile-time check: TracingEncryptor implements domain.TokenEncryptor.
var _ domain.TokenEncryptor = (*TracingEncryptor)(nil)

// NewTracingEncryptor creates a tracing decorator around the given encryptor.
func NewTracingEncryptor(next domain.TokenEncryptor, instruments *Instruments) *TracingEncryptor {
	return &TracingEncryptor{
		next:        next,
		tracer:      otel.Tracer(tracerName),
		instruments: instruments,
	}
}

func (e *TracingEncryptor) Encrypt(ctx context.Context, assignments []domain.Assignment) (domain.TokenSet, error) {
	ctx, span := e.tracer.Start(ctx, "TokenEncryptor.Encrypt",
		trace.WithAttributes(attribute.Int("token.requested", len(assignments))),
	)
	defer span.End()

	set, err := e.next.Encrypt(ctx, assignments)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return set, err
	}

	e.instruments.TokenBatches.Add(ctx, 1, metric.WithAttributes(attribute.Bool("available", set.Available)))
	span.SetAttributes(
		attribute.Bool("token.available", set.Available),
		attribute.Int("token.count", len(set.Tokens)),
	)
	return set, nil
}
