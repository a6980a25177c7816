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

// TracingMailer wraps a domain.Mailer with a span per notification run and
// counts delivery outcomes by verdict.
type TracingMailer struct {
	next        domain.Mailer
	tracer      trace.Tracer
	instruments *Instruments
}

// Compile-time check: TracingMailer implements domain.Mailer.
var _ domain.Mailer = (*TracingMailer)(nil)

// NewTracingMailer creates a tracing decorator around the given mailer.
func NewTracingMailer(next domain.Mailer, instruments *Instruments) *TracingMailer {
	return &TracingMailer{
		next:        next,
		tracer:      otel.Tracer(tracerName),
		instruments: instruments,
	}
}

func (m *TracingMailer) Deliver(ctx context.Context, sessionName string, assignments []domain.Assignment) (domain.DeliveryReport, error) {
	ctx, span := m.tracer.Start(ctx, "Mailer.Deliver",
		trace.WithAttributes(attribute.Int("notification.count", len(assignments))),
	)
	defer span.End()

	report, err := m.next.Deliver(ctx, sessionName, assignments)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	rejected := len(report.Outcomes) - report.Accepted
	m.instruments.Notifications.Add(ctx, int64(report.Accepted), metric.WithAttributes(attribute.Bool("accepted", true)))
	m.instruments.Notifications.Add(ctx, int64(rejected), metric.WithAttributes(attribute.Bool("accepted", false)))

	span.SetAttributes(
		attribute.Int("notification.accepted", report.Accepted),
		attribute.Int("notification.rejected", rejected),
	)
	return report, nil
}
