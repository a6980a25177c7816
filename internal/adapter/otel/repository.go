package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/secretsanta/internal/domain"
)

const tracerName = "github.com/neomorfeo/secretsanta/internal/adapter/otel"

// TracingRepository wraps a domain.SessionRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
// Participant names and emails never become span attributes.
type TracingRepository struct {
	next   domain.SessionRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.SessionRepository.
var _ domain.SessionRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.SessionRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) Create(ctx context.Context, session domain.Session) error {
	ctx, span := r.tracer.Start(ctx, "SessionRepository.Create",
		trace.WithAttributes(
			attribute.String("session.id", session.ID),
			attribute.String("session.status", string(session.Status)),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, session)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (domain.Session, error) {
	ctx, span := r.tracer.Start(ctx, "SessionRepository.GetByID",
		trace.WithAttributes(attribute.String("session.id", id)),
	)
	defer span.End()

	session, err := r.next.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return session, err
	}

	span.SetAttributes(
		attribute.String("session.status", string(session.Status)),
		attribute.Int("session.participants", len(session.Participants)),
	)
	return session, nil
}

func (r *TracingRepository) Update(ctx context.Context, session domain.Session) error {
	ctx, span := r.tracer.Start(ctx, "SessionRepository.Update",
		trace.WithAttributes(
			attribute.String("session.id", session.ID),
			attribute.String("session.status", string(session.Status)),
			attribute.Int("session.participants", len(session.Participants)),
			attribute.Int("session.assignments", len(session.Assignments)),
		),
	)
	defer span.End()

	err := r.next.Update(ctx, session)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *TracingRepository) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	ctx, span := r.tracer.Start(ctx, "SessionRepository.DeleteExpired",
		trace.WithAttributes(attribute.String("cutoff", before.UTC().Format(time.RFC3339))),
	)
	defer span.End()

	n, err := r.next.DeleteExpired(ctx, before)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int("result.count", n))
	}
	return n, err
}
