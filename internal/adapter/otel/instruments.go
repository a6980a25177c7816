package otel

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Instruments are the service-level metrics recorded by the decorators.
// None of them carry participant data; attributes are verdicts only.
type Instruments struct {
	// Notifications counts messages handed to the mail provider, by "accepted".
	Notifications metric.Int64Counter
	// TokenBatches counts token requests, by "available".
	TokenBatches metric.Int64Counter
}

// NewInstruments registers the service instruments on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	notifications, err := meter.Int64Counter(
		"secretsanta.notifications",
		metric.WithDescription("Notification messages handed to the mail provider"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating notifications counter: %w", err)
	}

	batches, err := meter.Int64Counter(
		"secretsanta.token.batches",
		metric.WithDescription("Token sealing requests by capability outcome"),
		metric.WithUnit("{batch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating token batches counter: %w", err)
	}

	return &Instruments{Notifications: notifications, TokenBatches: batches}, nil
}
