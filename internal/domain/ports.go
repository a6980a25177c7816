package domain

import (
	"context"
	"time"
)

// SessionRepository defines the storage contract for sessions.
// Update replaces the participant list and assignment set wholesale.
type SessionRepository interface {
	Create(ctx context.Context, session Session) error
	GetByID(ctx context.Context, id string) (Session, error)
	Update(ctx context.Context, session Session) error
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}

// EventPublisher defines the contract for emitting session events.
type EventPublisher interface {
	Publish(ctx context.Context, event Event, session Session) error
}

// TransitionValidator checks lifecycle events against the current status.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}

// Assigner produces an assignment set for an ordered participant sequence.
type Assigner interface {
	Assign(participants []Participant) ([]Assignment, error)
}

// TokenEncryptor seals the recipients of an assignment set into display tokens.
type TokenEncryptor interface {
	Encrypt(ctx context.Context, assignments []Assignment) (TokenSet, error)
}

// Mailer hands an assignment set to the mail-send collaborator, one
// message per giver. It does not retry.
type Mailer interface {
	Deliver(ctx context.Context, sessionName string, assignments []Assignment) (DeliveryReport, error)
}
