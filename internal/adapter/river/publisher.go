package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/secretsanta/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// EventJobArgs carries a snapshot of a session at the time a lifecycle event
// was published, so the worker never needs to query the database. Only ids
// and counts are recorded: an assignment must not leak through the job table.
type EventJobArgs struct {
	Event        string `json:"event"`
	SessionID    string `json:"session_id"`
	Status       string `json:"status"`
	Participants int    `json:"participants"`
	Assignments  int    `json:"assignments"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (EventJobArgs) Kind() string { return "session.event" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues a lifecycle event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.Event, session domain.Session) error {
	_, err := p.client.Insert(ctx, EventJobArgs{
		Event:        string(event),
		SessionID:    session.ID,
		Status:       string(session.Status),
		Participants: len(session.Participants),
		Assignments:  len(session.Assignments),
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing event job: %w", err)
	}
	return nil
}
