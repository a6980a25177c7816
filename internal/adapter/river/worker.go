package river

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/secretsanta/internal/domain"
)

// EventWorker records session lifecycle events from the River queue.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	slog.InfoContext(ctx, "processing session event",
		"event", job.Args.Event,
		"session_id", job.Args.SessionID,
		"status", job.Args.Status,
		"participants", job.Args.Participants,
		"assignments", job.Args.Assignments,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// PurgeJobArgs triggers removal of sessions idle for longer than the TTL.
type PurgeJobArgs struct{}

// Kind returns the unique job type identifier used by River's job routing.
func (PurgeJobArgs) Kind() string { return "session.purge" }

// PurgeWorker deletes expired sessions together with their participants
// and assignment sets.
type PurgeWorker struct {
	river.WorkerDefaults[PurgeJobArgs]

	sessions domain.SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewPurgeWorker creates a worker that drops sessions not updated within ttl.
func NewPurgeWorker(sessions domain.SessionRepository, ttl time.Duration) *PurgeWorker {
	return &PurgeWorker{sessions: sessions, ttl: ttl, now: time.Now}
}

// Work processes a single purge job.
func (w *PurgeWorker) Work(ctx context.Context, _ *river.Job[PurgeJobArgs]) error {
	cutoff := w.now().Add(-w.ttl)

	n, err := w.sessions.DeleteExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purging sessions: %w", err)
	}

	if n > 0 {
		slog.InfoContext(ctx, "purged expired sessions", "count", n, "cutoff", cutoff.UTC())
	}
	return nil
}
