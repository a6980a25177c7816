package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/neomorfeo/secretsanta/internal/domain"
)

// Config controls the optional session purge job.
type Config struct {
	// Sessions enables the purge job when non-nil.
	Sessions domain.SessionRepository
	// SessionTTL is how long a session may stay idle before it is purged.
	SessionTTL time.Duration
	// PurgeInterval is how often the purge job runs.
	PurgeInterval time.Duration
}

// Setup creates a River client with the event worker (and, when configured,
// the periodic purge job) registered and runs River's internal migrations.
// The caller must call client.Start() to begin processing jobs and
// client.Stop() for graceful shutdown.
func Setup(ctx context.Context, db *sql.DB, cfg Config) (*Client, error) {
	driver := riversqlite.New(db)

	// River's own tables (river_job, river_leader, ...) are separate from
	// the app's goose migrations.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &EventWorker{})

	var periodic []*river.PeriodicJob
	if cfg.Sessions != nil {
		if cfg.SessionTTL <= 0 || cfg.PurgeInterval <= 0 {
			return nil, fmt.Errorf("purge job needs a positive TTL and interval, got %s and %s", cfg.SessionTTL, cfg.PurgeInterval)
		}
		river.AddWorker(workers, NewPurgeWorker(cfg.Sessions, cfg.SessionTTL))
		periodic = append(periodic, river.NewPeriodicJob(
			river.PeriodicInterval(cfg.PurgeInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return PurgeJobArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}

	client, err := river.NewClient(driver, &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, nil
}
