// Package jobs runs the marcoutd service's background maintenance
// tasks, adapted from the teacher's retention_cleanup.go/scheduler.go
// pair but delegating actual scheduling to third-party cron libraries
// instead of the teacher's hand-rolled timer loop.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"marcout/internal/jobstore"
)

// RetentionCleanup purges completed/failed export_jobs rows older than
// the retention window, adapted from the teacher's RetentionCleanupJob
// but operating on jobstore rows instead of Mongo execution documents.
type RetentionCleanup struct {
	store     *jobstore.Store
	retention time.Duration
}

// NewRetentionCleanup builds a retention job keeping rows for the given
// duration (e.g. 30 days).
func NewRetentionCleanup(store *jobstore.Store, retention time.Duration) *RetentionCleanup {
	return &RetentionCleanup{store: store, retention: retention}
}

// Run deletes completed/failed job rows whose updated_at predates
// now-retention.
func (r *RetentionCleanup) Run(_ context.Context) error {
	if r.store == nil {
		log.Println("[retention] disabled: no jobstore configured")
		return nil
	}
	cutoff := time.Now().Add(-r.retention)
	deleted, err := r.store.DeleteOlderThan(cutoff)
	if err != nil {
		return err
	}
	log.Printf("[retention] purged %d export job rows older than %s", deleted, r.retention)
	return nil
}

// StartScheduler registers the retention job on a daily cadence using
// gocron and returns the running scheduler so the caller can Shutdown
// it on process exit.
func StartScheduler(retention *RetentionCleanup) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(func() {
			if err := retention.Run(context.Background()); err != nil {
				log.Printf("[retention] run failed: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}
