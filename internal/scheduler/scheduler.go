package scheduler

import (
	"fmt"
	"time"

	"fleetrent-backend/internal/jobs"
	"fleetrent-backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a scheduler with every job registered. A malformed
// cron expression is a configuration error.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// UTC, with a seconds field
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}
	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	entries := []struct {
		name     string
		schedule string
		run      func() error
	}{
		{"ScanMaintenanceDue", cfg.ScanMaintenanceDue, s.jobs.ScanMaintenanceDue},
		{"ScheduleExpiredCollections", cfg.ScheduleExpiredCollections, s.jobs.ScheduleExpiredCollections},
	}
	for _, e := range entries {
		run := e.run
		// failures are logged and counted by the runner
		if _, err := s.cron.AddFunc(e.schedule, func() { _ = run() }); err != nil {
			return fmt.Errorf("failed to register %s job with schedule %q: %w", e.name, e.schedule, err)
		}
		logger.Info("Registered cron job", "job", e.name, "schedule", e.schedule)
	}
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has jobs registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}

// Next reports when each job runs next, keyed by position of registration.
func (s *Scheduler) Next() []time.Time {
	var out []time.Time
	for _, e := range s.cron.Entries() {
		out = append(out, e.Next)
	}
	return out
}
