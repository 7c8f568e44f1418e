package jobs

import (
	"context"
	"fmt"
	"time"

	"fleetrent-backend/internal/config"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/metrics"
	"fleetrent-backend/internal/repository"
	"fleetrent-backend/internal/service"
)

const jobTimeout = 5 * time.Minute

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	store      repository.Store
	services   *Services
	dispatcher *service.AlertDispatcher
	config     *config.Config
	now        func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Maintenance service.MaintenanceService
	Contracts   service.ContractService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(store repository.Store, services *Services, dispatcher *service.AlertDispatcher, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:      store,
		services:   services,
		dispatcher: dispatcher,
		config:     cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Config returns the configuration the runner was built with.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery and a deadline.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		metrics.JobRunsTotal.WithLabelValues(jobName, outcome).Inc()
	}()

	logger.Info("Starting job", "job", jobName)
	start := time.Now()
	if err = jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err, "duration", time.Since(start))
		return err
	}
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
	return nil
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() error {
	errMaint := jr.ScanMaintenanceDue()
	errColl := jr.ScheduleExpiredCollections()
	if errMaint != nil {
		return errMaint
	}
	return errColl
}
