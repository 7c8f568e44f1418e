package scheduler

import (
	"testing"

	"fleetrent-backend/internal/config"
	"fleetrent-backend/internal/jobs"
	"fleetrent-backend/internal/repository/memory"
	"fleetrent-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runner(cfg *config.Config) *jobs.JobRunner {
	store := memory.NewStore()
	settings := service.Settings{}
	return jobs.NewJobRunner(store, &jobs.Services{
		Maintenance: service.NewMaintenanceService(store, settings),
		Contracts:   service.NewContractService(store, settings),
	}, service.NewAlertDispatcher(store, service.NewLogNotifier()), cfg)
}

func TestNewScheduler(t *testing.T) {
	t.Run("RegistersJobs", func(t *testing.T) {
		cfg := &config.Config{Scheduler: config.SchedulerConfig{
			ScanMaintenanceDue:         "0 0 6 * * *",
			ScheduleExpiredCollections: "0 30 6 * * *",
		}}
		s, err := NewScheduler(runner(cfg))
		require.NoError(t, err)
		assert.True(t, s.IsRunning())

		s.Start()
		next := s.Next()
		s.Stop()
		require.Len(t, next, 2)
	})

	t.Run("BadSpec", func(t *testing.T) {
		cfg := &config.Config{Scheduler: config.SchedulerConfig{
			ScanMaintenanceDue:         "every morning",
			ScheduleExpiredCollections: "0 30 6 * * *",
		}}
		_, err := NewScheduler(runner(cfg))
		assert.ErrorContains(t, err, "ScanMaintenanceDue")
	})
}
