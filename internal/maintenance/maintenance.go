// Package maintenance computes preventive-service status from usage hours.
package maintenance

import "fleetrent-backend/internal/domain"

const DefaultIntervalHours = 300

// Compute derives the maintenance status. nextDueHours, when positive, was set by
// the last service record and takes precedence over lastServiceHours+interval.
func Compute(currentHours, lastServiceHours, nextDueHours, interval float64) domain.MaintenanceStatus {
	if interval <= 0 {
		interval = DefaultIntervalHours
	}
	dueAt := lastServiceHours + interval
	if nextDueHours > 0 {
		dueAt = nextDueHours
	}
	return domain.MaintenanceStatus{
		CurrentHours:      currentHours,
		LastServiceHours:  lastServiceHours,
		HoursSinceService: currentHours - lastServiceHours,
		DueAt:             dueAt,
		IsOverdue:         currentHours >= dueAt,
	}
}

// Threshold buckets a due point so repeated scans of the same overdue state
// share one alert.
func Threshold(s domain.MaintenanceStatus) int64 {
	return int64(s.DueAt)
}
