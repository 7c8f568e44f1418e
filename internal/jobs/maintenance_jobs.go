package jobs

import (
	"context"
	"fmt"
	"strconv"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/maintenance"
	"fleetrent-backend/internal/metrics"
	"fleetrent-backend/internal/service"
)

// ScanMaintenanceDue alerts once per unit and due point when usage reaches the
// service threshold.
func (jr *JobRunner) ScanMaintenanceDue() error {
	return jr.runWithRecovery("ScanMaintenanceDue", func(ctx context.Context) error {
		sent, err := jr.scanMaintenanceDue(ctx)
		if err != nil {
			return err
		}
		logger.Info("Maintenance alerts sent", "count", sent)
		return nil
	})
}

func (jr *JobRunner) scanMaintenanceDue(ctx context.Context) (int, error) {
	overdue, err := jr.services.Maintenance.ScanOverdue(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to scan maintenance status: %w", err)
	}

	sent := 0
	for _, st := range overdue {
		eq, err := jr.store.Repos().Equipment.GetByID(ctx, st.EquipmentID)
		if err != nil {
			logger.Error("Failed to load equipment for alert", "equipmentID", st.EquipmentID, "error", err)
			continue
		}
		alert := service.Alert{
			Kind:        domain.NotificationKindMaintenanceDue,
			EquipmentID: eq.ID,
			AssetNumber: eq.AssetNumber,
			Title:       "Preventive maintenance due",
			Message: fmt.Sprintf("%s %s %s has %.1f hours, service was due at %.1f",
				eq.AssetNumber, eq.Brand, eq.Model, st.CurrentHours, st.DueAt),
			Attributes: map[string]string{
				"current_hours":       strconv.FormatFloat(st.CurrentHours, 'f', 1, 64),
				"due_at":              strconv.FormatFloat(st.DueAt, 'f', 1, 64),
				"hours_since_service": strconv.FormatFloat(st.HoursSinceService, 'f', 1, 64),
				"state":               string(eq.State),
				"location":            eq.Location,
			},
		}
		created, err := jr.dispatcher.Dispatch(ctx, alert, service.MaintenanceDueKey(eq.ID, maintenance.Threshold(st)))
		if err != nil {
			logger.Error("Failed to dispatch maintenance alert", "equipmentID", eq.ID, "error", err)
			continue
		}
		if created {
			sent++
			metrics.MaintenanceOverdueAlertsTotal.Inc()
			logger.Debug("Sent maintenance alert", "equipmentID", eq.ID, "dueAt", st.DueAt)
		}
	}
	return sent, nil
}
