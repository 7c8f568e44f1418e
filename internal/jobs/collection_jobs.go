package jobs

import (
	"context"
	"fmt"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/service"
)

// ScheduleExpiredCollections books a pick-up for every active contract whose
// term has ended and tells the yard about it. Equipment state is not touched;
// the unit stays rented until it is checked back in.
func (jr *JobRunner) ScheduleExpiredCollections() error {
	return jr.runWithRecovery("ScheduleExpiredCollections", func(ctx context.Context) error {
		scheduled, err := jr.scheduleExpiredCollections(ctx)
		if err != nil {
			return err
		}
		logger.Info("Collections scheduled for expired contracts", "count", scheduled)
		return nil
	})
}

func (jr *JobRunner) scheduleExpiredCollections(ctx context.Context) (int, error) {
	now := jr.now()
	expired, err := jr.store.Repos().Contracts.ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired contracts: %w", err)
	}

	scheduled := 0
	for _, c := range expired {
		tasks, err := jr.services.Contracts.ListCollections(ctx, c.ID)
		if err != nil {
			logger.Error("Failed to list collections", "contractID", c.ID, "error", err)
			continue
		}
		if hasPending(tasks) {
			continue
		}

		task, err := jr.services.Contracts.ScheduleCollection(ctx, c.ID, now, "contract term ended")
		if err != nil {
			logger.Error("Failed to schedule collection", "contractID", c.ID, "error", err)
			continue
		}
		scheduled++

		eq, err := jr.store.Repos().Equipment.GetByID(ctx, c.EquipmentID)
		if err != nil {
			logger.Error("Failed to load equipment for alert", "equipmentID", c.EquipmentID, "error", err)
			continue
		}
		contractID := c.ID
		alert := service.Alert{
			Kind:        domain.NotificationKindContractExpired,
			EquipmentID: eq.ID,
			AssetNumber: eq.AssetNumber,
			ContractID:  &contractID,
			Title:       "Rental contract expired",
			Message: fmt.Sprintf("Contract %s for %s (%s) ended on %s. Pick-up scheduled.",
				c.Folio, eq.AssetNumber, c.Client, c.EndDate.Format("2006-01-02")),
			Attributes: map[string]string{
				"folio":         c.Folio,
				"client":        c.Client,
				"end_date":      c.EndDate.Format("2006-01-02"),
				"collection_id": fmt.Sprint(task.ID),
			},
		}
		if _, err := jr.dispatcher.Dispatch(ctx, alert, service.ContractExpiredKey(c.ID, c.EndDate)); err != nil {
			logger.Error("Failed to dispatch contract alert", "contractID", c.ID, "error", err)
		}
	}
	return scheduled, nil
}

func hasPending(tasks []domain.CollectionTask) bool {
	for _, t := range tasks {
		if t.Status == domain.CollectionStatusPending {
			return true
		}
	}
	return false
}
