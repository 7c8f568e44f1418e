package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/repository"
)

type logNotifier struct{}

// NewLogNotifier writes alerts to the application log only.
func NewLogNotifier() AlertNotifier {
	return logNotifier{}
}

func (logNotifier) Notify(ctx context.Context, alert Alert) error {
	logger.WarnContext(ctx, "Alert",
		"kind", alert.Kind,
		"equipmentID", alert.EquipmentID,
		"assetNumber", alert.AssetNumber,
		"title", alert.Title,
		"message", alert.Message)
	return nil
}

type multiNotifier []AlertNotifier

// NewMultiNotifier fans an alert out to every sink. Every sink is tried; the
// errors are joined.
func NewMultiNotifier(notifiers ...AlertNotifier) AlertNotifier {
	return multiNotifier(notifiers)
}

func (m multiNotifier) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AlertDispatcher records an alert before it is sent. An alert whose dedupe
// key is already recorded is dropped.
type AlertDispatcher struct {
	store    repository.Store
	notifier AlertNotifier
}

func NewAlertDispatcher(store repository.Store, notifier AlertNotifier) *AlertDispatcher {
	if notifier == nil {
		notifier = NewLogNotifier()
	}
	return &AlertDispatcher{store: store, notifier: notifier}
}

// Dispatch reports whether the alert was new and therefore sent.
func (d *AlertDispatcher) Dispatch(ctx context.Context, alert Alert, dedupeKey string) (bool, error) {
	n := &domain.Notification{
		Kind:        alert.Kind,
		EquipmentID: alert.EquipmentID,
		ContractID:  alert.ContractID,
		DedupeKey:   dedupeKey,
		Title:       alert.Title,
		Message:     alert.Message,
		Attributes:  maps.Clone(alert.Attributes),
	}
	created, err := d.store.Repos().Notifications.Create(ctx, n)
	if err != nil {
		return false, fmt.Errorf("failed to record alert %s: %w", dedupeKey, err)
	}
	if !created {
		logger.Debug("Alert already sent", "dedupeKey", dedupeKey)
		return false, nil
	}
	if err := d.notifier.Notify(ctx, alert); err != nil {
		return true, fmt.Errorf("failed to send alert %s: %w", dedupeKey, err)
	}
	return true, nil
}

func (d *AlertDispatcher) Recent(ctx context.Context, limit, offset int32) ([]domain.Notification, int32, error) {
	return d.store.Repos().Notifications.List(ctx, limit, offset)
}

func MaintenanceDueKey(equipmentID, threshold int64) string {
	return fmt.Sprintf("%s:%d:%d", domain.NotificationKindMaintenanceDue, equipmentID, threshold)
}

// ContractExpiredKey includes the end date so a renewed contract alerts again
// when its new term ends.
func ContractExpiredKey(contractID int64, endDate time.Time) string {
	return fmt.Sprintf("%s:%d:%s", domain.NotificationKindContractExpired, contractID, endDate.Format("2006-01-02"))
}
