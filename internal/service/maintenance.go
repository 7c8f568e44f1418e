package service

import (
	"context"
	"errors"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/maintenance"
	"fleetrent-backend/internal/repository"
)

const scanPageSize = 100

type maintenanceService struct {
	store    repository.Store
	interval float64
}

func NewMaintenanceService(store repository.Store, settings Settings) MaintenanceService {
	settings = settings.withDefaults()
	return &maintenanceService{store: store, interval: settings.MaintenanceIntervalHours}
}

func (s *maintenanceService) GetMaintenanceStatus(ctx context.Context, equipmentID int64) (*domain.MaintenanceStatus, error) {
	repos := s.store.Repos()
	if _, err := repos.Equipment.GetByID(ctx, equipmentID); err != nil {
		return nil, err
	}
	return s.status(ctx, repos, equipmentID)
}

func (s *maintenanceService) status(ctx context.Context, repos *repository.Repositories, equipmentID int64) (*domain.MaintenanceStatus, error) {
	hours, err := currentHours(ctx, repos, equipmentID)
	if err != nil {
		return nil, err
	}
	var last, nextDue float64
	rec, err := repos.Maintenance.Latest(ctx, equipmentID)
	switch {
	case err == nil:
		last, nextDue = rec.HoursAtService, rec.NextDueHours
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	st := maintenance.Compute(hours, last, nextDue, s.interval)
	st.EquipmentID = equipmentID
	return &st, nil
}

func (s *maintenanceService) ListRecords(ctx context.Context, equipmentID int64) ([]domain.MaintenanceRecord, error) {
	repos := s.store.Repos()
	if _, err := repos.Equipment.GetByID(ctx, equipmentID); err != nil {
		return nil, err
	}
	return repos.Maintenance.ListByEquipment(ctx, equipmentID)
}

func (s *maintenanceService) ScanOverdue(ctx context.Context) ([]domain.MaintenanceStatus, error) {
	logger.EnterMethod("maintenanceService.ScanOverdue")
	repos := s.store.Repos()
	var overdue []domain.MaintenanceStatus
	var scanned int32
	for page := int32(1); ; page++ {
		list, total, err := repos.Equipment.List(ctx, domain.EquipmentFilter{}, page, scanPageSize)
		if err != nil {
			logger.ExitMethodWithError("maintenanceService.ScanOverdue", err)
			return nil, err
		}
		for _, eq := range list {
			if eq.State.Terminal() {
				continue
			}
			st, err := s.status(ctx, repos, eq.ID)
			if err != nil {
				logger.ExitMethodWithError("maintenanceService.ScanOverdue", err, "equipmentID", eq.ID)
				return nil, err
			}
			if st.IsOverdue {
				overdue = append(overdue, *st)
			}
		}
		scanned += int32(len(list))
		if len(list) == 0 || scanned >= total {
			break
		}
	}
	logger.ExitMethod("maintenanceService.ScanOverdue", "scanned", scanned, "overdue", len(overdue))
	return overdue, nil
}
