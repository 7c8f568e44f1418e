package service

import (
	"context"
	"errors"
	"fmt"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/repository"
)

type equipmentService struct {
	store repository.Store
}

func NewEquipmentService(store repository.Store) EquipmentService {
	return &equipmentService{store: store}
}

// RegisterEquipment is intake. New equipment starts available and has an
// empty ledger.
func (s *equipmentService) RegisterEquipment(ctx context.Context, e *domain.Equipment) error {
	logger.EnterMethod("equipmentService.RegisterEquipment", "assetNumber", e.AssetNumber)
	if err := e.Validate(); err != nil {
		logger.ExitMethodWithError("equipmentService.RegisterEquipment", err)
		return err
	}
	if err := s.store.Repos().Equipment.Create(ctx, e); err != nil {
		logger.ExitMethodWithError("equipmentService.RegisterEquipment", err, "assetNumber", e.AssetNumber)
		return err
	}
	logger.ExitMethod("equipmentService.RegisterEquipment", "equipmentID", e.ID)
	return nil
}

func (s *equipmentService) GetEquipment(ctx context.Context, id int64) (*domain.Equipment, error) {
	return s.store.Repos().Equipment.GetByID(ctx, id)
}

func (s *equipmentService) ListEquipment(ctx context.Context, filter domain.EquipmentFilter, page, pageSize int32) ([]domain.Equipment, int32, error) {
	if filter.State != "" && !filter.State.Valid() {
		return nil, 0, &domain.ValidationError{Field: "state", Message: fmt.Sprintf("unknown equipment state %q", filter.State)}
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	return s.store.Repos().Equipment.List(ctx, filter, page, pageSize)
}

type lifecycleService struct {
	pipeline *pipeline
}

func NewLifecycleService(store repository.Store, settings Settings) LifecycleService {
	return &lifecycleService{pipeline: newPipeline(store, settings)}
}

func (s *lifecycleService) Transition(ctx context.Context, cmd TransitionCommand) (*TransitionResult, error) {
	if cmd.Actor == "" {
		cmd.Actor = systemActor
	}
	switch cmd.Action {
	case domain.ActionBindContract, domain.ActionRenewContract:
		// these need contract terms
		return nil, &domain.ValidationError{Field: "action", Message: fmt.Sprintf("%s goes through the contract endpoints", cmd.Action)}
	case domain.ActionRecordEntry:
		return s.pipeline.execute(ctx, cmd, closeActiveContract(domain.ContractStatusFinished, ""))
	case domain.ActionCompleteMaintenance:
		if cmd.Maintenance == nil {
			return nil, &domain.ValidationError{Field: "maintenance", Message: "maintenance details are required"}
		}
		return s.pipeline.execute(ctx, cmd, recordMaintenance(*cmd.Maintenance, cmd.Actor))
	}
	return s.pipeline.execute(ctx, cmd, nil)
}

// closeActiveContract ends the bound contract when the equipment comes back.
// Pending pick-ups are completed, or cancelled along with the contract.
func closeActiveContract(status domain.ContractStatus, reason string) effect {
	return func(ctx context.Context, st *txState) error {
		c := st.active
		c.Status = status
		c.TerminationReason = reason
		closedAt := st.now
		c.ClosedAt = &closedAt
		if err := st.repos.Contracts.Update(ctx, c); err != nil {
			return err
		}

		taskStatus := domain.CollectionStatusCompleted
		if status == domain.ContractStatusCancelled {
			taskStatus = domain.CollectionStatusCancelled
		}
		if _, err := st.repos.Collections.TransitionPending(ctx, c.ID, taskStatus); err != nil {
			return err
		}
		st.movement.Context[domain.ContextFolio] = c.Folio
		if status != domain.ContractStatusFinished {
			st.movement.Context[domain.ContextTerminationStatus] = string(status)
		}
		return nil
	}
}

func recordMaintenance(in domain.MaintenanceInput, actor string) effect {
	return func(ctx context.Context, st *txState) error {
		if in.Type == "" {
			in.Type = domain.MaintenanceTypePreventive
		}
		if _, err := domain.ParseMaintenanceType(string(in.Type)); err != nil {
			return err
		}

		hours := st.movement.HoursMeter
		if in.HoursAtService != nil {
			hours = *in.HoursAtService
		} else {
			last, err := st.repos.Movements.LatestBefore(ctx, st.equipment.ID, st.now)
			switch {
			case err == nil:
				hours = last.HoursMeter
			case !errors.Is(err, domain.ErrNotFound):
				return err
			}
		}
		if hours < 0 {
			return &domain.ValidationError{Field: "hours_at_service", Message: "hours must not be negative"}
		}
		if in.NextDueHours != 0 && in.NextDueHours < hours {
			return &domain.ValidationError{Field: "next_due_hours", Message: "next due hours must not be below hours at service"}
		}

		rec := &domain.MaintenanceRecord{
			EquipmentID:    st.equipment.ID,
			Type:           in.Type,
			ServiceDate:    st.now,
			HoursAtService: hours,
			NextDueHours:   in.NextDueHours,
			Notes:          in.Notes,
			PerformedBy:    actor,
		}
		if err := st.repos.Maintenance.Create(ctx, rec); err != nil {
			return err
		}
		st.movement.HoursMeter = hours
		st.movement.Context[domain.ContextMaintenanceType] = string(in.Type)
		if in.Notes != "" {
			st.movement.Context[domain.ContextNotes] = in.Notes
		}
		return nil
	}
}
