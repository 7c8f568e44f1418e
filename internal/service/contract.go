package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/repository"
)

type contractService struct {
	store    repository.Store
	pipeline *pipeline
}

func NewContractService(store repository.Store, settings Settings) ContractService {
	return &contractService{store: store, pipeline: newPipeline(store, settings)}
}

// BindContract creates the contract and moves the equipment to rented in one
// transaction. A second bind while one is active fails with AlreadyBound and
// leaves the first untouched.
func (s *contractService) BindContract(ctx context.Context, equipmentID int64, terms domain.ContractTerms, actor, requestID string) (*domain.Contract, *TransitionResult, error) {
	logger.EnterMethod("contractService.BindContract", "equipmentID", equipmentID, "folio", terms.Folio)
	if err := terms.ValidateForBind(); err != nil {
		logger.ExitMethodWithError("contractService.BindContract", err)
		return nil, nil, err
	}

	var contract *domain.Contract
	cmd := TransitionCommand{EquipmentID: equipmentID, Action: domain.ActionBindContract, RequestID: requestID, Actor: actor}
	result, err := s.pipeline.execute(ctx, cmd, func(ctx context.Context, st *txState) error {
		floor, err := meterFloor(ctx, st)
		if err != nil {
			return err
		}
		hours := terms.AccumulatedHours
		if hours == 0 {
			hours = floor
		}
		if hours < floor {
			return &domain.ValidationError{Field: "accumulated_hours",
				Message: fmt.Sprintf("hours must not be below the equipment meter (%.1f)", floor)}
		}

		contract = &domain.Contract{
			Folio:            strings.TrimSpace(terms.Folio),
			EquipmentID:      equipmentID,
			Client:           strings.TrimSpace(terms.Client),
			StartDate:        terms.StartDate,
			EndDate:          terms.EndDate,
			AmountCents:      terms.AmountCents,
			Days:             terms.Days,
			AccumulatedHours: hours,
			Status:           domain.ContractStatusActive,
			CreatedBy:        st.movement.Actor,
		}
		if err := st.repos.Contracts.Create(ctx, contract); err != nil {
			return err
		}
		st.movement.ContractID = &contract.ID
		st.movement.HoursMeter = contract.AccumulatedHours
		st.movement.Context[domain.ContextFolio] = contract.Folio
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("contractService.BindContract", err, "equipmentID", equipmentID)
		return nil, nil, err
	}

	if result.Replayed {
		if result.Movement.ContractID == nil {
			return nil, nil, &domain.StorageError{Op: "replay bind", Err: errors.New("recorded bind has no contract")}
		}
		contract, err = s.store.Repos().Contracts.GetByID(ctx, *result.Movement.ContractID)
		if err != nil {
			return nil, nil, err
		}
	}
	logger.ExitMethod("contractService.BindContract", "contractID", contract.ID)
	return contract, result, nil
}

// RenewContract replaces the live term of an active contract. The previous term
// is preserved in a Renewal, pending pick-ups are cancelled and a renewal entry
// lands in the ledger, all atomically.
func (s *contractService) RenewContract(ctx context.Context, contractID int64, terms domain.ContractTerms, actor, requestID string) (*domain.Renewal, error) {
	logger.EnterMethod("contractService.RenewContract", "contractID", contractID)
	if err := terms.Normalize(); err != nil {
		logger.ExitMethodWithError("contractService.RenewContract", err)
		return nil, err
	}

	c, err := s.store.Repos().Contracts.GetByID(ctx, contractID)
	if err != nil {
		logger.ExitMethodWithError("contractService.RenewContract", err)
		return nil, err
	}

	var renewal *domain.Renewal
	cmd := TransitionCommand{EquipmentID: c.EquipmentID, Action: domain.ActionRenewContract, RequestID: requestID, Actor: actor}
	result, err := s.pipeline.execute(ctx, cmd, func(ctx context.Context, st *txState) error {
		live := st.active
		if live.ID != contractID {
			return &domain.InvalidTransitionError{From: st.movement.PriorState, To: st.movement.NewState,
				Action: domain.ActionRenewContract, Reason: "contract is not active"}
		}

		newHours := terms.AccumulatedHours
		if newHours == 0 {
			newHours = live.AccumulatedHours
		}
		if newHours < live.AccumulatedHours {
			return &domain.ValidationError{Field: "accumulated_hours", Message: "hours must not decrease"}
		}

		renewal = &domain.Renewal{
			ContractID:      live.ID,
			PrevStartDate:   live.StartDate,
			PrevEndDate:     live.EndDate,
			NewStartDate:    terms.StartDate,
			NewEndDate:      terms.EndDate,
			PrevHours:       live.AccumulatedHours,
			NewHours:        newHours,
			PrevAmountCents: live.AmountCents,
			NewAmountCents:  terms.AmountCents,
			Actor:           st.movement.Actor,
		}
		if err := st.repos.Renewals.Create(ctx, renewal); err != nil {
			return err
		}

		live.StartDate = terms.StartDate
		live.EndDate = terms.EndDate
		live.Days = terms.Days
		live.AmountCents = terms.AmountCents
		live.AccumulatedHours = newHours
		if client := strings.TrimSpace(terms.Client); client != "" {
			live.Client = client
		}
		if err := st.repos.Contracts.Update(ctx, live); err != nil {
			return err
		}

		if _, err := st.repos.Collections.TransitionPending(ctx, live.ID, domain.CollectionStatusCancelled); err != nil {
			return err
		}

		st.movement.HoursMeter = newHours
		st.movement.Context[domain.ContextFolio] = live.Folio
		st.movement.Context[domain.ContextRenewalID] = strconv.FormatInt(renewal.ID, 10)
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("contractService.RenewContract", err, "contractID", contractID)
		return nil, err
	}

	if result.Replayed {
		renewal, err = s.recordedRenewal(ctx, contractID, result.Movement)
		if err != nil {
			logger.ExitMethodWithError("contractService.RenewContract", err, "contractID", contractID)
			return nil, err
		}
	}
	logger.ExitMethod("contractService.RenewContract", "renewalID", renewal.ID)
	return renewal, nil
}

// recordedRenewal finds the renewal written by the replayed ledger entry.
func (s *contractService) recordedRenewal(ctx context.Context, contractID int64, m *domain.Movement) (*domain.Renewal, error) {
	id, err := strconv.ParseInt(m.Context[domain.ContextRenewalID], 10, 64)
	if err != nil {
		return nil, domain.NewNotFound("renewal for movement", m.ID)
	}
	renewals, err := s.store.Repos().Renewals.ListByContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	for i := range renewals {
		if renewals[i].ID == id {
			return &renewals[i], nil
		}
	}
	return nil, domain.NewNotFound("renewal", id)
}

// TerminateContract ends an active contract early. The equipment is recorded as
// returned and goes to inspection like any other entry.
func (s *contractService) TerminateContract(ctx context.Context, contractID int64, reason string, cancel bool, actor, requestID string) (*domain.Contract, *TransitionResult, error) {
	logger.EnterMethod("contractService.TerminateContract", "contractID", contractID, "cancel", cancel)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		err := &domain.ValidationError{Field: "reason", Message: "termination reason is required"}
		logger.ExitMethodWithError("contractService.TerminateContract", err)
		return nil, nil, err
	}

	c, err := s.store.Repos().Contracts.GetByID(ctx, contractID)
	if err != nil {
		logger.ExitMethodWithError("contractService.TerminateContract", err)
		return nil, nil, err
	}

	status := domain.ContractStatusFinished
	if cancel {
		status = domain.ContractStatusCancelled
	}
	closeIt := closeActiveContract(status, reason)
	cmd := TransitionCommand{EquipmentID: c.EquipmentID, Action: domain.ActionRecordEntry, RequestID: requestID, Actor: actor, Reason: reason}
	result, err := s.pipeline.execute(ctx, cmd, func(ctx context.Context, st *txState) error {
		if st.active.ID != contractID {
			return &domain.InvalidTransitionError{From: st.movement.PriorState, To: st.movement.NewState,
				Action: domain.ActionRecordEntry, Reason: "contract is not active"}
		}
		return closeIt(ctx, st)
	})
	if err != nil {
		logger.ExitMethodWithError("contractService.TerminateContract", err, "contractID", contractID)
		return nil, nil, err
	}

	c, err = s.store.Repos().Contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, nil, err
	}
	logger.ExitMethod("contractService.TerminateContract", "contractID", contractID, "status", c.Status)
	return c, result, nil
}

// RecordHours updates the usage meter of an active contract. The meter never
// goes backwards.
func (s *contractService) RecordHours(ctx context.Context, contractID int64, hours float64) (*domain.Contract, error) {
	if hours < 0 {
		return nil, &domain.ValidationError{Field: "hours", Message: "hours must not be negative"}
	}
	c, err := s.store.Repos().Contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}

	var updated *domain.Contract
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		// serialise with renewals and entries on the same equipment
		if _, err := repos.Equipment.GetForUpdate(ctx, c.EquipmentID); err != nil {
			return err
		}
		cur, err := repos.Contracts.GetByID(ctx, contractID)
		if err != nil {
			return err
		}
		if !cur.IsActive() {
			return &domain.ValidationError{Field: "contract", Message: "contract is not active"}
		}
		if hours < cur.AccumulatedHours {
			return &domain.ValidationError{Field: "hours", Message: "hours must not decrease"}
		}
		cur.AccumulatedHours = hours
		if err := repos.Contracts.Update(ctx, cur); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Contract hours recorded", "contractID", contractID, "hours", hours)
	return updated, nil
}

func (s *contractService) ScheduleCollection(ctx context.Context, contractID int64, when time.Time, notes string) (*domain.CollectionTask, error) {
	if when.IsZero() {
		return nil, &domain.ValidationError{Field: "scheduled_for", Message: "collection date is required"}
	}
	c, err := s.store.Repos().Contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive() {
		return nil, &domain.ValidationError{Field: "contract", Message: "contract is not active"}
	}
	task := &domain.CollectionTask{
		ContractID:   c.ID,
		EquipmentID:  c.EquipmentID,
		ScheduledFor: when.UTC(),
		Status:       domain.CollectionStatusPending,
		Notes:        notes,
	}
	if err := s.store.Repos().Collections.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *contractService) ListCollections(ctx context.Context, contractID int64) ([]domain.CollectionTask, error) {
	if _, err := s.store.Repos().Contracts.GetByID(ctx, contractID); err != nil {
		return nil, err
	}
	return s.store.Repos().Collections.ListByContract(ctx, contractID)
}

func (s *contractService) GetContract(ctx context.Context, id int64) (*domain.Contract, error) {
	return s.store.Repos().Contracts.GetByID(ctx, id)
}

func (s *contractService) GetActiveContract(ctx context.Context, equipmentID int64) (*domain.Contract, error) {
	if _, err := s.store.Repos().Equipment.GetByID(ctx, equipmentID); err != nil {
		return nil, err
	}
	return s.store.Repos().Contracts.GetActiveByEquipment(ctx, equipmentID)
}

func (s *contractService) ListRenewals(ctx context.Context, contractID int64) ([]domain.Renewal, error) {
	if _, err := s.store.Repos().Contracts.GetByID(ctx, contractID); err != nil {
		return nil, err
	}
	return s.store.Repos().Renewals.ListByContract(ctx, contractID)
}
