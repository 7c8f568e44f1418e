package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/lifecycle"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/maintenance"
	"fleetrent-backend/internal/metrics"
	"fleetrent-backend/internal/repository"

	"github.com/google/uuid"
)

const systemActor = "system"

// txState is what an action's side effect sees inside the transaction. The
// effect may fill movement fields and adjust equipment location; it must not
// change equipment state.
type txState struct {
	repos     *repository.Repositories
	equipment *domain.Equipment
	active    *domain.Contract
	movement  *domain.Movement
	now       time.Time
}

type effect func(ctx context.Context, st *txState) error

// pipeline runs every state-changing command: lock, idempotency check, engine,
// side effect, ledger append, registry update. One transaction covers all of it.
type pipeline struct {
	store    repository.Store
	settings Settings
}

func newPipeline(store repository.Store, settings Settings) *pipeline {
	return &pipeline{store: store, settings: settings.withDefaults()}
}

func (s Settings) withDefaults() Settings {
	if s.Now == nil {
		s.Now = func() time.Time { return time.Now().UTC() }
	}
	if s.NewRequestID == nil {
		s.NewRequestID = uuid.NewString
	}
	if s.MaintenanceIntervalHours <= 0 {
		s.MaintenanceIntervalHours = maintenance.DefaultIntervalHours
	}
	if s.HistoryPageSize <= 0 {
		s.HistoryPageSize = 100
	}
	return s
}

func (p *pipeline) execute(ctx context.Context, cmd TransitionCommand, eff effect) (*TransitionResult, error) {
	logger.EnterMethod("pipeline.execute", "equipmentID", cmd.EquipmentID, "action", cmd.Action, "requestID", cmd.RequestID)

	if cmd.RequestID == "" {
		cmd.RequestID = p.settings.NewRequestID()
	}
	if strings.TrimSpace(cmd.Actor) == "" {
		cmd.Actor = systemActor
	}

	var result *TransitionResult
	err := p.store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		eq, err := repos.Equipment.GetForUpdate(ctx, cmd.EquipmentID)
		if err != nil {
			return err
		}

		// Same request id, same command: hand back what was recorded.
		prior, err := repos.Movements.GetByRequestID(ctx, cmd.RequestID)
		switch {
		case err == nil:
			if prior.EquipmentID != eq.ID || prior.Action != cmd.Action {
				return domain.ErrIdempotencyMismatch
			}
			result = &TransitionResult{Equipment: eq, Movement: prior, Allowed: lifecycle.Allowed(eq.State), Replayed: true}
			return nil
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		active, err := repos.Contracts.GetActiveByEquipment(ctx, eq.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		guard := lifecycle.Guard{EquipmentID: eq.ID, Location: eq.Location, Destination: cmd.Destination}
		if active != nil {
			guard.ActiveContractID = active.ID
		}
		outcome, err := lifecycle.Apply(eq.State, cmd.Action, guard)
		if err != nil {
			return err
		}

		now := p.settings.Now()
		hours, err := currentHours(ctx, repos, eq.ID)
		if err != nil {
			return err
		}
		m := &domain.Movement{
			EquipmentID: eq.ID,
			Kind:        outcome.Kind,
			Action:      cmd.Action,
			PriorState:  outcome.From,
			NewState:    outcome.To,
			Actor:       cmd.Actor,
			RequestID:   cmd.RequestID,
			HoursMeter:  hours,
			Context:     map[string]string{},
			OccurredAt:  now,
		}
		if active != nil {
			m.ContractID = &active.ID
		}
		if cmd.Reason != "" {
			m.Context[domain.ContextReason] = cmd.Reason
		}
		if cmd.Notes != "" {
			m.Context[domain.ContextNotes] = cmd.Notes
		}

		st := &txState{repos: repos, equipment: eq, active: active, movement: m, now: now}
		if err := p.locationEffect(ctx, st, cmd); err != nil {
			return err
		}
		if eff != nil {
			if err := eff(ctx, st); err != nil {
				return err
			}
		}

		// Ledger first; the registry follows only if the append succeeded.
		if _, err := repos.Movements.Append(ctx, m); err != nil {
			return err
		}
		eq.State = outcome.To
		if err := repos.Equipment.UpdateState(ctx, eq); err != nil {
			return err
		}

		result = &TransitionResult{Equipment: eq, Movement: m, Allowed: lifecycle.Allowed(eq.State)}
		return nil
	})
	if err != nil {
		metrics.TransitionsTotal.WithLabelValues(string(cmd.Action), resultLabel(err)).Inc()
		logger.ExitMethodWithError("pipeline.execute", err, "equipmentID", cmd.EquipmentID, "action", cmd.Action)
		return nil, err
	}

	if result.Replayed {
		metrics.TransitionsTotal.WithLabelValues(string(cmd.Action), metrics.ResultReplayed).Inc()
	} else {
		metrics.TransitionsTotal.WithLabelValues(string(cmd.Action), metrics.ResultApplied).Inc()
		metrics.LedgerAppendsTotal.WithLabelValues(string(result.Movement.Kind)).Inc()
		logger.Info("Transition applied",
			"equipmentID", cmd.EquipmentID,
			"action", cmd.Action,
			"from", result.Movement.PriorState,
			"to", result.Movement.NewState,
			"movementID", result.Movement.ID,
			"actor", cmd.Actor)
	}
	logger.ExitMethod("pipeline.execute", "equipmentID", cmd.EquipmentID, "replayed", result.Replayed)
	return result, nil
}

// locationEffect keeps Location and RetiredAt in step with the action.
func (p *pipeline) locationEffect(ctx context.Context, st *txState, cmd TransitionCommand) error {
	eq, m := st.equipment, st.movement
	switch cmd.Action {
	case domain.ActionStartTransfer:
		m.Context[domain.ContextFromLocation] = eq.Location
		m.Context[domain.ContextToLocation] = strings.TrimSpace(cmd.Destination)
	case domain.ActionCompleteTransfer:
		// in_transit is only entered by start_transfer, so the latest entry names the destination
		last, err := st.repos.Movements.LatestBefore(ctx, eq.ID, st.now)
		if err != nil {
			return err
		}
		if dest := last.Context[domain.ContextToLocation]; dest != "" {
			m.Context[domain.ContextFromLocation] = eq.Location
			m.Context[domain.ContextToLocation] = dest
			eq.Location = dest
		}
	case domain.ActionRetire:
		retiredAt := st.now
		eq.RetiredAt = &retiredAt
	}
	return nil
}

// currentHours is the usage meter: the active contract, else the most recent
// contract, else the last service record.
func currentHours(ctx context.Context, repos *repository.Repositories, equipmentID int64) (float64, error) {
	c, err := repos.Contracts.GetActiveByEquipment(ctx, equipmentID)
	if err == nil {
		return c.AccumulatedHours, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}
	c, err = repos.Contracts.GetLatestByEquipment(ctx, equipmentID)
	if err == nil {
		return c.AccumulatedHours, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}
	rec, err := repos.Maintenance.Latest(ctx, equipmentID)
	if err == nil {
		return rec.HoursAtService, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}
	return 0, nil
}

// meterFloor is the highest usage reading the equipment has reported: the
// pipeline meter, the last service record and the last ledger entry.
func meterFloor(ctx context.Context, st *txState) (float64, error) {
	floor := st.movement.HoursMeter
	rec, err := st.repos.Maintenance.Latest(ctx, st.equipment.ID)
	switch {
	case err == nil:
		floor = max(floor, rec.HoursAtService)
	case !errors.Is(err, domain.ErrNotFound):
		return 0, err
	}
	last, err := st.repos.Movements.LatestBefore(ctx, st.equipment.ID, st.now)
	switch {
	case err == nil:
		floor = max(floor, last.HoursMeter)
	case !errors.Is(err, domain.ErrNotFound):
		return 0, err
	}
	return floor, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyBound),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrIdempotencyMismatch),
		errors.Is(err, domain.ErrNotFound):
		return metrics.ResultRejected
	}
	return metrics.ResultFailed
}
