package service

import (
	"context"
	"errors"
	"iter"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/lifecycle"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/repository"
)

type ledgerService struct {
	store    repository.Store
	pageSize int32
}

func NewLedgerService(store repository.Store, settings Settings) LedgerService {
	settings = settings.withDefaults()
	return &ledgerService{store: store, pageSize: settings.HistoryPageSize}
}

func (s *ledgerService) History(ctx context.Context, equipmentID int64) iter.Seq2[domain.Movement, error] {
	return func(yield func(domain.Movement, error) bool) {
		repos := s.store.Repos()
		if _, err := repos.Equipment.GetByID(ctx, equipmentID); err != nil {
			yield(domain.Movement{}, err)
			return
		}
		var after *domain.LedgerCursor
		for {
			page, err := repos.Movements.ListByEquipment(ctx, equipmentID, after, s.pageSize)
			if err != nil {
				yield(domain.Movement{}, err)
				return
			}
			for _, m := range page {
				if !yield(m, nil) {
					return
				}
			}
			if int32(len(page)) < s.pageSize {
				return
			}
			cur := page[len(page)-1].Cursor()
			after = &cur
		}
	}
}

// ListHistory returns one page and the cursor to continue from, or nil when
// the page is the last one.
func (s *ledgerService) ListHistory(ctx context.Context, equipmentID int64, after *domain.LedgerCursor, limit int32) ([]domain.Movement, *domain.LedgerCursor, error) {
	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}
	repos := s.store.Repos()
	if _, err := repos.Equipment.GetByID(ctx, equipmentID); err != nil {
		return nil, nil, err
	}
	page, err := repos.Movements.ListByEquipment(ctx, equipmentID, after, limit)
	if err != nil {
		return nil, nil, err
	}
	if int32(len(page)) < limit {
		return page, nil, nil
	}
	next := page[len(page)-1].Cursor()
	return page, &next, nil
}

// StateAt answers from the ledger alone. Before the first entry the equipment
// was available, since intake writes nothing.
func (s *ledgerService) StateAt(ctx context.Context, equipmentID int64, at time.Time) (domain.EquipmentState, error) {
	repos := s.store.Repos()
	if _, err := repos.Equipment.GetByID(ctx, equipmentID); err != nil {
		return "", err
	}
	m, err := repos.Movements.LatestBefore(ctx, equipmentID, at)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.EquipmentStateAvailable, nil
	}
	if err != nil {
		return "", err
	}
	return m.NewState, nil
}

// Verify replays the ledger and compares the result with the registry.
func (s *ledgerService) Verify(ctx context.Context, equipmentID int64) (domain.EquipmentState, error) {
	logger.EnterMethod("ledgerService.Verify", "equipmentID", equipmentID)
	eq, err := s.store.Repos().Equipment.GetByID(ctx, equipmentID)
	if err != nil {
		logger.ExitMethodWithError("ledgerService.Verify", err)
		return "", err
	}

	replayed, err := lifecycle.Replay(domain.EquipmentStateAvailable, s.History(ctx, equipmentID))
	if err != nil {
		var div *domain.LedgerDivergenceError
		if errors.As(err, &div) {
			div.RegistryState = eq.State
			logger.Error("Ledger divergence detected", "equipmentID", equipmentID, "movementID", div.MovementID, "registryState", eq.State)
		}
		logger.ExitMethodWithError("ledgerService.Verify", err)
		return replayed, err
	}
	if replayed != eq.State {
		err := &domain.LedgerDivergenceError{EquipmentID: equipmentID, Expected: replayed, RegistryState: eq.State}
		logger.Error("Ledger divergence detected", "equipmentID", equipmentID, "replayed", replayed, "registryState", eq.State)
		logger.ExitMethodWithError("ledgerService.Verify", err)
		return replayed, err
	}
	logger.ExitMethod("ledgerService.Verify", "equipmentID", equipmentID, "state", replayed)
	return replayed, nil
}
