package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

// tickClock advances one minute per reading so ledger entries get distinct times.
type tickClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type fixture struct {
	ctx         context.Context
	store       *memory.Store
	clock       *tickClock
	equipment   EquipmentService
	lifecycle   LifecycleService
	contracts   ContractService
	ledger      LedgerService
	maintenance MaintenanceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &tickClock{now: time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)}
	store := memory.NewStore(memory.WithClock(clock.Now))
	settings := Settings{Now: clock.Now, HistoryPageSize: 2}
	return &fixture{
		ctx:         context.Background(),
		store:       store,
		clock:       clock,
		equipment:   NewEquipmentService(store),
		lifecycle:   NewLifecycleService(store, settings),
		contracts:   NewContractService(store, settings),
		ledger:      NewLedgerService(store, settings),
		maintenance: NewMaintenanceService(store, settings),
	}
}

func (f *fixture) register(t *testing.T, asset string) *domain.Equipment {
	t.Helper()
	e := &domain.Equipment{AssetNumber: asset, Brand: "Genie", Model: "S-65", Category: "boom_lift", Location: "Yard A"}
	require.NoError(t, f.equipment.RegisterEquipment(f.ctx, e))
	return e
}

func (f *fixture) bind(t *testing.T, equipmentID int64, folio string, hours float64) *domain.Contract {
	t.Helper()
	c, _, err := f.contracts.BindContract(f.ctx, equipmentID, terms(folio, hours), "ana", "")
	require.NoError(t, err)
	return c
}

func (f *fixture) apply(t *testing.T, equipmentID int64, action domain.Action) *TransitionResult {
	t.Helper()
	res, err := f.lifecycle.Transition(f.ctx, TransitionCommand{EquipmentID: equipmentID, Action: action, Actor: "ana"})
	require.NoError(t, err)
	return res
}

func (f *fixture) kinds(t *testing.T, equipmentID int64) []domain.MovementKind {
	t.Helper()
	var out []domain.MovementKind
	for m, err := range f.ledger.History(f.ctx, equipmentID) {
		require.NoError(t, err)
		out = append(out, m.Kind)
	}
	return out
}

func terms(folio string, hours float64) domain.ContractTerms {
	return domain.ContractTerms{
		Folio:            folio,
		Client:           "Constructora Norte",
		StartDate:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:             30,
		AmountCents:      100000,
		AccumulatedHours: hours,
	}
}
