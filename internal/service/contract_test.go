package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"fleetrent-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindContract(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-10")

	t.Run("MissingFolio", func(t *testing.T) {
		_, _, err := f.contracts.BindContract(f.ctx, eq.ID, terms("", 0), "ana", "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Success", func(t *testing.T) {
		c, res, err := f.contracts.BindContract(f.ctx, eq.ID, terms("C10", 12), "ana", "bind-10")
		require.NoError(t, err)
		assert.Equal(t, domain.ContractStatusActive, c.Status)
		assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), c.EndDate)
		assert.Equal(t, "ana", c.CreatedBy)
		require.NotNil(t, res.Movement.ContractID)
		assert.Equal(t, c.ID, *res.Movement.ContractID)
		assert.Equal(t, 12.0, res.Movement.HoursMeter)
		assert.Equal(t, "C10", res.Movement.Context[domain.ContextFolio])
		assert.Equal(t, domain.EquipmentStateRented, res.Equipment.State)
	})

	t.Run("Replay", func(t *testing.T) {
		c, res, err := f.contracts.BindContract(f.ctx, eq.ID, terms("C10", 12), "ana", "bind-10")
		require.NoError(t, err)
		assert.True(t, res.Replayed)
		assert.Equal(t, "C10", c.Folio)
	})
}

func TestRenewContract(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-11")
	c := f.bind(t, eq.ID, "C11", 10)

	task, err := f.contracts.ScheduleCollection(f.ctx, c.ID, time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC), "gate 3")
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionStatusPending, task.Status)

	next := domain.ContractTerms{
		StartDate:        time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		Days:             15,
		AmountCents:      50000,
		AccumulatedHours: 40,
	}

	t.Run("HoursCannotDecrease", func(t *testing.T) {
		bad := next
		bad.AccumulatedHours = 5
		_, err := f.contracts.RenewContract(f.ctx, c.ID, bad, "ana", "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Success", func(t *testing.T) {
		r, err := f.contracts.RenewContract(f.ctx, c.ID, next, "ana", "renew-11")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), r.PrevStartDate)
		assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), r.PrevEndDate)
		assert.Equal(t, 10.0, r.PrevHours)
		assert.Equal(t, 40.0, r.NewHours)
		assert.Equal(t, int64(100000), r.PrevAmountCents)

		live, err := f.contracts.GetContract(f.ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), live.EndDate)
		assert.Equal(t, int64(50000), live.AmountCents)
		assert.Equal(t, 40.0, live.AccumulatedHours)

		renewals, err := f.contracts.ListRenewals(f.ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, renewals, 1)

		tasks, err := f.contracts.ListCollections(f.ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, domain.CollectionStatusCancelled, tasks[0].Status)

		assert.Equal(t, []domain.MovementKind{domain.MovementKindContractBind, domain.MovementKindRenewal}, f.kinds(t, eq.ID))
	})

	t.Run("Replay", func(t *testing.T) {
		r, err := f.contracts.RenewContract(f.ctx, c.ID, next, "ana", "renew-11")
		require.NoError(t, err)
		assert.Equal(t, 40.0, r.NewHours)
		renewals, err := f.contracts.ListRenewals(f.ctx, c.ID)
		require.NoError(t, err)
		assert.Len(t, renewals, 1)
	})

	t.Run("ReplayAfterLaterRenewal", func(t *testing.T) {
		first, err := f.contracts.RenewContract(f.ctx, c.ID, next, "ana", "renew-11")
		require.NoError(t, err)

		later := next
		later.StartDate = time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
		later.AccumulatedHours = 55
		second, err := f.contracts.RenewContract(f.ctx, c.ID, later, "ana", "renew-11b")
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		again, err := f.contracts.RenewContract(f.ctx, c.ID, next, "ana", "renew-11")
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
		assert.Equal(t, 40.0, again.NewHours)
	})
}

func TestBindContract_MeterNeverGoesBack(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-16")
	f.bind(t, eq.ID, "C16", 305)
	f.apply(t, eq.ID, domain.ActionRecordEntry)
	f.apply(t, eq.ID, domain.ActionSendToShop)
	serviced := 320.0
	_, err := f.lifecycle.Transition(f.ctx, TransitionCommand{
		EquipmentID: eq.ID,
		Action:      domain.ActionCompleteMaintenance,
		Maintenance: &domain.MaintenanceInput{HoursAtService: &serviced},
	})
	require.NoError(t, err)

	t.Run("BelowMeter", func(t *testing.T) {
		_, _, err := f.contracts.BindContract(f.ctx, eq.ID, terms("C17", 310), "ana", "")
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "accumulated_hours", verr.Field)

		got, err := f.equipment.GetEquipment(f.ctx, eq.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EquipmentStateAvailable, got.State)
	})

	t.Run("ZeroCarriesMeter", func(t *testing.T) {
		c := f.bind(t, eq.ID, "C17", 0)
		assert.Equal(t, 320.0, c.AccumulatedHours)

		_, err := f.contracts.RecordHours(f.ctx, c.ID, 400)
		require.NoError(t, err)
		status, err := f.maintenance.GetMaintenanceStatus(f.ctx, eq.ID)
		require.NoError(t, err)
		assert.Equal(t, 80.0, status.HoursSinceService)
		assert.Equal(t, 620.0, status.DueAt)
		assert.False(t, status.IsOverdue)
	})
}

func TestBindContract_ConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-18")

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = f.contracts.BindContract(f.ctx, eq.ID, terms(fmt.Sprintf("C18-%d", i), 0), "ana", "")
		}()
	}
	wg.Wait()

	bound := 0
	for _, err := range errs {
		if err == nil {
			bound++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAlreadyBound)
	}
	assert.Equal(t, 1, bound)
	assert.Equal(t, []domain.MovementKind{domain.MovementKindContractBind}, f.kinds(t, eq.ID))

	got, err := f.equipment.GetEquipment(f.ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EquipmentStateRented, got.State)
}

func TestRenewContract_Closed(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-12")
	c := f.bind(t, eq.ID, "C12", 0)
	f.apply(t, eq.ID, domain.ActionRecordEntry)

	_, err := f.contracts.RenewContract(f.ctx, c.ID, terms("", 0), "ana", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTerminateContract(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-13")
	c := f.bind(t, eq.ID, "C13", 0)

	t.Run("ReasonRequired", func(t *testing.T) {
		_, _, err := f.contracts.TerminateContract(f.ctx, c.ID, " ", true, "ana", "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Cancel", func(t *testing.T) {
		closed, res, err := f.contracts.TerminateContract(f.ctx, c.ID, "client default", true, "ana", "")
		require.NoError(t, err)
		assert.Equal(t, domain.ContractStatusCancelled, closed.Status)
		assert.Equal(t, "client default", closed.TerminationReason)
		assert.Equal(t, domain.EquipmentStateInInspection, res.Equipment.State)
		assert.Equal(t, "cancelled", res.Movement.Context[domain.ContextTerminationStatus])
		assert.Equal(t, "client default", res.Movement.Context[domain.ContextReason])
	})

	t.Run("AlreadyClosed", func(t *testing.T) {
		_, _, err := f.contracts.TerminateContract(f.ctx, c.ID, "again", false, "ana", "")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestRecordHours(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-14")
	c := f.bind(t, eq.ID, "C14", 20)

	updated, err := f.contracts.RecordHours(f.ctx, c.ID, 120)
	require.NoError(t, err)
	assert.Equal(t, 120.0, updated.AccumulatedHours)

	_, err = f.contracts.RecordHours(f.ctx, c.ID, 100)
	assert.ErrorIs(t, err, domain.ErrValidation)

	status, err := f.maintenance.GetMaintenanceStatus(f.ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, 120.0, status.CurrentHours)
}

func TestScheduleCollection_RequiresDate(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-15")
	c := f.bind(t, eq.ID, "C15", 0)

	_, err := f.contracts.ScheduleCollection(f.ctx, c.ID, time.Time{}, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
