package service

import (
	"errors"
	"testing"

	"fleetrent-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterEquipment(t *testing.T) {
	f := newFixture(t)

	t.Run("Success", func(t *testing.T) {
		e := f.register(t, "EQ-100")
		assert.NotZero(t, e.ID)
		assert.Equal(t, domain.EquipmentStateAvailable, e.State)
		assert.Empty(t, f.kinds(t, e.ID))
	})

	t.Run("MissingLocation", func(t *testing.T) {
		err := f.equipment.RegisterEquipment(f.ctx, &domain.Equipment{AssetNumber: "EQ-101"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("ListRejectsUnknownState", func(t *testing.T) {
		_, _, err := f.equipment.ListEquipment(f.ctx, domain.EquipmentFilter{State: "Disponible"}, 1, 10)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestScenario_BindReturnRelease(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-1")

	c1 := f.bind(t, eq.ID, "C1", 0)
	assert.Equal(t, int64(100000), c1.AmountCents)
	assert.Equal(t, int32(30), c1.Days)

	_, _, err := f.contracts.BindContract(f.ctx, eq.ID, terms("C2", 0), "ana", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAlreadyBound))
	assert.Equal(t, "equipment 1 already has an active contract (2)", err.Error())

	active, err := f.contracts.GetActiveContract(f.ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, c1.ID, active.ID)

	res := f.apply(t, eq.ID, domain.ActionRecordEntry)
	assert.Equal(t, domain.EquipmentStateInInspection, res.Equipment.State)
	res = f.apply(t, eq.ID, domain.ActionReleaseInspection)
	assert.Equal(t, domain.EquipmentStateAvailable, res.Equipment.State)

	assert.Equal(t, []domain.MovementKind{
		domain.MovementKindContractBind,
		domain.MovementKindEntry,
		domain.MovementKindStatusChange,
	}, f.kinds(t, eq.ID))

	closed, err := f.contracts.GetContract(f.ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ContractStatusFinished, closed.Status)
	assert.NotNil(t, closed.ClosedAt)

	state, err := f.ledger.Verify(f.ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EquipmentStateAvailable, state)
}

func TestTransition_RetiredCannotBeRented(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-2")
	retired := f.apply(t, eq.ID, domain.ActionRetire)
	require.NotNil(t, retired.Equipment.RetiredAt)

	_, _, err := f.contracts.BindContract(f.ctx, eq.ID, terms("C9", 0), "ana", "")
	var ite *domain.InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, domain.EquipmentStateRetired, ite.From)
	assert.Equal(t, domain.EquipmentStateRented, ite.To)

	after, err := f.equipment.GetEquipment(f.ctx, eq.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EquipmentStateRetired, after.State)
	assert.Equal(t, retired.Equipment.Version, after.Version)
	assert.Len(t, f.kinds(t, eq.ID), 1)

	_, err = f.contracts.GetActiveContract(f.ctx, eq.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransition_EntryRequiresContract(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-3")

	_, err := f.lifecycle.Transition(f.ctx, TransitionCommand{EquipmentID: eq.ID, Action: domain.ActionRecordEntry})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Empty(t, f.kinds(t, eq.ID))
}

func TestTransition_BindGoesThroughContracts(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-4")

	_, err := f.lifecycle.Transition(f.ctx, TransitionCommand{EquipmentID: eq.ID, Action: domain.ActionBindContract})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTransition_UnknownEquipment(t *testing.T) {
	f := newFixture(t)
	_, err := f.lifecycle.Transition(f.ctx, TransitionCommand{EquipmentID: 404, Action: domain.ActionRetire})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransition_Transfer(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-5")

	t.Run("SameLocation", func(t *testing.T) {
		_, err := f.lifecycle.Transition(f.ctx, TransitionCommand{EquipmentID: eq.ID, Action: domain.ActionStartTransfer, Destination: "yard a"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("Success", func(t *testing.T) {
		res, err := f.lifecycle.Transition(f.ctx, TransitionCommand{EquipmentID: eq.ID, Action: domain.ActionStartTransfer, Destination: "Yard B"})
		require.NoError(t, err)
		assert.Equal(t, domain.EquipmentStateInTransit, res.Equipment.State)
		assert.Equal(t, "Yard A", res.Movement.Context[domain.ContextFromLocation])
		assert.Equal(t, "Yard B", res.Movement.Context[domain.ContextToLocation])
		assert.Equal(t, []domain.Action{domain.ActionCompleteTransfer}, res.Allowed)

		_, _, err = f.contracts.BindContract(f.ctx, eq.ID, terms("C5", 0), "ana", "")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		res = f.apply(t, eq.ID, domain.ActionCompleteTransfer)
		assert.Equal(t, domain.EquipmentStateAvailable, res.Equipment.State)
		assert.Equal(t, "Yard B", res.Equipment.Location)
		assert.Equal(t, domain.MovementKindTransfer, res.Movement.Kind)
	})
}

func TestTransition_Idempotency(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-6")
	cmd := TransitionCommand{EquipmentID: eq.ID, Action: domain.ActionStartTransfer, Destination: "Yard C", RequestID: "req-1"}

	first, err := f.lifecycle.Transition(f.ctx, cmd)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := f.lifecycle.Transition(f.ctx, cmd)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Movement.ID, second.Movement.ID)
	assert.Len(t, f.kinds(t, eq.ID), 1)

	_, err = f.lifecycle.Transition(f.ctx, TransitionCommand{EquipmentID: eq.ID, Action: domain.ActionCompleteTransfer, RequestID: "req-1"})
	assert.ErrorIs(t, err, domain.ErrIdempotencyMismatch)
}

func TestTransition_Maintenance(t *testing.T) {
	f := newFixture(t)
	eq := f.register(t, "EQ-7")
	f.bind(t, eq.ID, "C7", 305)
	f.apply(t, eq.ID, domain.ActionRecordEntry)

	status, err := f.maintenance.GetMaintenanceStatus(f.ctx, eq.ID)
	require.NoError(t, err)
	assert.True(t, status.IsOverdue)
	assert.Equal(t, 305.0, status.CurrentHours)

	f.apply(t, eq.ID, domain.ActionSendToShop)

	_, err = f.lifecycle.Transition(f.ctx, TransitionCommand{EquipmentID: eq.ID, Action: domain.ActionCompleteMaintenance})
	assert.ErrorIs(t, err, domain.ErrValidation)

	res, err := f.lifecycle.Transition(f.ctx, TransitionCommand{
		EquipmentID: eq.ID,
		Action:      domain.ActionCompleteMaintenance,
		Actor:       "taller",
		Maintenance: &domain.MaintenanceInput{Notes: "oil and filters"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EquipmentStateAvailable, res.Equipment.State)
	assert.Equal(t, 305.0, res.Movement.HoursMeter)
	assert.Equal(t, "preventive", res.Movement.Context[domain.ContextMaintenanceType])

	records, err := f.maintenance.ListRecords(f.ctx, eq.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 305.0, records[0].HoursAtService)
	assert.Equal(t, "taller", records[0].PerformedBy)

	status, err = f.maintenance.GetMaintenanceStatus(f.ctx, eq.ID)
	require.NoError(t, err)
	assert.False(t, status.IsOverdue)
	assert.Equal(t, 605.0, status.DueAt)
}
