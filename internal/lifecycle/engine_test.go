package lifecycle

import (
	"errors"
	"iter"
	"testing"

	"fleetrent-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(ms ...domain.Movement) iter.Seq2[domain.Movement, error] {
	return func(yield func(domain.Movement, error) bool) {
		for _, m := range ms {
			if !yield(m, nil) {
				return
			}
		}
	}
}

func TestApply(t *testing.T) {
	bound := Guard{EquipmentID: 1, ActiveContractID: 7}

	t.Run("BindFromAvailable", func(t *testing.T) {
		out, err := Apply(domain.EquipmentStateAvailable, domain.ActionBindContract, Guard{EquipmentID: 1})
		require.NoError(t, err)
		assert.Equal(t, domain.EquipmentStateRented, out.To)
		assert.Equal(t, domain.MovementKindContractBind, out.Kind)
	})

	t.Run("BindWithActiveContract", func(t *testing.T) {
		_, err := Apply(domain.EquipmentStateAvailable, domain.ActionBindContract, bound)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrAlreadyBound))
		var abe *domain.AlreadyBoundError
		require.True(t, errors.As(err, &abe))
		assert.Equal(t, int64(7), abe.ActiveContractID)
	})

	t.Run("RetiredToRented", func(t *testing.T) {
		_, err := Apply(domain.EquipmentStateRetired, domain.ActionBindContract, Guard{})
		var ite *domain.InvalidTransitionError
		require.True(t, errors.As(err, &ite))
		assert.Equal(t, domain.EquipmentStateRetired, ite.From)
		assert.Equal(t, domain.EquipmentStateRented, ite.To)
		assert.Equal(t, domain.ActionBindContract, ite.Action)
	})

	t.Run("BindWhileRented", func(t *testing.T) {
		_, err := Apply(domain.EquipmentStateRented, domain.ActionBindContract, bound)
		assert.ErrorIs(t, err, domain.ErrAlreadyBound)
	})

	t.Run("InTransitCannotBind", func(t *testing.T) {
		_, err := Apply(domain.EquipmentStateInTransit, domain.ActionBindContract, Guard{})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("EntryRequiresContract", func(t *testing.T) {
		_, err := Apply(domain.EquipmentStateRented, domain.ActionRecordEntry, Guard{})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		out, err := Apply(domain.EquipmentStateRented, domain.ActionRecordEntry, bound)
		require.NoError(t, err)
		assert.Equal(t, domain.EquipmentStateInInspection, out.To)
	})

	t.Run("RenewIsSelfLoop", func(t *testing.T) {
		out, err := Apply(domain.EquipmentStateRented, domain.ActionRenewContract, bound)
		require.NoError(t, err)
		assert.True(t, out.SelfLoop())
		assert.Equal(t, domain.MovementKindRenewal, out.Kind)
	})

	t.Run("TransferNeedsDestination", func(t *testing.T) {
		_, err := Apply(domain.EquipmentStateAvailable, domain.ActionStartTransfer, Guard{Location: "MTY"})
		assert.ErrorIs(t, err, domain.ErrValidation)

		_, err = Apply(domain.EquipmentStateAvailable, domain.ActionStartTransfer, Guard{Location: "MTY", Destination: "mty"})
		assert.ErrorIs(t, err, domain.ErrValidation)

		out, err := Apply(domain.EquipmentStateAvailable, domain.ActionStartTransfer, Guard{Location: "MTY", Destination: "GDL"})
		require.NoError(t, err)
		assert.Equal(t, domain.EquipmentStateInTransit, out.To)
	})

	t.Run("UnknownState", func(t *testing.T) {
		_, err := Apply(domain.EquipmentState("Disponible"), domain.ActionRetire, Guard{})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("UnknownAction", func(t *testing.T) {
		_, err := Apply(domain.EquipmentStateAvailable, domain.Action("repaint"), Guard{})
		var ite *domain.InvalidTransitionError
		require.True(t, errors.As(err, &ite))
		assert.Equal(t, "unknown action", ite.Reason)
	})
}

func TestAllowed(t *testing.T) {
	assert.ElementsMatch(t,
		[]domain.Action{domain.ActionBindContract, domain.ActionStartTransfer, domain.ActionRetire},
		Allowed(domain.EquipmentStateAvailable))
	assert.Empty(t, Allowed(domain.EquipmentStateRetired))

	// every state has exactly one target per action
	for _, tr := range Transitions() {
		to, ok := Target(tr.Action)
		require.True(t, ok)
		assert.Equal(t, to, tr.To, "action %s", tr.Action)
		assert.True(t, tr.From.Valid())
		assert.True(t, tr.To.Valid())
	}
}

func TestReplay(t *testing.T) {
	cycle := []domain.Movement{
		{ID: 1, EquipmentID: 3, Action: domain.ActionBindContract, PriorState: domain.EquipmentStateAvailable, NewState: domain.EquipmentStateRented},
		{ID: 2, EquipmentID: 3, Action: domain.ActionRenewContract, PriorState: domain.EquipmentStateRented, NewState: domain.EquipmentStateRented},
		{ID: 3, EquipmentID: 3, Action: domain.ActionRecordEntry, PriorState: domain.EquipmentStateRented, NewState: domain.EquipmentStateInInspection},
		{ID: 4, EquipmentID: 3, Action: domain.ActionReleaseInspection, PriorState: domain.EquipmentStateInInspection, NewState: domain.EquipmentStateAvailable},
	}

	t.Run("Empty", func(t *testing.T) {
		st, err := Replay(domain.EquipmentStateAvailable, seq())
		require.NoError(t, err)
		assert.Equal(t, domain.EquipmentStateAvailable, st)
	})

	t.Run("FullCycle", func(t *testing.T) {
		st, err := Replay(domain.EquipmentStateAvailable, seq(cycle...))
		require.NoError(t, err)
		assert.Equal(t, domain.EquipmentStateAvailable, st)

		st, err = Replay(domain.EquipmentStateAvailable, seq(cycle[:3]...))
		require.NoError(t, err)
		assert.Equal(t, domain.EquipmentStateInInspection, st)
	})

	t.Run("BrokenChain", func(t *testing.T) {
		_, err := Replay(domain.EquipmentStateAvailable, seq(cycle[0], cycle[3]))
		var lde *domain.LedgerDivergenceError
		require.True(t, errors.As(err, &lde))
		assert.Equal(t, int64(4), lde.MovementID)
		assert.Equal(t, domain.EquipmentStateRented, lde.Expected)
	})

	t.Run("IllegalEdge", func(t *testing.T) {
		bad := domain.Movement{ID: 9, Action: domain.ActionRetire, PriorState: domain.EquipmentStateAvailable, NewState: domain.EquipmentStateRented}
		_, err := Replay(domain.EquipmentStateAvailable, seq(bad))
		assert.ErrorIs(t, err, domain.ErrLedgerDivergence)
	})

	t.Run("SourceError", func(t *testing.T) {
		boom := errors.New("boom")
		src := func(yield func(domain.Movement, error) bool) {
			yield(domain.Movement{}, boom)
		}
		_, err := Replay(domain.EquipmentStateAvailable, src)
		assert.ErrorIs(t, err, boom)
	})
}
