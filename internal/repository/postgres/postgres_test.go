package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var equipmentCols = []string{"id", "asset_number", "brand", "model", "serial_number", "class", "category", "state", "location", "version", "retired_at", "created_at", "updated_at"}

var movementCols = []string{"id", "equipment_id", "kind", "action", "prior_state", "new_state", "contract_id", "actor", "request_id", "hours_meter", "context", "occurred_at"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestEquipmentRepository_Create(t *testing.T) {
	store, mock := newMockStore(t)
	repo := store.Repos().Equipment
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		e := &domain.Equipment{AssetNumber: "EQ-100", Brand: "Genie", Model: "GS-1930", Location: "MTY"}
		mock.ExpectQuery("INSERT INTO equipment").
			WithArgs("EQ-100", "Genie", "GS-1930", "", "", "", "available", "MTY", int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

		err := repo.Create(ctx, e)
		require.NoError(t, err)
		assert.Equal(t, int64(10), e.ID)
		assert.Equal(t, domain.EquipmentStateAvailable, e.State)
	})

	t.Run("DuplicateAssetNumber", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO equipment").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "equipment_asset_number_key"})

		err := repo.Create(ctx, &domain.Equipment{AssetNumber: "EQ-100", Location: "MTY"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipmentRepository_GetByID(t *testing.T) {
	store, mock := newMockStore(t)
	repo := store.Repos().Equipment
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("SELECT (.+) FROM equipment WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(equipmentCols).
				AddRow(1, "EQ-1", "JLG", "600S", "SN1", "boom", "lift", "rented", "GDL", 4, nil, now, now))

		e, err := repo.GetByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.EquipmentStateRented, e.State)
		assert.Equal(t, int64(4), e.Version)
		assert.Nil(t, e.RetiredAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM equipment WHERE id = \\$1").
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows(equipmentCols))

		_, err := repo.GetByID(ctx, 2)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestEquipmentRepository_UpdateState(t *testing.T) {
	store, mock := newMockStore(t)
	repo := store.Repos().Equipment
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		e := &domain.Equipment{ID: 1, State: domain.EquipmentStateRented, Location: "MTY", Version: 3}
		mock.ExpectExec("UPDATE equipment SET state").
			WithArgs("rented", "MTY", nil, sqlmock.AnyArg(), int64(1), int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateState(ctx, e))
		assert.Equal(t, int64(4), e.Version)
	})

	t.Run("VersionConflict", func(t *testing.T) {
		e := &domain.Equipment{ID: 1, State: domain.EquipmentStateRented, Location: "MTY", Version: 3}
		mock.ExpectExec("UPDATE equipment SET state").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateState(ctx, e)
		assert.ErrorIs(t, err, domain.ErrVersionConflict)
		assert.ErrorIs(t, err, domain.ErrStorage)
		assert.Equal(t, int64(3), e.Version)
	})
}

func TestContractRepository_Create(t *testing.T) {
	store, mock := newMockStore(t)
	repo := store.Repos().Contracts
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Success", func(t *testing.T) {
		c := &domain.Contract{Folio: "C1", EquipmentID: 5, Client: "ACME", StartDate: start, EndDate: start.AddDate(0, 0, 30),
			AmountCents: 100000, Days: 30, Status: domain.ContractStatusActive, CreatedBy: "ops"}
		mock.ExpectQuery("INSERT INTO contracts").
			WithArgs("C1", int64(5), "ACME", start, start.AddDate(0, 0, 30), int64(100000), int32(30), float64(0),
				"active", "", "ops", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		require.NoError(t, repo.Create(ctx, c))
		assert.Equal(t, int64(7), c.ID)
	})

	t.Run("SecondActiveContract", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO contracts").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "contracts_one_active_per_equipment"})

		err := repo.Create(ctx, &domain.Contract{Folio: "C2", EquipmentID: 5, StartDate: start, EndDate: start, Status: domain.ContractStatusActive})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrAlreadyBound))
		var abe *domain.AlreadyBoundError
		require.True(t, errors.As(err, &abe))
		assert.Equal(t, int64(5), abe.EquipmentID)
	})
}

func TestMovementRepository(t *testing.T) {
	store, mock := newMockStore(t)
	repo := store.Repos().Movements
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Append", func(t *testing.T) {
		cid := int64(7)
		m := &domain.Movement{EquipmentID: 5, Kind: domain.MovementKindContractBind, Action: domain.ActionBindContract,
			PriorState: domain.EquipmentStateAvailable, NewState: domain.EquipmentStateRented, ContractID: &cid,
			Actor: "ops", RequestID: "req-1", Context: map[string]string{"folio": "C1"}, OccurredAt: at}
		mock.ExpectQuery("INSERT INTO movements").
			WithArgs(int64(5), "contract_bind", "bind_contract", "available", "rented", int64(7), "ops", "req-1", float64(0), `{"folio":"C1"}`, at).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(99))

		id, err := repo.Append(ctx, m)
		require.NoError(t, err)
		assert.Equal(t, int64(99), id)
	})

	t.Run("AppendFailure", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO movements").WillReturnError(errors.New("connection reset"))

		_, err := repo.Append(ctx, &domain.Movement{EquipmentID: 5, RequestID: "req-2"})
		assert.ErrorIs(t, err, domain.ErrStorage)
	})

	t.Run("ListAfterCursor", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM movements WHERE equipment_id = \\$1 AND \\(occurred_at, id\\) > \\(\\$2, \\$3\\)").
			WithArgs(int64(5), at, int64(99), int32(2)).
			WillReturnRows(sqlmock.NewRows(movementCols).
				AddRow(100, 5, "entry", "record_entry", "rented", "in_inspection", 7, "ops", "req-3", 12.5, []byte(`{}`), at.Add(time.Hour)))

		items, err := repo.ListByEquipment(ctx, 5, &domain.LedgerCursor{OccurredAt: at, ID: 99}, 2)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, domain.EquipmentStateInInspection, items[0].NewState)
		require.NotNil(t, items[0].ContractID)
		assert.Equal(t, int64(7), *items[0].ContractID)
	})

	t.Run("LatestBeforeEmpty", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM movements WHERE equipment_id = \\$1 AND occurred_at <= \\$2").
			WithArgs(int64(5), at).
			WillReturnRows(sqlmock.NewRows(movementCols))

		_, err := repo.LatestBefore(ctx, 5, at)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_CreateDeduplicates(t *testing.T) {
	store, mock := newMockStore(t)
	repo := store.Repos().Notifications
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO notifications (.+) ON CONFLICT \\(dedupe_key\\) DO NOTHING").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO notifications").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	n := &domain.Notification{Kind: domain.NotificationKindMaintenanceDue, EquipmentID: 5, DedupeKey: "maintenance_due:5:300"}
	created, err := repo.Create(ctx, n)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, &domain.Notification{Kind: domain.NotificationKindMaintenanceDue, EquipmentID: 5, DedupeKey: "maintenance_due:5:300"})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestStore_WithinTx(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("Commit", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM equipment WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(equipmentCols).
				AddRow(1, "EQ-1", "", "", "", "", "", "available", "MTY", 1, nil, now, now))
		mock.ExpectCommit()

		err := store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
			_, err := repos.Equipment.GetForUpdate(ctx, 1)
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO movements").WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
			_, err := repos.Movements.Append(ctx, &domain.Movement{EquipmentID: 1, RequestID: "r"})
			return err
		})
		assert.ErrorIs(t, err, domain.ErrStorage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SerializationFailure", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001"})

		err := store.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error { return nil })
		assert.ErrorIs(t, err, domain.ErrVersionConflict)
	})
}
