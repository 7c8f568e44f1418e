package jobs

import (
	"context"
	"testing"
	"time"

	"fleetrent-backend/internal/config"
	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/repository/memory"
	"fleetrent-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, alert service.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	runner    *JobRunner
	notifier  *MockNotifier
	equipment service.EquipmentService
	contracts service.ContractService
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	store := memory.NewStore()
	notifier := new(MockNotifier)
	settings := service.Settings{}
	contracts := service.NewContractService(store, settings)
	runner := NewJobRunner(store, &Services{
		Maintenance: service.NewMaintenanceService(store, settings),
		Contracts:   contracts,
	}, service.NewAlertDispatcher(store, notifier), &config.Config{})
	runner.now = func() time.Time { return now }

	return &fixture{
		ctx:       context.Background(),
		store:     store,
		runner:    runner,
		notifier:  notifier,
		equipment: service.NewEquipmentService(store),
		contracts: contracts,
	}
}

func (f *fixture) rent(t *testing.T, asset, folio string, hours float64) (*domain.Equipment, *domain.Contract) {
	t.Helper()
	e := &domain.Equipment{AssetNumber: asset, Brand: "JLG", Model: "450AJ", Location: "Yard A"}
	require.NoError(t, f.equipment.RegisterEquipment(f.ctx, e))
	c, _, err := f.contracts.BindContract(f.ctx, e.ID, domain.ContractTerms{
		Folio:            folio,
		Client:           "ACME",
		StartDate:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:             30,
		AmountCents:      100000,
		AccumulatedHours: hours,
	}, "ana", "")
	require.NoError(t, err)
	return e, c
}

func TestScanMaintenanceDue(t *testing.T) {
	f := newFixture(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	due, _ := f.rent(t, "EQ-1", "C1", 305)
	f.rent(t, "EQ-2", "C2", 12)

	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(a service.Alert) bool {
		return a.EquipmentID == due.ID && a.Kind == domain.NotificationKindMaintenanceDue
	})).Return(nil).Once()

	sent, err := f.runner.scanMaintenanceDue(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	// the same due point is not alerted twice
	sent, err = f.runner.scanMaintenanceDue(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	f.notifier.AssertExpectations(t)

	list, total, err := f.store.Repos().Notifications.List(f.ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	assert.Equal(t, "maintenance_due:1:300", list[0].DedupeKey)
}

func TestScheduleExpiredCollections(t *testing.T) {
	f := newFixture(t, time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC))
	e, c := f.rent(t, "EQ-3", "C3", 0)

	f.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(a service.Alert) bool {
		return a.Kind == domain.NotificationKindContractExpired && a.Attributes["folio"] == "C3"
	})).Return(nil).Once()

	n, err := f.runner.scheduleExpiredCollections(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tasks, err := f.contracts.ListCollections(f.ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.CollectionStatusPending, tasks[0].Status)

	n, err = f.runner.scheduleExpiredCollections(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	f.notifier.AssertExpectations(t)

	eq, err := f.equipment.GetEquipment(f.ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EquipmentStateRented, eq.State)
}

func TestRunWithRecovery(t *testing.T) {
	f := newFixture(t, time.Now())

	err := f.runner.runWithRecovery("Boom", func(ctx context.Context) error {
		panic("boom")
	})
	assert.ErrorContains(t, err, "panicked")

	err = f.runner.runWithRecovery("Fine", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	})
	assert.NoError(t, err)
}
