// Package memory is an in-process Store. Write transactions are serialised by
// one mutex and applied to a copy that replaces the live data on commit.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/repository"
)

type data struct {
	seq           int64
	equipment     map[int64]domain.Equipment
	contracts     map[int64]domain.Contract
	renewals      []domain.Renewal
	collections   map[int64]domain.CollectionTask
	movements     []domain.Movement
	maintenance   []domain.MaintenanceRecord
	notifications []domain.Notification
}

func newData() *data {
	return &data{
		equipment:   make(map[int64]domain.Equipment),
		contracts:   make(map[int64]domain.Contract),
		collections: make(map[int64]domain.CollectionTask),
	}
}

func (d *data) clone() *data {
	return &data{
		seq:           d.seq,
		equipment:     maps.Clone(d.equipment),
		contracts:     maps.Clone(d.contracts),
		renewals:      slices.Clone(d.renewals),
		collections:   maps.Clone(d.collections),
		movements:     slices.Clone(d.movements),
		maintenance:   slices.Clone(d.maintenance),
		notifications: slices.Clone(d.notifications),
	}
}

func (d *data) nextID() int64 {
	d.seq++
	return d.seq
}

type Store struct {
	mu    sync.RWMutex
	data  *data
	now   func() time.Time
	repos *repository.Repositories
}

type Option func(*Store)

// WithClock overrides the time source used for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{data: newData(), now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(s)
	}
	s.repos = s.bind(&view{store: s})
	return s
}

func (s *Store) Repos() *repository.Repositories {
	return s.repos
}

// WithinTx must not be nested; the store mutex is not reentrant.
func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return &domain.StorageError{Op: "begin", Err: err}
	}
	work := s.data.clone()
	if err := fn(ctx, s.bind(&view{store: s, tx: work})); err != nil {
		logger.Debug("Memory transaction rolled back", "error", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return &domain.StorageError{Op: "commit", Err: err}
	}
	s.data = work
	return nil
}

func (s *Store) bind(v *view) *repository.Repositories {
	return &repository.Repositories{
		Equipment:     &equipmentRepository{v},
		Contracts:     &contractRepository{v},
		Renewals:      &renewalRepository{v},
		Collections:   &collectionRepository{v},
		Movements:     &movementRepository{v},
		Maintenance:   &maintenanceRepository{v},
		Notifications: &notificationRepository{v},
	}
}

// view routes repository calls either to a transaction's working copy or to
// the live data under the store lock.
type view struct {
	store *Store
	tx    *data
}

func (v *view) read(fn func(d *data) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	return fn(v.store.data)
}

func (v *view) write(fn func(d *data) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

func (v *view) now() time.Time {
	return v.store.now()
}
