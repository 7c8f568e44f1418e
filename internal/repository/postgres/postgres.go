package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fleetrent-backend/internal/logger"
	"fleetrent-backend/internal/repository"

	_ "github.com/lib/pq"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db    *sql.DB
	repos *repository.Repositories
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, repos: newRepositories(db, false)}
}

func newRepositories(db dbtx, inTx bool) *repository.Repositories {
	return &repository.Repositories{
		Equipment:     &equipmentRepository{db: db, inTx: inTx},
		Contracts:     &contractRepository{db: db},
		Renewals:      &renewalRepository{db: db},
		Collections:   &collectionRepository{db: db},
		Movements:     &movementRepository{db: db},
		Maintenance:   &maintenanceRepository{db: db},
		Notifications: &notificationRepository{db: db},
	}
}

func (s *Store) Repos() *repository.Repositories {
	return s.repos
}

// WithinTx runs fn in a READ COMMITTED transaction. Writers serialise on the
// equipment row lock taken by GetForUpdate.
func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return mapError("begin", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				logger.Error("Rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(ctx, newRepositories(tx, true)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return mapError("commit", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}
