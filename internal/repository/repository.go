package repository

import (
	"context"
	"time"

	"fleetrent-backend/internal/domain"
)

type EquipmentRepository interface {
	Create(ctx context.Context, e *domain.Equipment) error
	GetByID(ctx context.Context, id int64) (*domain.Equipment, error)
	// GetForUpdate loads the row and holds it locked until the surrounding
	// transaction ends. Outside a transaction it behaves like GetByID.
	GetForUpdate(ctx context.Context, id int64) (*domain.Equipment, error)
	List(ctx context.Context, filter domain.EquipmentFilter, page, pageSize int32) ([]domain.Equipment, int32, error)
	// UpdateState writes state and location only if the stored version still
	// equals e.Version, then bumps e.Version.
	UpdateState(ctx context.Context, e *domain.Equipment) error
}

type ContractRepository interface {
	Create(ctx context.Context, c *domain.Contract) error
	GetByID(ctx context.Context, id int64) (*domain.Contract, error)
	GetActiveByEquipment(ctx context.Context, equipmentID int64) (*domain.Contract, error)
	GetLatestByEquipment(ctx context.Context, equipmentID int64) (*domain.Contract, error)
	Update(ctx context.Context, c *domain.Contract) error
	// ListExpired returns active contracts whose end date is before asOf.
	ListExpired(ctx context.Context, asOf time.Time) ([]domain.Contract, error)
}

type RenewalRepository interface {
	Create(ctx context.Context, r *domain.Renewal) error
	ListByContract(ctx context.Context, contractID int64) ([]domain.Renewal, error)
}

type CollectionRepository interface {
	Create(ctx context.Context, t *domain.CollectionTask) error
	ListByContract(ctx context.Context, contractID int64) ([]domain.CollectionTask, error)
	// TransitionPending moves every pending task of the contract to status and
	// returns how many changed.
	TransitionPending(ctx context.Context, contractID int64, status domain.CollectionStatus) (int64, error)
}

// MovementRepository is append-only. There is deliberately no update or delete.
type MovementRepository interface {
	Append(ctx context.Context, m *domain.Movement) (int64, error)
	// ListByEquipment returns up to limit entries ordered by (occurred_at, id),
	// strictly after the cursor when one is given.
	ListByEquipment(ctx context.Context, equipmentID int64, after *domain.LedgerCursor, limit int32) ([]domain.Movement, error)
	LatestBefore(ctx context.Context, equipmentID int64, ts time.Time) (*domain.Movement, error)
	GetByRequestID(ctx context.Context, requestID string) (*domain.Movement, error)
}

type MaintenanceRepository interface {
	Create(ctx context.Context, r *domain.MaintenanceRecord) error
	ListByEquipment(ctx context.Context, equipmentID int64) ([]domain.MaintenanceRecord, error)
	Latest(ctx context.Context, equipmentID int64) (*domain.MaintenanceRecord, error)
}

type NotificationRepository interface {
	// Create returns false when a notification with the same dedupe key exists.
	Create(ctx context.Context, n *domain.Notification) (bool, error)
	List(ctx context.Context, limit, offset int32) ([]domain.Notification, int32, error)
}

// Repositories groups every repository bound to one connection or transaction.
type Repositories struct {
	Equipment     EquipmentRepository
	Contracts     ContractRepository
	Renewals      RenewalRepository
	Collections   CollectionRepository
	Movements     MovementRepository
	Maintenance   MaintenanceRepository
	Notifications NotificationRepository
}

type TxFunc func(ctx context.Context, repos *Repositories) error

// Store is the unit of work. Repos serves reads and single-statement writes;
// WithinTx commits everything fn did or nothing.
type Store interface {
	Repos() *Repositories
	WithinTx(ctx context.Context, fn TxFunc) error
}
