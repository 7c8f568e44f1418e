package service

import (
	"context"
	"iter"
	"time"

	"fleetrent-backend/internal/domain"
)

// TransitionCommand asks for one lifecycle action on one unit of equipment.
type TransitionCommand struct {
	EquipmentID int64
	Action      domain.Action
	RequestID   string // optional; a UUID is generated when empty
	Actor       string
	Destination string // start_transfer
	Reason      string
	Notes       string
	Maintenance *domain.MaintenanceInput // complete_maintenance
}

type TransitionResult struct {
	Equipment *domain.Equipment `json:"equipment"`
	Movement  *domain.Movement  `json:"movement"`
	Allowed   []domain.Action   `json:"allowed_actions"`
	Replayed  bool              `json:"replayed"`
}

type EquipmentService interface {
	RegisterEquipment(ctx context.Context, e *domain.Equipment) error
	GetEquipment(ctx context.Context, id int64) (*domain.Equipment, error)
	ListEquipment(ctx context.Context, filter domain.EquipmentFilter, page, pageSize int32) ([]domain.Equipment, int32, error)
}

type LifecycleService interface {
	Transition(ctx context.Context, cmd TransitionCommand) (*TransitionResult, error)
}

type ContractService interface {
	BindContract(ctx context.Context, equipmentID int64, terms domain.ContractTerms, actor, requestID string) (*domain.Contract, *TransitionResult, error)
	RenewContract(ctx context.Context, contractID int64, terms domain.ContractTerms, actor, requestID string) (*domain.Renewal, error)
	TerminateContract(ctx context.Context, contractID int64, reason string, cancel bool, actor, requestID string) (*domain.Contract, *TransitionResult, error)
	RecordHours(ctx context.Context, contractID int64, hours float64) (*domain.Contract, error)
	ScheduleCollection(ctx context.Context, contractID int64, when time.Time, notes string) (*domain.CollectionTask, error)
	ListCollections(ctx context.Context, contractID int64) ([]domain.CollectionTask, error)
	GetContract(ctx context.Context, id int64) (*domain.Contract, error)
	GetActiveContract(ctx context.Context, equipmentID int64) (*domain.Contract, error)
	ListRenewals(ctx context.Context, contractID int64) ([]domain.Renewal, error)
}

type LedgerService interface {
	// History yields the full ledger of one equipment in order. It fetches
	// pages lazily and every range starts again from the first entry.
	History(ctx context.Context, equipmentID int64) iter.Seq2[domain.Movement, error]
	ListHistory(ctx context.Context, equipmentID int64, after *domain.LedgerCursor, limit int32) ([]domain.Movement, *domain.LedgerCursor, error)
	StateAt(ctx context.Context, equipmentID int64, at time.Time) (domain.EquipmentState, error)
	Verify(ctx context.Context, equipmentID int64) (domain.EquipmentState, error)
}

type MaintenanceService interface {
	GetMaintenanceStatus(ctx context.Context, equipmentID int64) (*domain.MaintenanceStatus, error)
	ListRecords(ctx context.Context, equipmentID int64) ([]domain.MaintenanceRecord, error)
	// ScanOverdue returns the status of every non-retired unit that is due.
	ScanOverdue(ctx context.Context) ([]domain.MaintenanceStatus, error)
}

// Alert is what the scheduler tells the outside world.
type Alert struct {
	Kind        domain.NotificationKind
	EquipmentID int64
	AssetNumber string
	ContractID  *int64
	Title       string
	Message     string
	Attributes  map[string]string
}

type AlertNotifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Settings are the tunables shared by the services.
type Settings struct {
	Now                      func() time.Time
	NewRequestID             func() string
	MaintenanceIntervalHours float64
	HistoryPageSize          int32
}
