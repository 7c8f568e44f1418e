package domain

import "time"

type NotificationKind string

const (
	NotificationKindMaintenanceDue  NotificationKind = "maintenance_due"
	NotificationKindContractExpired NotificationKind = "contract_expired"
)

// Notification is a persisted alert. DedupeKey is unique, so a scan that finds
// the same due threshold twice produces one row.
type Notification struct {
	ID          int64             `json:"id"`
	Kind        NotificationKind  `json:"kind"`
	EquipmentID int64             `json:"equipment_id"`
	ContractID  *int64            `json:"contract_id,omitempty"`
	DedupeKey   string            `json:"dedupe_key"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	Attributes  map[string]string `json:"attributes"`
	CreatedAt   time.Time         `json:"created_at"`
}
