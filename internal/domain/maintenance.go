package domain

import (
	"fmt"
	"time"
)

type MaintenanceType string

const (
	MaintenanceTypePreventive MaintenanceType = "preventive"
	MaintenanceTypeCorrective MaintenanceType = "corrective"
	MaintenanceTypeInspection MaintenanceType = "inspection"
)

func ParseMaintenanceType(s string) (MaintenanceType, error) {
	switch MaintenanceType(s) {
	case MaintenanceTypePreventive, MaintenanceTypeCorrective, MaintenanceTypeInspection:
		return MaintenanceType(s), nil
	}
	return "", &ValidationError{Field: "type", Message: fmt.Sprintf("unknown maintenance type %q", s)}
}

type MaintenanceRecord struct {
	ID             int64           `json:"id"`
	EquipmentID    int64           `json:"equipment_id"`
	Type           MaintenanceType `json:"type"`
	ServiceDate    time.Time       `json:"service_date"`
	HoursAtService float64         `json:"hours_at_service"`
	NextDueHours   float64         `json:"next_due_hours"`
	Notes          string          `json:"notes"`
	PerformedBy    string          `json:"performed_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

// MaintenanceInput describes a service event recorded when equipment leaves the shop.
// A nil HoursAtService is resolved from the ledger.
type MaintenanceInput struct {
	Type           MaintenanceType `json:"type"`
	HoursAtService *float64        `json:"hours_at_service,omitempty"`
	NextDueHours   float64         `json:"next_due_hours"`
	Notes          string          `json:"notes"`
}

// MaintenanceStatus is derived; nothing stores it.
type MaintenanceStatus struct {
	EquipmentID       int64   `json:"equipment_id"`
	CurrentHours      float64 `json:"current_hours"`
	LastServiceHours  float64 `json:"last_service_hours"`
	HoursSinceService float64 `json:"hours_since_service"`
	DueAt             float64 `json:"due_at"`
	IsOverdue         bool    `json:"is_overdue"`
}
