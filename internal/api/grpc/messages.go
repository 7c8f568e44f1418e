package grpc

import (
	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/service"
)

// Wire messages of fleet.v1.LifecycleService, encoded with the json codec.

type TransitionRequest struct {
	EquipmentID int64                    `json:"equipment_id"`
	Action      string                   `json:"action"`
	RequestID   string                   `json:"request_id"`
	Destination string                   `json:"destination,omitempty"`
	Reason      string                   `json:"reason,omitempty"`
	Notes       string                   `json:"notes,omitempty"`
	Maintenance *domain.MaintenanceInput `json:"maintenance,omitempty"`
}

type TransitionResponse struct {
	Equipment      *domain.Equipment `json:"equipment"`
	Movement       *domain.Movement  `json:"movement"`
	AllowedActions []domain.Action   `json:"allowed_actions"`
	Replayed       bool              `json:"replayed"`
}

type BindContractRequest struct {
	EquipmentID int64                `json:"equipment_id"`
	RequestID   string               `json:"request_id"`
	Terms       domain.ContractTerms `json:"terms"`
}

type ContractResponse struct {
	Contract   *domain.Contract    `json:"contract"`
	Transition *TransitionResponse `json:"transition,omitempty"`
}

type RenewContractRequest struct {
	ContractID int64                `json:"contract_id"`
	RequestID  string               `json:"request_id"`
	Terms      domain.ContractTerms `json:"terms"`
}

type RenewContractResponse struct {
	Renewal *domain.Renewal `json:"renewal"`
}

type TerminateContractRequest struct {
	ContractID int64  `json:"contract_id"`
	RequestID  string `json:"request_id"`
	Reason     string `json:"reason"`
	Cancel     bool   `json:"cancel"`
}

type GetHistoryRequest struct {
	EquipmentID int64  `json:"equipment_id"`
	Cursor      string `json:"cursor,omitempty"`
	Limit       int32  `json:"limit,omitempty"`
}

type GetHistoryResponse struct {
	Movements  []domain.Movement `json:"movements"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type EquipmentRequest struct {
	EquipmentID int64 `json:"equipment_id"`
}

type RegisterEquipmentRequest struct {
	AssetNumber  string `json:"asset_number"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
	Class        string `json:"class"`
	Category     string `json:"category"`
	Location     string `json:"location"`
}

type HealthCheckRequest struct{}

type HealthCheckResponse struct {
	Status string `json:"status"`
}

func mapTransitionResult(res *service.TransitionResult) *TransitionResponse {
	if res == nil {
		return nil
	}
	return &TransitionResponse{
		Equipment:      res.Equipment,
		Movement:       res.Movement,
		AllowedActions: res.Allowed,
		Replayed:       res.Replayed,
	}
}

func (r *RegisterEquipmentRequest) toDomain() *domain.Equipment {
	return &domain.Equipment{
		AssetNumber:  r.AssetNumber,
		Brand:        r.Brand,
		Model:        r.Model,
		SerialNumber: r.SerialNumber,
		Class:        r.Class,
		Category:     r.Category,
		Location:     r.Location,
	}
}
