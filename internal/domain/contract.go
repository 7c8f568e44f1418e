package domain

import (
	"strings"
	"time"
)

type ContractStatus string

const (
	ContractStatusActive    ContractStatus = "active"
	ContractStatusFinished  ContractStatus = "finished"
	ContractStatusCancelled ContractStatus = "cancelled"
)

type Contract struct {
	ID                int64          `json:"id"`
	Folio             string         `json:"folio"`
	EquipmentID       int64          `json:"equipment_id"`
	Client            string         `json:"client"`
	StartDate         time.Time      `json:"start_date"`
	EndDate           time.Time      `json:"end_date"`
	AmountCents       int64          `json:"amount_cents"`
	Days              int32          `json:"days"`
	AccumulatedHours  float64        `json:"accumulated_hours"`
	Status            ContractStatus `json:"status"`
	TerminationReason string         `json:"termination_reason,omitempty"`
	ClosedAt          *time.Time     `json:"closed_at,omitempty"`
	CreatedBy         string         `json:"created_by"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (c *Contract) IsActive() bool {
	return c.Status == ContractStatusActive
}

// ContractTerms is the caller-supplied part of a contract, used for binding and renewal.
type ContractTerms struct {
	Folio            string    `json:"folio"`
	Client           string    `json:"client"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	AmountCents      int64     `json:"amount_cents"`
	Days             int32     `json:"days"`
	AccumulatedHours float64   `json:"accumulated_hours"`
}

// Normalize fills EndDate from Days (or Days from EndDate) and truncates dates to
// the day. It returns a ValidationError when the terms are inconsistent.
func (t *ContractTerms) Normalize() error {
	if t.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Message: "start date is required"}
	}
	t.StartDate = truncateDay(t.StartDate)
	if t.Days < 0 {
		return &ValidationError{Field: "days", Message: "days must not be negative"}
	}
	if t.EndDate.IsZero() {
		if t.Days == 0 {
			return &ValidationError{Field: "end_date", Message: "end date or days is required"}
		}
		t.EndDate = t.StartDate.AddDate(0, 0, int(t.Days))
	} else {
		t.EndDate = truncateDay(t.EndDate)
		if t.Days == 0 {
			t.Days = int32(t.EndDate.Sub(t.StartDate).Hours() / 24)
		}
	}
	if t.EndDate.Before(t.StartDate) {
		return &ValidationError{Field: "end_date", Message: "end date must not be before start date"}
	}
	if t.AmountCents < 0 {
		return &ValidationError{Field: "amount_cents", Message: "amount must not be negative"}
	}
	if t.AccumulatedHours < 0 {
		return &ValidationError{Field: "accumulated_hours", Message: "hours must not be negative"}
	}
	return nil
}

// ValidateForBind additionally requires the identifying fields of a new contract.
func (t *ContractTerms) ValidateForBind() error {
	if strings.TrimSpace(t.Folio) == "" {
		return &ValidationError{Field: "folio", Message: "folio is required"}
	}
	if strings.TrimSpace(t.Client) == "" {
		return &ValidationError{Field: "client", Message: "client is required"}
	}
	return t.Normalize()
}

// Renewal preserves the contract term that was replaced.
type Renewal struct {
	ID              int64     `json:"id"`
	ContractID      int64     `json:"contract_id"`
	PrevStartDate   time.Time `json:"prev_start_date"`
	PrevEndDate     time.Time `json:"prev_end_date"`
	NewStartDate    time.Time `json:"new_start_date"`
	NewEndDate      time.Time `json:"new_end_date"`
	PrevHours       float64   `json:"prev_hours"`
	NewHours        float64   `json:"new_hours"`
	PrevAmountCents int64     `json:"prev_amount_cents"`
	NewAmountCents  int64     `json:"new_amount_cents"`
	Actor           string    `json:"actor"`
	CreatedAt       time.Time `json:"created_at"`
}

type CollectionStatus string

const (
	CollectionStatusPending   CollectionStatus = "pending"
	CollectionStatusCompleted CollectionStatus = "completed"
	CollectionStatusCancelled CollectionStatus = "cancelled"
)

// CollectionTask is a scheduled pick-up of rented equipment at the client site.
type CollectionTask struct {
	ID           int64            `json:"id"`
	ContractID   int64            `json:"contract_id"`
	EquipmentID  int64            `json:"equipment_id"`
	ScheduledFor time.Time        `json:"scheduled_for"`
	Status       CollectionStatus `json:"status"`
	Notes        string           `json:"notes"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
