package domain

import (
	"fmt"
	"strings"
	"time"
)

type EquipmentState string

const (
	EquipmentStateAvailable    EquipmentState = "available"
	EquipmentStateRented       EquipmentState = "rented"
	EquipmentStateInTransit    EquipmentState = "in_transit"
	EquipmentStateInInspection EquipmentState = "in_inspection"
	EquipmentStateInShop       EquipmentState = "in_shop"
	EquipmentStateRetired      EquipmentState = "retired"
)

// EquipmentStates lists every lifecycle state in declaration order.
var EquipmentStates = []EquipmentState{
	EquipmentStateAvailable,
	EquipmentStateRented,
	EquipmentStateInTransit,
	EquipmentStateInInspection,
	EquipmentStateInShop,
	EquipmentStateRetired,
}

// ParseEquipmentState accepts only the exact state names. Free-text values such as
// "Disponible" or "RENTADO" are rejected instead of being mapped to a default.
func ParseEquipmentState(s string) (EquipmentState, error) {
	for _, st := range EquipmentStates {
		if string(st) == s {
			return st, nil
		}
	}
	return "", &ValidationError{Field: "state", Message: fmt.Sprintf("unknown equipment state %q", s)}
}

func (s EquipmentState) Valid() bool {
	_, err := ParseEquipmentState(string(s))
	return err == nil
}

func (s EquipmentState) Terminal() bool {
	return s == EquipmentStateRetired
}

type Equipment struct {
	ID           int64          `json:"id"`
	AssetNumber  string         `json:"asset_number"`
	Brand        string         `json:"brand"`
	Model        string         `json:"model"`
	SerialNumber string         `json:"serial_number"`
	Class        string         `json:"class"`
	Category     string         `json:"category"`
	State        EquipmentState `json:"state"`
	Location     string         `json:"location"`
	Version      int64          `json:"version"`
	RetiredAt    *time.Time     `json:"retired_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Validate checks the intake fields. State is not accepted from callers.
func (e *Equipment) Validate() error {
	if strings.TrimSpace(e.AssetNumber) == "" {
		return &ValidationError{Field: "asset_number", Message: "asset number is required"}
	}
	if strings.TrimSpace(e.Location) == "" {
		return &ValidationError{Field: "location", Message: "location is required"}
	}
	return nil
}

type EquipmentFilter struct {
	State    EquipmentState
	Location string
	Category string
}
