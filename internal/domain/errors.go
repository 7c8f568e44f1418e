package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyBound        = errors.New("equipment already has an active contract")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrStorage             = errors.New("storage error")
	ErrValidation          = errors.New("validation failed")
	ErrVersionConflict     = errors.New("equipment was modified concurrently")
	ErrIdempotencyMismatch = errors.New("request id reused for a different command")
	ErrLedgerDivergence    = errors.New("ledger does not match registry")
)

// InvalidTransitionError carries the attempted (from, to) pair.
type InvalidTransitionError struct {
	From   EquipmentState
	To     EquipmentState
	Action Action
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition %s -> %s (action %s)", e.From, e.To, e.Action)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Expected() bool { return true }

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

type AlreadyBoundError struct {
	EquipmentID      int64
	ActiveContractID int64
}

func (e *AlreadyBoundError) Error() string {
	if e.ActiveContractID != 0 {
		return fmt.Sprintf("equipment %d already has an active contract (%d)", e.EquipmentID, e.ActiveContractID)
	}
	return fmt.Sprintf("equipment %d already has an active contract", e.EquipmentID)
}

func (e *AlreadyBoundError) Expected() bool { return true }

func (e *AlreadyBoundError) Is(target error) bool {
	return target == ErrAlreadyBound
}

type NotFoundError struct {
	Entity string
	Key    string
}

func NewNotFound(entity string, key any) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func (e *NotFoundError) Expected() bool { return true }

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StorageError wraps a failed or aborted storage operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Expected() bool { return true }

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type LedgerDivergenceError struct {
	EquipmentID   int64
	MovementID    int64
	Expected      EquipmentState
	Found         EquipmentState
	RegistryState EquipmentState
}

func (e *LedgerDivergenceError) Error() string {
	if e.MovementID != 0 {
		return fmt.Sprintf("ledger for equipment %d diverges at movement %d: expected prior state %s, found %s",
			e.EquipmentID, e.MovementID, e.Expected, e.Found)
	}
	return fmt.Sprintf("ledger for equipment %d replays to %s but registry holds %s",
		e.EquipmentID, e.Expected, e.RegistryState)
}

func (e *LedgerDivergenceError) Is(target error) bool {
	return target == ErrLedgerDivergence
}
