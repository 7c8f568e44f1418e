package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleetrent-backend/internal/domain"

	"github.com/lib/pq"
)

const (
	uniqueViolation      = "23505"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
	queryCanceled        = "57014"

	constraintOneActiveContract = "contracts_one_active_per_equipment"
	constraintAssetNumber       = "equipment_asset_number_key"
	constraintFolio             = "contracts_folio_key"
	constraintRequestID         = "movements_request_id_key"
)

// mapError translates driver errors into the domain taxonomy. sql.ErrNoRows is
// left to callers, which know the entity and key.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			switch pqErr.Constraint {
			case constraintOneActiveContract:
				return &domain.AlreadyBoundError{}
			case constraintAssetNumber:
				return &domain.ValidationError{Field: "asset_number", Message: "asset number already registered"}
			case constraintFolio:
				return &domain.ValidationError{Field: "folio", Message: "folio already exists"}
			case constraintRequestID:
				return domain.ErrIdempotencyMismatch
			}
		case serializationFailure, deadlockDetected:
			return &domain.StorageError{Op: op, Err: domain.ErrVersionConflict}
		case queryCanceled:
			return &domain.StorageError{Op: op, Err: context.DeadlineExceeded}
		}
	}
	return &domain.StorageError{Op: op, Err: err}
}

func notFoundOr(op, entity string, key any, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFound(entity, key)
	}
	return mapError(op, err)
}
