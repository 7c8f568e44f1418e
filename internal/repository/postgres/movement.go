package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
)

type movementRepository struct {
	db dbtx
}

const movementColumns = `id, equipment_id, kind, action, prior_state, new_state, contract_id, actor, request_id, hours_meter, context, occurred_at`

func scanMovement(row rowScanner) (*domain.Movement, error) {
	var m domain.Movement
	var contractID sql.NullInt64
	var ctxJSON []byte
	if err := row.Scan(&m.ID, &m.EquipmentID, &m.Kind, &m.Action, &m.PriorState, &m.NewState, &contractID,
		&m.Actor, &m.RequestID, &m.HoursMeter, &ctxJSON, &m.OccurredAt); err != nil {
		return nil, err
	}
	if contractID.Valid {
		m.ContractID = &contractID.Int64
	}
	if len(ctxJSON) > 0 {
		if err := json.Unmarshal(ctxJSON, &m.Context); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (r *movementRepository) Append(ctx context.Context, m *domain.Movement) (int64, error) {
	logger.EnterMethod("movementRepository.Append", "equipmentID", m.EquipmentID, "action", m.Action, "requestID", m.RequestID)

	ctxJSON, err := json.Marshal(m.Context)
	if err != nil {
		logger.ExitMethodWithError("movementRepository.Append", err, "reason", "failed to marshal context")
		return 0, &domain.StorageError{Op: "append movement", Err: err}
	}
	if m.OccurredAt.IsZero() {
		m.OccurredAt = time.Now().UTC()
	}

	query := `INSERT INTO movements (equipment_id, kind, action, prior_state, new_state, contract_id, actor, request_id, hours_meter, context, occurred_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	logger.DatabaseCall("INSERT", "movements", "equipmentID", m.EquipmentID, "kind", m.Kind)
	err = r.db.QueryRowContext(ctx, query, m.EquipmentID, m.Kind, m.Action, m.PriorState, m.NewState, m.ContractID,
		m.Actor, m.RequestID, m.HoursMeter, string(ctxJSON), m.OccurredAt).Scan(&m.ID)
	logger.DatabaseResult("INSERT", 1, err, "movementID", m.ID)
	if err != nil {
		err = mapError("append movement", err)
		logger.ExitMethodWithError("movementRepository.Append", err, "equipmentID", m.EquipmentID)
		return 0, err
	}

	logger.ExitMethod("movementRepository.Append", "movementID", m.ID)
	return m.ID, nil
}

func (r *movementRepository) ListByEquipment(ctx context.Context, equipmentID int64, after *domain.LedgerCursor, limit int32) ([]domain.Movement, error) {
	var rows *sql.Rows
	var err error
	if after == nil {
		query := `SELECT ` + movementColumns + ` FROM movements WHERE equipment_id = $1 ORDER BY occurred_at, id LIMIT $2`
		rows, err = r.db.QueryContext(ctx, query, equipmentID, limit)
	} else {
		query := `SELECT ` + movementColumns + ` FROM movements WHERE equipment_id = $1 AND (occurred_at, id) > ($2, $3)
		          ORDER BY occurred_at, id LIMIT $4`
		rows, err = r.db.QueryContext(ctx, query, equipmentID, after.OccurredAt, after.ID, limit)
	}
	if err != nil {
		return nil, mapError("list movements", err)
	}
	defer rows.Close()

	var out []domain.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, mapError("scan movement", err)
		}
		out = append(out, *m)
	}
	return out, mapError("list movements", rows.Err())
}

func (r *movementRepository) LatestBefore(ctx context.Context, equipmentID int64, ts time.Time) (*domain.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE equipment_id = $1 AND occurred_at <= $2
	          ORDER BY occurred_at DESC, id DESC LIMIT 1`
	m, err := scanMovement(r.db.QueryRowContext(ctx, query, equipmentID, ts))
	if err != nil {
		return nil, notFoundOr("latest movement", "movement for equipment", equipmentID, err)
	}
	return m, nil
}

func (r *movementRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE request_id = $1`
	m, err := scanMovement(r.db.QueryRowContext(ctx, query, requestID))
	if err != nil {
		return nil, notFoundOr("get movement", "movement with request id", requestID, err)
	}
	return m, nil
}
