package postgres

import (
	"context"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
)

type collectionRepository struct {
	db dbtx
}

func (r *collectionRepository) Create(ctx context.Context, t *domain.CollectionTask) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Status == "" {
		t.Status = domain.CollectionStatusPending
	}
	query := `INSERT INTO collection_tasks (contract_id, equipment_id, scheduled_for, status, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	logger.DatabaseCall("INSERT", "collection_tasks", "contractID", t.ContractID)
	err := r.db.QueryRowContext(ctx, query, t.ContractID, t.EquipmentID, t.ScheduledFor, t.Status, t.Notes, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
	logger.DatabaseResult("INSERT", 1, err, "taskID", t.ID)
	return mapError("create collection task", err)
}

func (r *collectionRepository) ListByContract(ctx context.Context, contractID int64) ([]domain.CollectionTask, error) {
	query := `SELECT id, contract_id, equipment_id, scheduled_for, status, notes, created_at, updated_at
	          FROM collection_tasks WHERE contract_id = $1 ORDER BY scheduled_for, id`
	rows, err := r.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, mapError("list collection tasks", err)
	}
	defer rows.Close()

	var out []domain.CollectionTask
	for rows.Next() {
		var t domain.CollectionTask
		if err := rows.Scan(&t.ID, &t.ContractID, &t.EquipmentID, &t.ScheduledFor, &t.Status, &t.Notes, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, mapError("scan collection task", err)
		}
		out = append(out, t)
	}
	return out, mapError("list collection tasks", rows.Err())
}

func (r *collectionRepository) TransitionPending(ctx context.Context, contractID int64, status domain.CollectionStatus) (int64, error) {
	query := `UPDATE collection_tasks SET status = $1, updated_at = $2 WHERE contract_id = $3 AND status = 'pending'`
	logger.DatabaseCall("UPDATE", "collection_tasks", "contractID", contractID, "status", status)
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), contractID)
	if err != nil {
		err = mapError("update collection tasks", err)
		logger.DatabaseResult("UPDATE", 0, err, "contractID", contractID)
		return 0, err
	}
	rows, err := result.RowsAffected()
	logger.DatabaseResult("UPDATE", rows, err, "contractID", contractID)
	return rows, mapError("update collection tasks", err)
}
