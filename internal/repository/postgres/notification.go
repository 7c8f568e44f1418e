package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
)

type notificationRepository struct {
	db dbtx
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) (bool, error) {
	logger.EnterMethod("notificationRepository.Create", "kind", n.Kind, "dedupeKey", n.DedupeKey)

	attrs, err := json.Marshal(n.Attributes)
	if err != nil {
		logger.ExitMethodWithError("notificationRepository.Create", err, "reason", "failed to marshal attributes")
		return false, &domain.StorageError{Op: "create notification", Err: err}
	}

	n.CreatedAt = time.Now().UTC()
	query := `INSERT INTO notifications (kind, equipment_id, contract_id, dedupe_key, title, message, attributes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          ON CONFLICT (dedupe_key) DO NOTHING RETURNING id`
	logger.DatabaseCall("INSERT", "notifications", "dedupeKey", n.DedupeKey)
	err = r.db.QueryRowContext(ctx, query, n.Kind, n.EquipmentID, n.ContractID, n.DedupeKey, n.Title, n.Message, string(attrs), n.CreatedAt).Scan(&n.ID)
	if errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("INSERT", 0, nil, "dedupeKey", n.DedupeKey)
		logger.ExitMethod("notificationRepository.Create", "created", false)
		return false, nil
	}
	logger.DatabaseResult("INSERT", 1, err, "notificationID", n.ID)
	if err != nil {
		err = mapError("create notification", err)
		logger.ExitMethodWithError("notificationRepository.Create", err, "dedupeKey", n.DedupeKey)
		return false, err
	}

	logger.ExitMethod("notificationRepository.Create", "notificationID", n.ID)
	return true, nil
}

func (r *notificationRepository) List(ctx context.Context, limit, offset int32) ([]domain.Notification, int32, error) {
	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM notifications`).Scan(&count); err != nil {
		return nil, 0, mapError("count notifications", err)
	}

	query := `SELECT id, kind, equipment_id, contract_id, dedupe_key, title, message, attributes, created_at
	          FROM notifications ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, mapError("list notifications", err)
	}
	defer rows.Close()

	var notes []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var contractID sql.NullInt64
		var attrs []byte
		if err := rows.Scan(&n.ID, &n.Kind, &n.EquipmentID, &contractID, &n.DedupeKey, &n.Title, &n.Message, &attrs, &n.CreatedAt); err != nil {
			return nil, 0, mapError("scan notification", err)
		}
		if contractID.Valid {
			n.ContractID = &contractID.Int64
		}
		if len(attrs) > 0 {
			if err := json.Unmarshal(attrs, &n.Attributes); err != nil {
				return nil, 0, mapError("decode notification attributes", err)
			}
		}
		notes = append(notes, n)
	}
	return notes, count, mapError("list notifications", rows.Err())
}
