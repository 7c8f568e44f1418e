package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
)

type equipmentRepository struct {
	db   dbtx
	inTx bool
}

const equipmentColumns = `id, asset_number, brand, model, serial_number, class, category, state, location, version, retired_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEquipment(row rowScanner) (*domain.Equipment, error) {
	var e domain.Equipment
	err := row.Scan(&e.ID, &e.AssetNumber, &e.Brand, &e.Model, &e.SerialNumber, &e.Class, &e.Category,
		&e.State, &e.Location, &e.Version, &e.RetiredAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *equipmentRepository) Create(ctx context.Context, e *domain.Equipment) error {
	logger.EnterMethod("equipmentRepository.Create", "assetNumber", e.AssetNumber)

	now := time.Now().UTC()
	e.State = domain.EquipmentStateAvailable
	e.Version = 1
	e.CreatedAt, e.UpdatedAt = now, now

	query := `INSERT INTO equipment (asset_number, brand, model, serial_number, class, category, state, location, version, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	logger.DatabaseCall("INSERT", "equipment", "assetNumber", e.AssetNumber)
	err := r.db.QueryRowContext(ctx, query, e.AssetNumber, e.Brand, e.Model, e.SerialNumber, e.Class, e.Category,
		e.State, e.Location, e.Version, e.CreatedAt, e.UpdatedAt).Scan(&e.ID)
	logger.DatabaseResult("INSERT", 1, err, "equipmentID", e.ID)
	if err != nil {
		err = mapError("create equipment", err)
		logger.ExitMethodWithError("equipmentRepository.Create", err, "assetNumber", e.AssetNumber)
		return err
	}

	logger.ExitMethod("equipmentRepository.Create", "equipmentID", e.ID)
	return nil
}

func (r *equipmentRepository) GetByID(ctx context.Context, id int64) (*domain.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE id = $1`
	e, err := scanEquipment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr("get equipment", "equipment", id, err)
	}
	return e, nil
}

func (r *equipmentRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Equipment, error) {
	if !r.inTx {
		return r.GetByID(ctx, id)
	}
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE id = $1 FOR UPDATE`
	logger.DatabaseCall("SELECT FOR UPDATE", "equipment", "equipmentID", id)
	e, err := scanEquipment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		err = notFoundOr("lock equipment", "equipment", id, err)
		logger.DatabaseResult("SELECT FOR UPDATE", 0, err, "equipmentID", id)
		return nil, err
	}
	logger.DatabaseResult("SELECT FOR UPDATE", 1, nil, "equipmentID", id, "version", e.Version)
	return e, nil
}

func (r *equipmentRepository) List(ctx context.Context, filter domain.EquipmentFilter, page, pageSize int32) ([]domain.Equipment, int32, error) {
	var where []string
	var args []any
	if filter.State != "" {
		args = append(args, filter.State)
		where = append(where, fmt.Sprintf("state = $%d", len(args)))
	}
	if filter.Location != "" {
		args = append(args, filter.Location)
		where = append(where, fmt.Sprintf("location = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM equipment`+clause, args...).Scan(&count); err != nil {
		return nil, 0, mapError("count equipment", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`SELECT %s FROM equipment%s ORDER BY id LIMIT $%d OFFSET $%d`,
		equipmentColumns, clause, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, pageSize, offset)...)
	if err != nil {
		return nil, 0, mapError("list equipment", err)
	}
	defer rows.Close()

	var items []domain.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, 0, mapError("scan equipment", err)
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, mapError("list equipment", err)
	}
	return items, count, nil
}

func (r *equipmentRepository) UpdateState(ctx context.Context, e *domain.Equipment) error {
	now := time.Now().UTC()
	query := `UPDATE equipment SET state = $1, location = $2, retired_at = $3, version = version + 1, updated_at = $4
	          WHERE id = $5 AND version = $6`
	logger.DatabaseCall("UPDATE", "equipment", "equipmentID", e.ID, "state", e.State, "version", e.Version)
	result, err := r.db.ExecContext(ctx, query, e.State, e.Location, e.RetiredAt, now, e.ID, e.Version)
	if err != nil {
		err = mapError("update equipment state", err)
		logger.DatabaseResult("UPDATE", 0, err, "equipmentID", e.ID)
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapError("update equipment state", err)
	}
	logger.DatabaseResult("UPDATE", rows, nil, "equipmentID", e.ID)
	if rows == 0 {
		return &domain.StorageError{Op: "update equipment state", Err: domain.ErrVersionConflict}
	}
	e.Version++
	e.UpdatedAt = now
	return nil
}
