package postgres

import (
	"context"
	"errors"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
)

type contractRepository struct {
	db dbtx
}

const contractColumns = `id, folio, equipment_id, client, start_date, end_date, amount_cents, days, accumulated_hours,
	status, termination_reason, closed_at, created_by, created_at, updated_at`

func scanContract(row rowScanner) (*domain.Contract, error) {
	var c domain.Contract
	err := row.Scan(&c.ID, &c.Folio, &c.EquipmentID, &c.Client, &c.StartDate, &c.EndDate, &c.AmountCents, &c.Days,
		&c.AccumulatedHours, &c.Status, &c.TerminationReason, &c.ClosedAt, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contractRepository) Create(ctx context.Context, c *domain.Contract) error {
	logger.EnterMethod("contractRepository.Create", "folio", c.Folio, "equipmentID", c.EquipmentID)

	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	query := `INSERT INTO contracts (folio, equipment_id, client, start_date, end_date, amount_cents, days, accumulated_hours,
	          status, termination_reason, created_by, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	logger.DatabaseCall("INSERT", "contracts", "folio", c.Folio)
	err := r.db.QueryRowContext(ctx, query, c.Folio, c.EquipmentID, c.Client, c.StartDate, c.EndDate, c.AmountCents, c.Days,
		c.AccumulatedHours, c.Status, c.TerminationReason, c.CreatedBy, c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	logger.DatabaseResult("INSERT", 1, err, "contractID", c.ID)
	if err != nil {
		err = mapError("create contract", err)
		var abe *domain.AlreadyBoundError
		if errors.As(err, &abe) {
			abe.EquipmentID = c.EquipmentID
		}
		logger.ExitMethodWithError("contractRepository.Create", err, "folio", c.Folio)
		return err
	}
	logger.ExitMethod("contractRepository.Create", "contractID", c.ID)
	return nil
}

func (r *contractRepository) GetByID(ctx context.Context, id int64) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	c, err := scanContract(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFoundOr("get contract", "contract", id, err)
	}
	return c, nil
}

func (r *contractRepository) GetActiveByEquipment(ctx context.Context, equipmentID int64) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE equipment_id = $1 AND status = 'active'`
	c, err := scanContract(r.db.QueryRowContext(ctx, query, equipmentID))
	if err != nil {
		return nil, notFoundOr("get active contract", "active contract for equipment", equipmentID, err)
	}
	return c, nil
}

func (r *contractRepository) GetLatestByEquipment(ctx context.Context, equipmentID int64) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE equipment_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	c, err := scanContract(r.db.QueryRowContext(ctx, query, equipmentID))
	if err != nil {
		return nil, notFoundOr("get latest contract", "contract for equipment", equipmentID, err)
	}
	return c, nil
}

func (r *contractRepository) Update(ctx context.Context, c *domain.Contract) error {
	c.UpdatedAt = time.Now().UTC()
	query := `UPDATE contracts SET client = $1, start_date = $2, end_date = $3, amount_cents = $4, days = $5,
	          accumulated_hours = $6, status = $7, termination_reason = $8, closed_at = $9, updated_at = $10
	          WHERE id = $11`
	logger.DatabaseCall("UPDATE", "contracts", "contractID", c.ID, "status", c.Status)
	result, err := r.db.ExecContext(ctx, query, c.Client, c.StartDate, c.EndDate, c.AmountCents, c.Days,
		c.AccumulatedHours, c.Status, c.TerminationReason, c.ClosedAt, c.UpdatedAt, c.ID)
	if err != nil {
		err = mapError("update contract", err)
		logger.DatabaseResult("UPDATE", 0, err, "contractID", c.ID)
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return mapError("update contract", err)
	}
	logger.DatabaseResult("UPDATE", rows, nil, "contractID", c.ID)
	if rows == 0 {
		return domain.NewNotFound("contract", c.ID)
	}
	return nil
}

func (r *contractRepository) ListExpired(ctx context.Context, asOf time.Time) ([]domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE status = 'active' AND end_date < $1 ORDER BY end_date, id`
	rows, err := r.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, mapError("list expired contracts", err)
	}
	defer rows.Close()

	var out []domain.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, mapError("scan contract", err)
		}
		out = append(out, *c)
	}
	return out, mapError("list expired contracts", rows.Err())
}
