package postgres

import (
	"context"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
)

type renewalRepository struct {
	db dbtx
}

func (r *renewalRepository) Create(ctx context.Context, rn *domain.Renewal) error {
	rn.CreatedAt = time.Now().UTC()
	query := `INSERT INTO renewals (contract_id, prev_start_date, prev_end_date, new_start_date, new_end_date,
	          prev_hours, new_hours, prev_amount_cents, new_amount_cents, actor, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	logger.DatabaseCall("INSERT", "renewals", "contractID", rn.ContractID)
	err := r.db.QueryRowContext(ctx, query, rn.ContractID, rn.PrevStartDate, rn.PrevEndDate, rn.NewStartDate, rn.NewEndDate,
		rn.PrevHours, rn.NewHours, rn.PrevAmountCents, rn.NewAmountCents, rn.Actor, rn.CreatedAt).Scan(&rn.ID)
	logger.DatabaseResult("INSERT", 1, err, "renewalID", rn.ID)
	return mapError("create renewal", err)
}

func (r *renewalRepository) ListByContract(ctx context.Context, contractID int64) ([]domain.Renewal, error) {
	query := `SELECT id, contract_id, prev_start_date, prev_end_date, new_start_date, new_end_date,
	          prev_hours, new_hours, prev_amount_cents, new_amount_cents, actor, created_at
	          FROM renewals WHERE contract_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, mapError("list renewals", err)
	}
	defer rows.Close()

	var out []domain.Renewal
	for rows.Next() {
		var rn domain.Renewal
		if err := rows.Scan(&rn.ID, &rn.ContractID, &rn.PrevStartDate, &rn.PrevEndDate, &rn.NewStartDate, &rn.NewEndDate,
			&rn.PrevHours, &rn.NewHours, &rn.PrevAmountCents, &rn.NewAmountCents, &rn.Actor, &rn.CreatedAt); err != nil {
			return nil, mapError("scan renewal", err)
		}
		out = append(out, rn)
	}
	return out, mapError("list renewals", rows.Err())
}
