package postgres

import (
	"context"
	"time"

	"fleetrent-backend/internal/domain"
	"fleetrent-backend/internal/logger"
)

type maintenanceRepository struct {
	db dbtx
}

const maintenanceColumns = `id, equipment_id, type, service_date, hours_at_service, next_due_hours, notes, performed_by, created_at`

func scanMaintenance(row rowScanner) (*domain.MaintenanceRecord, error) {
	var m domain.MaintenanceRecord
	if err := row.Scan(&m.ID, &m.EquipmentID, &m.Type, &m.ServiceDate, &m.HoursAtService, &m.NextDueHours,
		&m.Notes, &m.PerformedBy, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *maintenanceRepository) Create(ctx context.Context, m *domain.MaintenanceRecord) error {
	m.CreatedAt = time.Now().UTC()
	query := `INSERT INTO maintenance_records (equipment_id, type, service_date, hours_at_service, next_due_hours, notes, performed_by, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	logger.DatabaseCall("INSERT", "maintenance_records", "equipmentID", m.EquipmentID, "type", m.Type)
	err := r.db.QueryRowContext(ctx, query, m.EquipmentID, m.Type, m.ServiceDate, m.HoursAtService, m.NextDueHours,
		m.Notes, m.PerformedBy, m.CreatedAt).Scan(&m.ID)
	logger.DatabaseResult("INSERT", 1, err, "recordID", m.ID)
	return mapError("create maintenance record", err)
}

func (r *maintenanceRepository) ListByEquipment(ctx context.Context, equipmentID int64) ([]domain.MaintenanceRecord, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_records WHERE equipment_id = $1 ORDER BY service_date DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, equipmentID)
	if err != nil {
		return nil, mapError("list maintenance records", err)
	}
	defer rows.Close()

	var out []domain.MaintenanceRecord
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, mapError("scan maintenance record", err)
		}
		out = append(out, *m)
	}
	return out, mapError("list maintenance records", rows.Err())
}

func (r *maintenanceRepository) Latest(ctx context.Context, equipmentID int64) (*domain.MaintenanceRecord, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_records WHERE equipment_id = $1 ORDER BY service_date DESC, id DESC LIMIT 1`
	m, err := scanMaintenance(r.db.QueryRowContext(ctx, query, equipmentID))
	if err != nil {
		return nil, notFoundOr("latest maintenance record", "maintenance record for equipment", equipmentID, err)
	}
	return m, nil
}
