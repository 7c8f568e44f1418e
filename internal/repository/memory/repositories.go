package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"fleetrent-backend/internal/domain"
)

type equipmentRepository struct{ v *view }

func (r *equipmentRepository) Create(ctx context.Context, e *domain.Equipment) error {
	return r.v.write(func(d *data) error {
		for _, existing := range d.equipment {
			if strings.EqualFold(existing.AssetNumber, e.AssetNumber) {
				return &domain.ValidationError{Field: "asset_number", Message: "asset number already registered"}
			}
		}
		now := r.v.now()
		e.ID = d.nextID()
		e.State = domain.EquipmentStateAvailable
		e.Version = 1
		e.CreatedAt, e.UpdatedAt = now, now
		d.equipment[e.ID] = *e
		return nil
	})
}

func (r *equipmentRepository) GetByID(ctx context.Context, id int64) (*domain.Equipment, error) {
	var out domain.Equipment
	err := r.v.read(func(d *data) error {
		e, ok := d.equipment[id]
		if !ok {
			return domain.NewNotFound("equipment", id)
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *equipmentRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Equipment, error) {
	return r.GetByID(ctx, id)
}

func (r *equipmentRepository) List(ctx context.Context, filter domain.EquipmentFilter, page, pageSize int32) ([]domain.Equipment, int32, error) {
	var matched []domain.Equipment
	_ = r.v.read(func(d *data) error {
		for _, e := range d.equipment {
			if filter.State != "" && e.State != filter.State {
				continue
			}
			if filter.Location != "" && e.Location != filter.Location {
				continue
			}
			if filter.Category != "" && e.Category != filter.Category {
				continue
			}
			matched = append(matched, e)
		}
		return nil
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return paginate(matched, page, pageSize), int32(len(matched)), nil
}

func (r *equipmentRepository) UpdateState(ctx context.Context, e *domain.Equipment) error {
	return r.v.write(func(d *data) error {
		cur, ok := d.equipment[e.ID]
		if !ok {
			return domain.NewNotFound("equipment", e.ID)
		}
		if cur.Version != e.Version {
			return &domain.StorageError{Op: "update equipment state", Err: domain.ErrVersionConflict}
		}
		cur.State = e.State
		cur.Location = e.Location
		cur.RetiredAt = e.RetiredAt
		cur.Version++
		cur.UpdatedAt = r.v.now()
		d.equipment[e.ID] = cur
		e.Version, e.UpdatedAt = cur.Version, cur.UpdatedAt
		return nil
	})
}

type contractRepository struct{ v *view }

func (r *contractRepository) Create(ctx context.Context, c *domain.Contract) error {
	return r.v.write(func(d *data) error {
		for _, existing := range d.contracts {
			if existing.Folio == c.Folio {
				return &domain.ValidationError{Field: "folio", Message: "folio already exists"}
			}
			if c.IsActive() && existing.IsActive() && existing.EquipmentID == c.EquipmentID {
				return &domain.AlreadyBoundError{EquipmentID: c.EquipmentID, ActiveContractID: existing.ID}
			}
		}
		now := r.v.now()
		c.ID = d.nextID()
		c.CreatedAt, c.UpdatedAt = now, now
		d.contracts[c.ID] = *c
		return nil
	})
}

func (r *contractRepository) GetByID(ctx context.Context, id int64) (*domain.Contract, error) {
	var out domain.Contract
	err := r.v.read(func(d *data) error {
		c, ok := d.contracts[id]
		if !ok {
			return domain.NewNotFound("contract", id)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *contractRepository) GetActiveByEquipment(ctx context.Context, equipmentID int64) (*domain.Contract, error) {
	var out *domain.Contract
	_ = r.v.read(func(d *data) error {
		for _, c := range d.contracts {
			if c.EquipmentID == equipmentID && c.IsActive() {
				out = &c
				return nil
			}
		}
		return nil
	})
	if out == nil {
		return nil, domain.NewNotFound("active contract for equipment", equipmentID)
	}
	return out, nil
}

func (r *contractRepository) GetLatestByEquipment(ctx context.Context, equipmentID int64) (*domain.Contract, error) {
	var out *domain.Contract
	_ = r.v.read(func(d *data) error {
		for _, c := range d.contracts {
			if c.EquipmentID != equipmentID {
				continue
			}
			if out == nil || c.CreatedAt.After(out.CreatedAt) || (c.CreatedAt.Equal(out.CreatedAt) && c.ID > out.ID) {
				out = &c
			}
		}
		return nil
	})
	if out == nil {
		return nil, domain.NewNotFound("contract for equipment", equipmentID)
	}
	return out, nil
}

func (r *contractRepository) Update(ctx context.Context, c *domain.Contract) error {
	return r.v.write(func(d *data) error {
		if _, ok := d.contracts[c.ID]; !ok {
			return domain.NewNotFound("contract", c.ID)
		}
		c.UpdatedAt = r.v.now()
		d.contracts[c.ID] = *c
		return nil
	})
}

func (r *contractRepository) ListExpired(ctx context.Context, asOf time.Time) ([]domain.Contract, error) {
	var out []domain.Contract
	_ = r.v.read(func(d *data) error {
		for _, c := range d.contracts {
			if c.IsActive() && c.EndDate.Before(asOf) {
				out = append(out, c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type renewalRepository struct{ v *view }

func (r *renewalRepository) Create(ctx context.Context, rn *domain.Renewal) error {
	return r.v.write(func(d *data) error {
		rn.ID = d.nextID()
		rn.CreatedAt = r.v.now()
		d.renewals = append(d.renewals, *rn)
		return nil
	})
}

func (r *renewalRepository) ListByContract(ctx context.Context, contractID int64) ([]domain.Renewal, error) {
	var out []domain.Renewal
	_ = r.v.read(func(d *data) error {
		for _, rn := range d.renewals {
			if rn.ContractID == contractID {
				out = append(out, rn)
			}
		}
		return nil
	})
	return out, nil
}

type collectionRepository struct{ v *view }

func (r *collectionRepository) Create(ctx context.Context, t *domain.CollectionTask) error {
	return r.v.write(func(d *data) error {
		now := r.v.now()
		t.ID = d.nextID()
		t.CreatedAt, t.UpdatedAt = now, now
		if t.Status == "" {
			t.Status = domain.CollectionStatusPending
		}
		d.collections[t.ID] = *t
		return nil
	})
}

func (r *collectionRepository) ListByContract(ctx context.Context, contractID int64) ([]domain.CollectionTask, error) {
	var out []domain.CollectionTask
	_ = r.v.read(func(d *data) error {
		for _, t := range d.collections {
			if t.ContractID == contractID {
				out = append(out, t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledFor.Equal(out[j].ScheduledFor) {
			return out[i].ScheduledFor.Before(out[j].ScheduledFor)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *collectionRepository) TransitionPending(ctx context.Context, contractID int64, status domain.CollectionStatus) (int64, error) {
	var n int64
	err := r.v.write(func(d *data) error {
		now := r.v.now()
		for id, t := range d.collections {
			if t.ContractID == contractID && t.Status == domain.CollectionStatusPending {
				t.Status = status
				t.UpdatedAt = now
				d.collections[id] = t
				n++
			}
		}
		return nil
	})
	return n, err
}

type movementRepository struct{ v *view }

func (r *movementRepository) Append(ctx context.Context, m *domain.Movement) (int64, error) {
	err := r.v.write(func(d *data) error {
		for _, existing := range d.movements {
			if existing.RequestID == m.RequestID {
				return domain.ErrIdempotencyMismatch
			}
		}
		if m.OccurredAt.IsZero() {
			m.OccurredAt = r.v.now()
		}
		m.ID = d.nextID()
		stored := *m
		stored.Context = maps.Clone(m.Context)
		d.movements = append(d.movements, stored)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return m.ID, nil
}

func (r *movementRepository) ordered(equipmentID int64) []domain.Movement {
	var out []domain.Movement
	_ = r.v.read(func(d *data) error {
		for _, m := range d.movements {
			if m.EquipmentID == equipmentID {
				out = append(out, m)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Movement) int { return compareCursor(a.Cursor(), b.Cursor()) })
	return out
}

func (r *movementRepository) ListByEquipment(ctx context.Context, equipmentID int64, after *domain.LedgerCursor, limit int32) ([]domain.Movement, error) {
	var out []domain.Movement
	for _, m := range r.ordered(equipmentID) {
		if after != nil && compareCursor(m.Cursor(), *after) <= 0 {
			continue
		}
		if limit > 0 && int32(len(out)) >= limit {
			break
		}
		m.Context = maps.Clone(m.Context)
		out = append(out, m)
	}
	return out, nil
}

func (r *movementRepository) LatestBefore(ctx context.Context, equipmentID int64, ts time.Time) (*domain.Movement, error) {
	ms := r.ordered(equipmentID)
	for i := len(ms) - 1; i >= 0; i-- {
		if !ms[i].OccurredAt.After(ts) {
			m := ms[i]
			m.Context = maps.Clone(m.Context)
			return &m, nil
		}
	}
	return nil, domain.NewNotFound("movement for equipment", equipmentID)
}

func (r *movementRepository) GetByRequestID(ctx context.Context, requestID string) (*domain.Movement, error) {
	var out *domain.Movement
	_ = r.v.read(func(d *data) error {
		for _, m := range d.movements {
			if m.RequestID == requestID {
				m.Context = maps.Clone(m.Context)
				out = &m
				return nil
			}
		}
		return nil
	})
	if out == nil {
		return nil, domain.NewNotFound("movement with request id", requestID)
	}
	return out, nil
}

type maintenanceRepository struct{ v *view }

func (r *maintenanceRepository) Create(ctx context.Context, m *domain.MaintenanceRecord) error {
	return r.v.write(func(d *data) error {
		m.ID = d.nextID()
		m.CreatedAt = r.v.now()
		d.maintenance = append(d.maintenance, *m)
		return nil
	})
}

func (r *maintenanceRepository) ListByEquipment(ctx context.Context, equipmentID int64) ([]domain.MaintenanceRecord, error) {
	var out []domain.MaintenanceRecord
	_ = r.v.read(func(d *data) error {
		for _, m := range d.maintenance {
			if m.EquipmentID == equipmentID {
				out = append(out, m)
			}
		}
		return nil
	})
	// newest first
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ServiceDate.Equal(out[j].ServiceDate) {
			return out[i].ServiceDate.After(out[j].ServiceDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *maintenanceRepository) Latest(ctx context.Context, equipmentID int64) (*domain.MaintenanceRecord, error) {
	records, _ := r.ListByEquipment(ctx, equipmentID)
	if len(records) == 0 {
		return nil, domain.NewNotFound("maintenance record for equipment", equipmentID)
	}
	return &records[0], nil
}

type notificationRepository struct{ v *view }

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) (bool, error) {
	created := false
	err := r.v.write(func(d *data) error {
		for _, existing := range d.notifications {
			if existing.DedupeKey == n.DedupeKey {
				return nil
			}
		}
		n.ID = d.nextID()
		n.CreatedAt = r.v.now()
		d.notifications = append(d.notifications, *n)
		created = true
		return nil
	})
	return created, err
}

func (r *notificationRepository) List(ctx context.Context, limit, offset int32) ([]domain.Notification, int32, error) {
	var all []domain.Notification
	_ = r.v.read(func(d *data) error {
		all = slices.Clone(d.notifications)
		return nil
	})
	slices.Reverse(all)
	total := int32(len(all))
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

func compareCursor(a, b domain.LedgerCursor) int {
	if c := a.OccurredAt.Compare(b.OccurredAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

func paginate[T any](items []T, page, pageSize int32) []T {
	if pageSize <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := int((page - 1) * pageSize)
	if start >= len(items) {
		return nil
	}
	end := min(start+int(pageSize), len(items))
	return items[start:end]
}
