package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/backend/internal/models"
	"github.com/civicdesk/backend/internal/service"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) FindItem(ctx context.Context, id string) (models.WorkItem, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT i.id, i.category, i.lat, i.lon, i.priority, i.status, i.reporter_id, i.created_at,
			a.unit_id, a.staff_id, a.auto_assigned, a.assigned_at
		FROM work_items i
		LEFT JOIN assignments a ON a.item_id = i.id
		WHERE i.id = $1
	`, id)

	var (
		item     models.WorkItem
		unitID   *string
		staffID  *string
		auto     *bool
		assigned *time.Time
	)
	if err := row.Scan(
		&item.ID, &item.Category, &item.Location.Lat, &item.Location.Lon,
		&item.Priority, &item.Status, &item.ReporterID, &item.CreatedAt,
		&unitID, &staffID, &auto, &assigned,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.WorkItem{}, fmt.Errorf("%w: %s", service.ErrItemNotFound, id)
		}
		return models.WorkItem{}, err
	}

	if unitID != nil {
		item.Assignment = &models.Assignment{
			ItemID:       item.ID,
			UnitID:       *unitID,
			StaffID:      staffID,
			AutoAssigned: auto != nil && *auto,
			AssignedAt:   *assigned,
		}
	}
	return item, nil
}

func (s *Store) FindAllActiveUnits(ctx context.Context) ([]models.HandlingUnit, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, active, categories, coverage_lat, coverage_lon, coverage_radius_km,
			auto_assign, max_concurrent_items, response_time_target_hours,
			resolution_rate_percent, avg_response_time_hours
		FROM handling_units
		WHERE active = TRUE
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.HandlingUnit
	for rows.Next() {
		var (
			u      models.HandlingUnit
			lat    *float64
			lon    *float64
			radius *float64
		)
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Active, &u.Categories, &lat, &lon, &radius,
			&u.Settings.AutoAssign, &u.Settings.MaxConcurrentItems, &u.Settings.ResponseTimeTargetHours,
			&u.Stats.ResolutionRatePercent, &u.Stats.AvgResponseTimeHours,
		); err != nil {
			return nil, err
		}
		if lat != nil && lon != nil && radius != nil {
			u.Coverage = &models.CoverageArea{Lat: *lat, Lon: *lon, RadiusKm: *radius}
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListActiveStaffByUnit returns the unit's roster in creation order. The
// selector breaks load ties on this order, so it must stay stable.
func (s *Store) ListActiveStaffByUnit(ctx context.Context, unitID string) ([]models.StaffMember, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, unit_id, active
		FROM staff_members
		WHERE unit_id = $1 AND active = TRUE
		ORDER BY created_at ASC, id ASC
	`, unitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StaffMember
	for rows.Next() {
		var m models.StaffMember
		if err := rows.Scan(&m.ID, &m.UnitID, &m.Active); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) CountOpenByUnit(ctx context.Context, unitID string) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM work_items i
		JOIN assignments a ON a.item_id = i.id
		WHERE a.unit_id = $1 AND i.status IN ('new', 'in_progress')
	`, unitID).Scan(&n)
	return n, err
}

func (s *Store) CountOpenByStaff(ctx context.Context, staffID string) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM work_items i
		JOIN assignments a ON a.item_id = i.id
		WHERE a.staff_id = $1 AND i.status IN ('new', 'in_progress')
	`, staffID).Scan(&n)
	return n, err
}

// UpdateAssignment commits an assignment in one transaction: the assignment
// row is upserted (a new assignment supersedes the old, never appends), the
// item status is updated, and the timeline entry is appended. Any failure
// rolls back all three.
func (s *Store) UpdateAssignment(ctx context.Context, itemID string, a models.Assignment, status models.ItemStatus, entry models.TimelineEntry) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO assignments (item_id, unit_id, staff_id, auto_assigned, assigned_at)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (item_id) DO UPDATE SET
				unit_id = EXCLUDED.unit_id,
				staff_id = EXCLUDED.staff_id,
				auto_assigned = EXCLUDED.auto_assigned,
				assigned_at = EXCLUDED.assigned_at
		`, a.ItemID, a.UnitID, a.StaffID, a.AutoAssigned, a.AssignedAt)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `UPDATE work_items SET status = $1 WHERE id = $2`, status, itemID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", service.ErrItemNotFound, itemID)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO timeline_entries (id, item_id, type, message, data, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, entry.ID, entry.ItemID, entry.Type, entry.Message, entry.Data, entry.CreatedAt)
		return err
	})
}

func (s *Store) InsertNotification(ctx context.Context, n models.Notification) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, data, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, n.ID, n.UserID, n.Type, n.Title, n.Message, n.Data, n.CreatedAt)
	return err
}
