package entitlement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"concedii/internal/platform/querier"
)

// GetForUpdateTx reads the balance row and takes a row lock, serializing
// concurrent consume/refund on the same (user, year, type) key.
func (s *Store) GetForUpdateTx(ctx context.Context, q querier.Querier, userID int64, year int, leaveType string) (Entitlement, error) {
	var e Entitlement
	err := q.QueryRow(ctx, `
    SELECT id, user_id, year, type, annual_days, carryover_days, used_days, updated_at
    FROM leave_entitlements
    WHERE user_id = $1 AND year = $2 AND type = $3
    FOR UPDATE
  `, userID, year, leaveType).Scan(&e.ID, &e.UserID, &e.Year, &e.Type, &e.AnnualDays, &e.CarryoverDays, &e.UsedDays, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entitlement{}, ErrNotFound
	}
	if err != nil {
		return Entitlement{}, err
	}
	return e, nil
}

func (s *Store) AddUsedTx(ctx context.Context, q querier.Querier, id int64, delta int) error {
	_, err := q.Exec(ctx, `
    UPDATE leave_entitlements
    SET used_days = used_days + $1, updated_at = now()
    WHERE id = $2
  `, delta, id)
	return err
}

func (s *Store) SetUsedTx(ctx context.Context, q querier.Querier, id int64, used int) error {
	_, err := q.Exec(ctx, `
    UPDATE leave_entitlements
    SET used_days = $1, updated_at = now()
    WHERE id = $2
  `, used, id)
	return err
}

// Upsert creates the row or overwrites the granted figures in place.
// used_days is deliberately untouched.
func (s *Store) Upsert(ctx context.Context, userID int64, year int, leaveType string, annualDays, carryoverDays int) (Entitlement, error) {
	var e Entitlement
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_entitlements (user_id, year, type, annual_days, carryover_days, used_days)
    VALUES ($1, $2, $3, $4, $5, 0)
    ON CONFLICT (user_id, year, type)
    DO UPDATE SET annual_days = EXCLUDED.annual_days, carryover_days = EXCLUDED.carryover_days, updated_at = now()
    RETURNING id, user_id, year, type, annual_days, carryover_days, used_days, updated_at
  `, userID, year, leaveType, annualDays, carryoverDays).Scan(&e.ID, &e.UserID, &e.Year, &e.Type, &e.AnnualDays, &e.CarryoverDays, &e.UsedDays, &e.UpdatedAt)
	if err != nil {
		return Entitlement{}, err
	}
	return e, nil
}

func (s *Store) ListByUserYear(ctx context.Context, userID int64, year int) ([]Entitlement, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, user_id, year, type, annual_days, carryover_days, used_days, updated_at
    FROM leave_entitlements
    WHERE user_id = $1 AND year = $2
    ORDER BY type
  `, userID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entitlement
	for rows.Next() {
		var e Entitlement
		if err := rows.Scan(&e.ID, &e.UserID, &e.Year, &e.Type, &e.AnnualDays, &e.CarryoverDays, &e.UsedDays, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
