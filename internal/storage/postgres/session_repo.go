package postgres

import (
	"context"
	"database/sql"
	"errors"

	"lanpulse/internal/models"
	"lanpulse/internal/storage"
)

type sessionRepo struct {
	q querier
}

const sessionColumns = `id, user_id, station_id, facility_id, status, pricing_type, started_at, ended_at, expires_at, duration_seconds, total_cost, is_paid, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var s models.Session
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.StationID,
		&s.FacilityID,
		&s.Status,
		&s.PricingType,
		&s.StartedAt,
		&s.EndedAt,
		&s.ExpiresAt,
		&s.DurationSeconds,
		&s.TotalCost,
		&s.IsPaid,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.q.QueryRowContext(ctx, query, id))
}

func (r *sessionRepo) GetForUpdate(ctx context.Context, id string) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR UPDATE`
	return scanSession(r.q.QueryRowContext(ctx, query, id))
}

func (r *sessionRepo) Create(ctx context.Context, session *models.Session) error {
	const query = `
		INSERT INTO sessions (id, user_id, station_id, facility_id, status, pricing_type, started_at, ended_at, expires_at, duration_seconds, total_cost, is_paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.q.QueryRowContext(ctx, query,
		session.ID,
		session.UserID,
		session.StationID,
		session.FacilityID,
		session.Status,
		session.PricingType,
		session.StartedAt,
		session.EndedAt,
		session.ExpiresAt,
		session.DurationSeconds,
		session.TotalCost,
		session.IsPaid,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
}

func (r *sessionRepo) Update(ctx context.Context, session *models.Session) error {
	const query = `
		UPDATE sessions
		SET status = $2,
		    started_at = $3,
		    ended_at = $4,
		    expires_at = $5,
		    duration_seconds = $6,
		    total_cost = $7,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.ExecContext(ctx, query,
		session.ID,
		session.Status,
		session.StartedAt,
		session.EndedAt,
		session.ExpiresAt,
		session.DurationSeconds,
		session.TotalCost,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) ListOccupying(ctx context.Context, stationID string) ([]models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE station_id = $1 AND status IN ('ACTIVE', 'PAUSED', 'EXPIRED')
		ORDER BY started_at DESC
	`
	rows, err := r.q.QueryContext(ctx, query, stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) UserOccupying(ctx context.Context, userID string) (*models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND status IN ('ACTIVE', 'PAUSED', 'EXPIRED')
		ORDER BY started_at DESC
		LIMIT 1
	`
	return scanSession(r.q.QueryRowContext(ctx, query, userID))
}
