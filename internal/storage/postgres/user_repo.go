package postgres

import (
	"context"
	"database/sql"
	"errors"

	"lanpulse/internal/models"
	"lanpulse/internal/storage"
)

type userRepo struct {
	q querier
}

const userColumns = `id, username, password_hash, balance, is_guest, active_station_id, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.PasswordHash,
		&u.Balance,
		&u.IsGuest,
		&u.ActiveStationID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Get(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.q.QueryRowContext(ctx, query, id))
}

func (r *userRepo) GetForUpdate(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(r.q.QueryRowContext(ctx, query, id))
}

func (r *userRepo) GetByActiveStation(ctx context.Context, stationID string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE active_station_id = $1 LIMIT 1`
	return scanUser(r.q.QueryRowContext(ctx, query, stationID))
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	const query = `
		INSERT INTO users (id, username, password_hash, balance, is_guest, active_station_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.q.QueryRowContext(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Balance,
		user.IsGuest,
		user.ActiveStationID,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	const query = `
		UPDATE users
		SET username = $2,
		    balance = $3,
		    active_station_id = $4,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Balance,
		user.ActiveStationID,
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

func (r *userRepo) ClearActiveStation(ctx context.Context, stationID string) (int, error) {
	const query = `
		UPDATE users
		SET active_station_id = NULL,
		    updated_at = NOW()
		WHERE active_station_id = $1
	`
	result, err := r.q.ExecContext(ctx, query, stationID)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
