package postgres

import (
	"context"
	"database/sql"
	"errors"

	"lanpulse/internal/models"
	"lanpulse/internal/storage"
)

type catalogRepo struct {
	q querier
}

func (r *catalogRepo) ActiveTiers(ctx context.Context, zoneID string) ([]models.RateTier, error) {
	const query = `
		SELECT id, zone_id, minutes, price, is_active, created_at
		FROM rate_tiers
		WHERE zone_id = $1 AND is_active
		ORDER BY minutes ASC
	`
	rows, err := r.q.QueryContext(ctx, query, zoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []models.RateTier
	for rows.Next() {
		var t models.RateTier
		if err := rows.Scan(&t.ID, &t.ZoneID, &t.Minutes, &t.Price, &t.IsActive, &t.CreatedAt); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *catalogRepo) GetBundle(ctx context.Context, id string) (*models.Bundle, error) {
	const query = `
		SELECT id, zone_id, name, minutes, price, is_active, created_at
		FROM bundles
		WHERE id = $1
	`
	var b models.Bundle
	err := r.q.QueryRowContext(ctx, query, id).
		Scan(&b.ID, &b.ZoneID, &b.Name, &b.Minutes, &b.Price, &b.IsActive, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *catalogRepo) GetFacility(ctx context.Context, id string) (*models.Facility, error) {
	const query = `SELECT id, name, created_at FROM facilities WHERE id = $1`
	var f models.Facility
	err := r.q.QueryRowContext(ctx, query, id).Scan(&f.ID, &f.Name, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *catalogRepo) FirstZone(ctx context.Context, facilityID string) (*models.Zone, error) {
	const query = `
		SELECT id, facility_id, name, position, created_at
		FROM zones
		WHERE facility_id = $1
		ORDER BY position ASC
		LIMIT 1
	`
	return scanZone(r.q.QueryRowContext(ctx, query, facilityID))
}

func (r *catalogRepo) GetZone(ctx context.Context, id string) (*models.Zone, error) {
	const query = `
		SELECT id, facility_id, name, position, created_at
		FROM zones
		WHERE id = $1
	`
	return scanZone(r.q.QueryRowContext(ctx, query, id))
}

func scanZone(row *sql.Row) (*models.Zone, error) {
	var z models.Zone
	if err := row.Scan(&z.ID, &z.FacilityID, &z.Name, &z.Position, &z.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &z, nil
}
