package postgres

import (
	"context"
	"database/sql"
	"errors"

	"lanpulse/internal/models"
	"lanpulse/internal/storage"
)

type stationRepo struct {
	q querier
}

const stationColumns = `id, name, mac_address, ip_address, hostname, status, zone_id, facility_id, last_heartbeat, created_at, updated_at`

func scanStation(row interface{ Scan(...any) error }) (*models.Station, error) {
	var st models.Station
	err := row.Scan(
		&st.ID,
		&st.Name,
		&st.MACAddress,
		&st.IPAddress,
		&st.Hostname,
		&st.Status,
		&st.ZoneID,
		&st.FacilityID,
		&st.LastHeartbeat,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (r *stationRepo) Get(ctx context.Context, id string) (*models.Station, error) {
	const query = `SELECT ` + stationColumns + ` FROM stations WHERE id = $1`
	return scanStation(r.q.QueryRowContext(ctx, query, id))
}

func (r *stationRepo) GetForUpdate(ctx context.Context, id string) (*models.Station, error) {
	const query = `SELECT ` + stationColumns + ` FROM stations WHERE id = $1 FOR UPDATE`
	return scanStation(r.q.QueryRowContext(ctx, query, id))
}

func (r *stationRepo) GetByMAC(ctx context.Context, mac string) (*models.Station, error) {
	const query = `SELECT ` + stationColumns + ` FROM stations WHERE mac_address = $1`
	return scanStation(r.q.QueryRowContext(ctx, query, mac))
}

func (r *stationRepo) Create(ctx context.Context, station *models.Station) error {
	const query = `
		INSERT INTO stations (id, name, mac_address, ip_address, hostname, status, zone_id, facility_id, last_heartbeat, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	return r.q.QueryRowContext(ctx, query,
		station.ID,
		station.Name,
		station.MACAddress,
		station.IPAddress,
		station.Hostname,
		station.Status,
		station.ZoneID,
		station.FacilityID,
		station.LastHeartbeat,
	).Scan(&station.CreatedAt, &station.UpdatedAt)
}

func (r *stationRepo) Update(ctx context.Context, station *models.Station) error {
	const query = `
		UPDATE stations
		SET name = $2,
		    mac_address = $3,
		    ip_address = $4,
		    hostname = $5,
		    status = $6,
		    zone_id = $7,
		    last_heartbeat = $8,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.q.ExecContext(ctx, query,
		station.ID,
		station.Name,
		station.MACAddress,
		station.IPAddress,
		station.Hostname,
		station.Status,
		station.ZoneID,
		station.LastHeartbeat,
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

func (r *stationRepo) ListLive(ctx context.Context) ([]models.Station, error) {
	const query = `
		SELECT ` + stationColumns + `
		FROM stations
		WHERE status NOT IN ('OFFLINE', 'MALICIOUS')
		ORDER BY name ASC
	`
	return r.list(ctx, query)
}

func (r *stationRepo) ListUnreachable(ctx context.Context) ([]models.Station, error) {
	const query = `
		SELECT ` + stationColumns + `
		FROM stations
		WHERE status IN ('OFFLINE', 'MALICIOUS') AND ip_address <> ''
		ORDER BY name ASC
	`
	return r.list(ctx, query)
}

func (r *stationRepo) list(ctx context.Context, query string, args ...any) ([]models.Station, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.Station
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stations, nil
}
