package service

import (
	"context"
	"time"

	"lanpulse/internal/models"
)

// Broadcaster receives post-transition snapshots for fan-out to viewers,
// scoped by facility. The engine only produces snapshots; transport lives
// elsewhere.
type Broadcaster interface {
	Publish(snapshot models.StationSnapshot, facilityID string)
}

// OccupancyCache keeps the latest occupancy snapshot per station for the agent
// fast path. Implementations must tolerate being skipped entirely (a nil cache
// disables caching).
type OccupancyCache interface {
	SaveOccupancy(ctx context.Context, snapshot models.StationSnapshot) error
	DeleteOccupancy(ctx context.Context, stationID string) error
}

func buildSnapshot(station models.Station, session *models.Session, at time.Time) models.StationSnapshot {
	return models.StationSnapshot{
		Station:   station,
		Session:   session,
		EmittedAt: at,
	}
}
