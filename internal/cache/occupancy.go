package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lanpulse/internal/models"
)

// OccupancyStore keeps the latest station snapshot in redis so the dashboard
// and agents can read occupancy without hitting postgres.
type OccupancyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOccupancyStore returns a redis-backed occupancy cache.
func NewOccupancyStore(client *redis.Client, ttl time.Duration) *OccupancyStore {
	return &OccupancyStore{client: client, ttl: ttl}
}

func (s *OccupancyStore) key(stationID string) string {
	return fmt.Sprintf("stations:occupancy:%s", stationID)
}

// SaveOccupancy caches the snapshot under the station's key.
func (s *OccupancyStore) SaveOccupancy(ctx context.Context, snapshot models.StationSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(snapshot.Station.ID), data, s.ttl).Err()
}

// GetOccupancy returns the cached snapshot, or nil if none is cached.
func (s *OccupancyStore) GetOccupancy(ctx context.Context, stationID string) (*models.StationSnapshot, error) {
	result, err := s.client.Get(ctx, s.key(stationID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snapshot models.StationSnapshot
	if err := json.Unmarshal([]byte(result), &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// DeleteOccupancy removes the cached snapshot.
func (s *OccupancyStore) DeleteOccupancy(ctx context.Context, stationID string) error {
	return s.client.Del(ctx, s.key(stationID)).Err()
}
