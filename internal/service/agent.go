package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lanpulse/internal/models"
	"lanpulse/internal/storage"
)

// Agent handles traffic from the client programs running on the stations:
// registration on boot, periodic heartbeats, and logout notifications.
type Agent struct {
	store       storage.Store
	cache       OccupancyCache
	broadcaster Broadcaster
	logger      *zap.Logger
	now         func() time.Time
}

// NewAgent builds the agent service. Cache and broadcaster may be nil.
func NewAgent(store storage.Store, cache OccupancyCache, broadcaster Broadcaster, logger *zap.Logger, now func() time.Time) *Agent {
	if now == nil {
		now = time.Now
	}
	return &Agent{store: store, cache: cache, broadcaster: broadcaster, logger: logger, now: now}
}

// RegisterInput identifies the booting station.
type RegisterInput struct {
	FacilityID string
	MACAddress string
	IPAddress  string
	Hostname   string
}

// RegisterResult carries the station row and whether it was just created.
type RegisterResult struct {
	Station *models.Station `json:"station"`
	IsNew   bool            `json:"is_new"`
}

// HeartbeatInput is the agent's periodic report.
type HeartbeatInput struct {
	StationID      string
	IPAddress      string
	ReportedStatus string
}

// HeartbeatResult tells the agent what the server thinks the station is doing.
type HeartbeatResult struct {
	Station *models.Station `json:"station"`
	Session *models.Session `json:"session,omitempty"`
}

// NormalizeMAC strips separators and uppercases so the same adapter always
// maps to the same station row regardless of how the agent formats it.
func NormalizeMAC(mac string) string {
	replacer := strings.NewReplacer(":", "", "-", "", ".", "")
	return strings.ToUpper(replacer.Replace(mac))
}

// Register upserts the station by MAC address. An unknown MAC creates a new
// AVAILABLE station in the facility's first zone; a known one refreshes its
// network identity and, if it was marked unreachable, recovers it.
func (a *Agent) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	mac := NormalizeMAC(in.MACAddress)
	if mac == "" {
		return nil, fmt.Errorf("%w: mac address required", ErrInvalidState)
	}

	var result RegisterResult
	err := a.store.Atomically(ctx, func(s storage.Store) error {
		if _, err := s.Catalog().GetFacility(ctx, in.FacilityID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: facility %s", ErrNotFound, in.FacilityID)
			}
			return err
		}

		now := a.now()
		st, err := s.Stations().GetByMAC(ctx, mac)
		if errors.Is(err, storage.ErrNotFound) {
			zone, zErr := s.Catalog().FirstZone(ctx, in.FacilityID)
			if zErr != nil {
				return fmt.Errorf("resolve default zone: %w", zErr)
			}
			name := in.Hostname
			if name == "" {
				tail := mac
				if len(tail) > 5 {
					tail = tail[len(tail)-5:]
				}
				name = "PC-" + tail
			}
			st = &models.Station{
				ID:            uuid.NewString(),
				Name:          name,
				MACAddress:    mac,
				IPAddress:     in.IPAddress,
				Hostname:      in.Hostname,
				ZoneID:        zone.ID,
				FacilityID:    in.FacilityID,
				Status:        models.StationAvailable,
				LastHeartbeat: &now,
			}
			if err := s.Stations().Create(ctx, st); err != nil {
				return err
			}
			result = RegisterResult{Station: st, IsNew: true}
			return nil
		}
		if err != nil {
			return err
		}

		st.IPAddress = in.IPAddress
		if in.Hostname != "" {
			if st.Name == st.Hostname {
				st.Name = in.Hostname
			}
			st.Hostname = in.Hostname
		}
		st.LastHeartbeat = &now
		if st.IsUnreachable() {
			occupying, sErr := s.Sessions().ListOccupying(ctx, st.ID)
			if sErr != nil {
				return sErr
			}
			if len(occupying) > 0 {
				st.Status = models.StationOccupied
			} else {
				st.Status = models.StationAvailable
			}
		}
		if err := s.Stations().Update(ctx, st); err != nil {
			return err
		}
		result = RegisterResult{Station: st}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("station registered",
		zap.String("station_id", result.Station.ID),
		zap.String("mac", mac),
		zap.Bool("is_new", result.IsNew),
	)
	a.emit(ctx, *result.Station, nil)
	return &result, nil
}

// Heartbeat stamps the station's liveness and reconciles its status with what
// the sessions say. A PAUSED queued session is activated now; an ACTIVE
// session past its expiry flips to EXPIRED but keeps the station OCCUPIED.
// The agent's reported status is honored only within the live set and only
// when no session occupies the station.
func (a *Agent) Heartbeat(ctx context.Context, in HeartbeatInput) (*HeartbeatResult, error) {
	var result HeartbeatResult
	err := a.store.Atomically(ctx, func(s storage.Store) error {
		st, err := s.Stations().GetForUpdate(ctx, in.StationID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: station %s", ErrNotFound, in.StationID)
			}
			return err
		}

		now := a.now()
		st.LastHeartbeat = &now
		if in.IPAddress != "" {
			st.IPAddress = in.IPAddress
		}

		occupying, err := s.Sessions().ListOccupying(ctx, st.ID)
		if err != nil {
			return err
		}

		var current *models.Session
		for i := range occupying {
			sess := &occupying[i]
			switch sess.Status {
			case models.SessionPaused:
				sess.Status = models.SessionActive
				sess.StartedAt = now
				if sess.IsPaid && sess.DurationSeconds > 0 {
					expires := now.Add(time.Duration(sess.DurationSeconds) * time.Second)
					sess.ExpiresAt = &expires
					sess.DurationSeconds = 0
				}
				if err := s.Sessions().Update(ctx, sess); err != nil {
					return err
				}
				a.logger.Info("queued session activated", zap.String("session_id", sess.ID))
			case models.SessionActive:
				if sess.ExpiresAt != nil && !now.Before(*sess.ExpiresAt) {
					sess.Status = models.SessionExpired
					if err := s.Sessions().Update(ctx, sess); err != nil {
						return err
					}
					a.logger.Info("session expired", zap.String("session_id", sess.ID))
				}
			}
			current = sess
		}

		switch {
		case len(occupying) > 0:
			st.Status = models.StationOccupied
		case isLiveStatus(in.ReportedStatus):
			st.Status = in.ReportedStatus
		case st.IsUnreachable():
			st.Status = models.StationAvailable
		}
		if st.Status == models.StationAvailable {
			if _, err := s.Users().ClearActiveStation(ctx, st.ID); err != nil {
				return err
			}
		}
		if err := s.Stations().Update(ctx, st); err != nil {
			return err
		}

		result = HeartbeatResult{Station: st, Session: current}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.emit(ctx, *result.Station, result.Session)
	return &result, nil
}

// Logout handles the agent reporting that the user walked away. An ACTIVE
// prepaid session past its expiry flips to EXPIRED first; any EXPIRED session
// keeps the station OCCUPIED until an operator settles it. Otherwise the
// station frees up.
func (a *Agent) Logout(ctx context.Context, stationID string) (*models.Station, error) {
	var (
		station *models.Station
		current *models.Session
	)
	err := a.store.Atomically(ctx, func(s storage.Store) error {
		st, err := s.Stations().GetForUpdate(ctx, stationID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: station %s", ErrNotFound, stationID)
			}
			return err
		}

		now := a.now()
		occupying, err := s.Sessions().ListOccupying(ctx, st.ID)
		if err != nil {
			return err
		}

		locked := false
		for i := range occupying {
			sess := &occupying[i]
			if sess.Status == models.SessionActive && sess.ExpiresAt != nil && !now.Before(*sess.ExpiresAt) {
				sess.Status = models.SessionExpired
				if err := s.Sessions().Update(ctx, sess); err != nil {
					return err
				}
			}
			if sess.Status == models.SessionExpired {
				locked = true
				current = sess
			}
		}

		if locked {
			st.Status = models.StationOccupied
		} else {
			st.Status = models.StationAvailable
			if _, err := s.Users().ClearActiveStation(ctx, st.ID); err != nil {
				return err
			}
		}
		if err := s.Stations().Update(ctx, st); err != nil {
			return err
		}
		station = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("station logout", zap.String("station_id", station.ID), zap.String("status", station.Status))
	if station.Status == models.StationAvailable && a.cache != nil {
		if cErr := a.cache.DeleteOccupancy(ctx, station.ID); cErr != nil {
			a.logger.Warn("failed to drop occupancy cache", zap.Error(cErr))
		}
	}
	if a.broadcaster != nil {
		a.broadcaster.Publish(buildSnapshot(*station, current, a.now()), station.FacilityID)
	}
	return station, nil
}

func isLiveStatus(status string) bool {
	switch status {
	case models.StationAvailable, models.StationOccupied, models.StationReserved, models.StationMaintenance:
		return true
	}
	return false
}

func (a *Agent) emit(ctx context.Context, station models.Station, session *models.Session) {
	snap := buildSnapshot(station, session, a.now())
	if a.cache != nil {
		var err error
		if session != nil && session.Occupying() {
			err = a.cache.SaveOccupancy(ctx, snap)
		} else if station.Status == models.StationAvailable {
			err = a.cache.DeleteOccupancy(ctx, station.ID)
		}
		if err != nil {
			a.logger.Warn("occupancy cache update failed", zap.String("station_id", station.ID), zap.Error(err))
		}
	}
	if a.broadcaster != nil {
		a.broadcaster.Publish(snap, station.FacilityID)
	}
}
