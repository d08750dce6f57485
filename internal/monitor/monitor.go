package monitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lanpulse/internal/models"
	"lanpulse/internal/service"
	"lanpulse/internal/storage"
)

const (
	defaultScanInterval       = 5 * time.Second
	defaultSweepInterval      = 5 * time.Minute
	defaultHeartbeatThreshold = 20 * time.Second
	initialSweepDelay         = 10 * time.Second
)

// Config tunes the liveness monitor.
type Config struct {
	ScanInterval       time.Duration
	SweepInterval      time.Duration
	HeartbeatThreshold time.Duration
	Now                func() time.Time
}

// Monitor watches station liveness. A fast scan demotes live stations whose
// heartbeats went silent, distinguishing a dead host (OFFLINE) from one that
// still answers probes with its agent killed (MALICIOUS). A slower sweep
// re-probes the unreachable set so stations move between those two states as
// the network picture changes.
type Monitor struct {
	store       storage.Store
	probe       ProbeFunc
	broadcaster service.Broadcaster
	logger      *zap.Logger

	scanInterval       time.Duration
	sweepInterval      time.Duration
	heartbeatThreshold time.Duration
	now                func() time.Time
}

// New builds the monitor. Broadcaster may be nil.
func New(store storage.Store, probe ProbeFunc, broadcaster service.Broadcaster, logger *zap.Logger, cfg Config) *Monitor {
	m := &Monitor{
		store:              store,
		probe:              probe,
		broadcaster:        broadcaster,
		logger:             logger,
		scanInterval:       cfg.ScanInterval,
		sweepInterval:      cfg.SweepInterval,
		heartbeatThreshold: cfg.HeartbeatThreshold,
		now:                cfg.Now,
	}
	if m.scanInterval <= 0 {
		m.scanInterval = defaultScanInterval
	}
	if m.sweepInterval <= 0 {
		m.sweepInterval = defaultSweepInterval
	}
	if m.heartbeatThreshold <= 0 {
		m.heartbeatThreshold = defaultHeartbeatThreshold
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Run drives both loops until the context is canceled. An early sweep runs
// shortly after start so stale unreachable rows from a previous run get
// re-probed without waiting a full sweep interval.
func (m *Monitor) Run(ctx context.Context) {
	scan := time.NewTicker(m.scanInterval)
	defer scan.Stop()
	sweep := time.NewTicker(m.sweepInterval)
	defer sweep.Stop()
	initial := time.NewTimer(initialSweepDelay)
	defer initial.Stop()

	m.logger.Info("liveness monitor started",
		zap.Duration("scan_interval", m.scanInterval),
		zap.Duration("sweep_interval", m.sweepInterval),
	)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("liveness monitor stopped")
			return
		case <-initial.C:
			m.sweepOnce(ctx)
		case <-scan.C:
			m.scanOnce(ctx)
		case <-sweep.C:
			m.sweepOnce(ctx)
		}
	}
}

// scanOnce demotes live stations whose heartbeat is older than the threshold.
func (m *Monitor) scanOnce(ctx context.Context) {
	stations, err := m.store.Stations().ListLive(ctx)
	if err != nil {
		m.logger.Error("liveness scan: list stations", zap.Error(err))
		return
	}

	now := m.now()
	for i := range stations {
		st := &stations[i]
		if st.LastHeartbeat != nil && now.Sub(*st.LastHeartbeat) <= m.heartbeatThreshold {
			continue
		}
		if st.LastHeartbeat == nil {
			// Never registered a heartbeat; nothing to judge silence against.
			continue
		}

		next := models.StationOffline
		if m.probe(ctx, st.IPAddress) {
			next = models.StationMalicious
		}
		if err := m.transition(ctx, st.ID, next); err != nil {
			m.logger.Error("liveness scan: transition",
				zap.String("station_id", st.ID), zap.Error(err))
		}
	}
}

// sweepOnce re-probes the unreachable set and swaps OFFLINE and MALICIOUS
// where the probe result contradicts the stored state.
func (m *Monitor) sweepOnce(ctx context.Context) {
	stations, err := m.store.Stations().ListUnreachable(ctx)
	if err != nil {
		m.logger.Error("zombie sweep: list stations", zap.Error(err))
		return
	}

	for i := range stations {
		st := &stations[i]
		reachable := m.probe(ctx, st.IPAddress)

		var next string
		switch {
		case st.Status == models.StationOffline && reachable:
			next = models.StationMalicious
		case st.Status == models.StationMalicious && !reachable:
			next = models.StationOffline
		default:
			continue
		}
		if err := m.transition(ctx, st.ID, next); err != nil {
			m.logger.Error("zombie sweep: transition",
				zap.String("station_id", st.ID), zap.Error(err))
		}
	}
}

// transition re-reads the station under lock, applies the new status if it is
// still warranted, and publishes the snapshot.
func (m *Monitor) transition(ctx context.Context, stationID, next string) error {
	var (
		station *models.Station
		session *models.Session
		changed bool
	)
	err := m.store.Atomically(ctx, func(s storage.Store) error {
		st, err := s.Stations().GetForUpdate(ctx, stationID)
		if err != nil {
			return err
		}
		if st.Status == next {
			return nil
		}
		// A heartbeat that landed between listing and locking wins.
		if next == models.StationOffline || next == models.StationMalicious {
			if st.IsLive() && st.LastHeartbeat != nil && m.now().Sub(*st.LastHeartbeat) <= m.heartbeatThreshold {
				return nil
			}
		}

		prev := st.Status
		st.Status = next
		if err := s.Stations().Update(ctx, st); err != nil {
			return err
		}

		occupying, err := s.Sessions().ListOccupying(ctx, st.ID)
		if err != nil {
			return err
		}
		if len(occupying) > 0 {
			session = &occupying[0]
		}

		station = st
		changed = true
		m.logger.Warn("station liveness transition",
			zap.String("station_id", st.ID),
			zap.String("from", prev),
			zap.String("to", next),
		)
		return nil
	})
	if err != nil {
		return err
	}
	if changed && m.broadcaster != nil {
		m.broadcaster.Publish(models.StationSnapshot{
			Station:   *station,
			Session:   session,
			EmittedAt: m.now(),
		}, station.FacilityID)
	}
	return nil
}
