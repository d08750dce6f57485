package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"lanpulse/internal/models"
	"lanpulse/internal/storage/memory"
)

var scanStart = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

type recordingBroadcaster struct {
	mu        sync.Mutex
	snapshots []models.StationSnapshot
}

func (b *recordingBroadcaster) Publish(snapshot models.StationSnapshot, facilityID string) {
	b.mu.Lock()
	b.snapshots = append(b.snapshots, snapshot)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.snapshots)
}

func seedStation(store *memory.Store, id, status string, heartbeatAge time.Duration) {
	hb := scanStart.Add(-heartbeatAge)
	store.SeedStation(models.Station{
		ID: id, Name: id, MACAddress: "MAC" + id, IPAddress: "10.0.0.1",
		Status: status, ZoneID: "zone-1", FacilityID: "fac-1", LastHeartbeat: &hb,
	})
}

func newTestMonitor(store *memory.Store, probe ProbeFunc) (*Monitor, *recordingBroadcaster) {
	broadcaster := &recordingBroadcaster{}
	m := New(store, probe, broadcaster, zap.NewNop(), Config{
		HeartbeatThreshold: 20 * time.Second,
		Now:                func() time.Time { return scanStart },
	})
	return m, broadcaster
}

func TestScanDemotesSilentUnreachableToOffline(t *testing.T) {
	store := memory.NewStore()
	seedStation(store, "st-1", models.StationAvailable, 30*time.Second)

	m, broadcaster := newTestMonitor(store, func(context.Context, string) bool { return false })
	m.scanOnce(context.Background())

	st, _ := store.Stations().Get(context.Background(), "st-1")
	if st.Status != models.StationOffline {
		t.Errorf("status = %s, want OFFLINE", st.Status)
	}
	if broadcaster.count() != 1 {
		t.Errorf("published %d snapshots, want 1", broadcaster.count())
	}
}

func TestScanDemotesSilentReachableToMalicious(t *testing.T) {
	store := memory.NewStore()
	seedStation(store, "st-1", models.StationOccupied, 30*time.Second)

	m, _ := newTestMonitor(store, func(context.Context, string) bool { return true })
	m.scanOnce(context.Background())

	st, _ := store.Stations().Get(context.Background(), "st-1")
	if st.Status != models.StationMalicious {
		t.Errorf("status = %s, want MALICIOUS", st.Status)
	}
}

func TestScanLeavesFreshHeartbeatsAlone(t *testing.T) {
	store := memory.NewStore()
	seedStation(store, "st-1", models.StationAvailable, 10*time.Second)

	probed := false
	m, broadcaster := newTestMonitor(store, func(context.Context, string) bool {
		probed = true
		return false
	})
	m.scanOnce(context.Background())

	st, _ := store.Stations().Get(context.Background(), "st-1")
	if st.Status != models.StationAvailable {
		t.Errorf("status = %s, want AVAILABLE", st.Status)
	}
	if probed {
		t.Error("fresh station should not be probed")
	}
	if broadcaster.count() != 0 {
		t.Errorf("published %d snapshots, want 0", broadcaster.count())
	}
}

func TestSweepPromotesReachableOfflineToMalicious(t *testing.T) {
	store := memory.NewStore()
	seedStation(store, "st-1", models.StationOffline, time.Hour)

	m, _ := newTestMonitor(store, func(context.Context, string) bool { return true })
	m.sweepOnce(context.Background())

	st, _ := store.Stations().Get(context.Background(), "st-1")
	if st.Status != models.StationMalicious {
		t.Errorf("status = %s, want MALICIOUS", st.Status)
	}
}

func TestSweepDemotesUnreachableMaliciousToOffline(t *testing.T) {
	store := memory.NewStore()
	seedStation(store, "st-1", models.StationMalicious, time.Hour)

	m, _ := newTestMonitor(store, func(context.Context, string) bool { return false })
	m.sweepOnce(context.Background())

	st, _ := store.Stations().Get(context.Background(), "st-1")
	if st.Status != models.StationOffline {
		t.Errorf("status = %s, want OFFLINE", st.Status)
	}
}

func TestSweepKeepsStatesMatchingProbe(t *testing.T) {
	store := memory.NewStore()
	seedStation(store, "st-off", models.StationOffline, time.Hour)
	seedStation(store, "st-mal", models.StationMalicious, time.Hour)

	m, broadcaster := newTestMonitor(store, func(_ context.Context, addr string) bool {
		return false
	})
	// st-off stays OFFLINE (still unreachable); st-mal flips to OFFLINE.
	m.sweepOnce(context.Background())

	off, _ := store.Stations().Get(context.Background(), "st-off")
	if off.Status != models.StationOffline {
		t.Errorf("st-off status = %s, want OFFLINE", off.Status)
	}
	mal, _ := store.Stations().Get(context.Background(), "st-mal")
	if mal.Status != models.StationOffline {
		t.Errorf("st-mal status = %s, want OFFLINE", mal.Status)
	}
	if broadcaster.count() != 1 {
		t.Errorf("published %d snapshots, want 1", broadcaster.count())
	}
}

func TestScanDemotesEverySilentStation(t *testing.T) {
	store := memory.NewStore()
	seedStation(store, "st-1", models.StationAvailable, 30*time.Second)
	seedStation(store, "st-2", models.StationAvailable, 30*time.Second)

	m, _ := newTestMonitor(store, func(context.Context, string) bool { return false })
	m.scanOnce(context.Background())

	for _, id := range []string{"st-1", "st-2"} {
		st, _ := store.Stations().Get(context.Background(), id)
		if st.Status != models.StationOffline {
			t.Errorf("%s status = %s, want OFFLINE", id, st.Status)
		}
	}
}
