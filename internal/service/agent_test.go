package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"lanpulse/internal/models"
	"lanpulse/internal/storage/memory"
)

func newTestAgent(t *testing.T) (*Agent, *memory.Store, *fakeClock) {
	t.Helper()
	store := memory.NewStore()
	store.SeedFacility(models.Facility{ID: "fac-1", Name: "Main Hall"})
	store.SeedZone(models.Zone{ID: "zone-1", FacilityID: "fac-1", Name: "Standard", Position: 0})
	store.SeedZone(models.Zone{ID: "zone-2", FacilityID: "fac-1", Name: "VIP", Position: 1})

	clock := newFakeClock(testStart)
	agent := NewAgent(store, nil, &captureBroadcaster{}, zap.NewNop(), clock.now)
	return agent, store, clock
}

func TestNormalizeMAC(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"aa:bb:cc:dd:ee:01", "AABBCCDDEE01"},
		{"AA-BB-CC-DD-EE-01", "AABBCCDDEE01"},
		{"aabb.ccdd.ee01", "AABBCCDDEE01"},
		{"AABBCCDDEE01", "AABBCCDDEE01"},
	}
	for _, tc := range cases {
		if got := NormalizeMAC(tc.in); got != tc.want {
			t.Errorf("NormalizeMAC(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRegisterCreatesStationInFirstZone(t *testing.T) {
	agent, _, _ := newTestAgent(t)
	ctx := context.Background()

	result, err := agent.Register(ctx, RegisterInput{
		FacilityID: "fac-1", MACAddress: "aa:bb:cc:dd:ee:01", IPAddress: "10.0.0.5", Hostname: "hall-pc-7",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !result.IsNew {
		t.Error("expected new station")
	}
	st := result.Station
	if st.ZoneID != "zone-1" {
		t.Errorf("zone = %s, want first zone", st.ZoneID)
	}
	if st.Name != "hall-pc-7" {
		t.Errorf("name = %s, want hostname", st.Name)
	}
	if st.Status != models.StationAvailable {
		t.Errorf("status = %s, want AVAILABLE", st.Status)
	}
	if st.MACAddress != "AABBCCDDEE01" {
		t.Errorf("mac = %s, want normalized", st.MACAddress)
	}
	if st.LastHeartbeat == nil || !st.LastHeartbeat.Equal(testStart) {
		t.Errorf("last_heartbeat = %v, want registration time", st.LastHeartbeat)
	}
}

func TestRegisterFallbackNameFromMAC(t *testing.T) {
	agent, _, _ := newTestAgent(t)
	ctx := context.Background()

	result, err := agent.Register(ctx, RegisterInput{
		FacilityID: "fac-1", MACAddress: "aa:bb:cc:dd:ee:01", IPAddress: "10.0.0.5",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.Station.Name != "PC-DEE01" {
		t.Errorf("name = %s, want PC-DEE01", result.Station.Name)
	}
}

func TestRegisterRecoversUnreachableStation(t *testing.T) {
	agent, store, _ := newTestAgent(t)
	ctx := context.Background()

	store.SeedStation(models.Station{
		ID: "st-1", Name: "PC-01", MACAddress: "AABBCCDDEE01", IPAddress: "10.0.0.5",
		Status: models.StationMalicious, ZoneID: "zone-1", FacilityID: "fac-1",
	})

	result, err := agent.Register(ctx, RegisterInput{
		FacilityID: "fac-1", MACAddress: "AABBCCDDEE01", IPAddress: "10.0.0.9",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.IsNew {
		t.Error("expected existing station")
	}
	if result.Station.Status != models.StationAvailable {
		t.Errorf("status = %s, want AVAILABLE", result.Station.Status)
	}
	if result.Station.IPAddress != "10.0.0.9" {
		t.Errorf("ip = %s, want refreshed", result.Station.IPAddress)
	}
}

func TestRegisterRecoveryKeepsOccupiedWhenSessionExists(t *testing.T) {
	agent, store, _ := newTestAgent(t)
	ctx := context.Background()

	store.SeedStation(models.Station{
		ID: "st-1", Name: "PC-01", MACAddress: "AABBCCDDEE01",
		Status: models.StationOffline, ZoneID: "zone-1", FacilityID: "fac-1",
	})
	store.SeedSession(models.Session{
		ID: "sess-1", UserID: "u-1", StationID: "st-1", FacilityID: "fac-1",
		Status: models.SessionPaused, PricingType: models.PricingFixed, StartedAt: testStart,
	})

	result, err := agent.Register(ctx, RegisterInput{FacilityID: "fac-1", MACAddress: "AABBCCDDEE01"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.Station.Status != models.StationOccupied {
		t.Errorf("status = %s, want OCCUPIED", result.Station.Status)
	}
}

func TestHeartbeatActivatesQueuedSession(t *testing.T) {
	agent, store, clock := newTestAgent(t)
	ctx := context.Background()

	store.SeedStation(models.Station{
		ID: "st-1", Name: "PC-01", MACAddress: "AABBCCDDEE01",
		Status: models.StationOccupied, ZoneID: "zone-1", FacilityID: "fac-1",
	})
	store.SeedSession(models.Session{
		ID: "sess-1", UserID: "u-1", StationID: "st-1", FacilityID: "fac-1",
		Status: models.SessionPaused, PricingType: models.PricingFixed,
		StartedAt: testStart.Add(-time.Hour), DurationSeconds: 1800, IsPaid: true,
	})

	clock.advance(5 * time.Minute)
	result, err := agent.Heartbeat(ctx, HeartbeatInput{StationID: "st-1", IPAddress: "10.0.0.5"})
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	sess := result.Session
	if sess == nil || sess.Status != models.SessionActive {
		t.Fatalf("session = %+v, want activated", sess)
	}
	if !sess.StartedAt.Equal(clock.now()) {
		t.Errorf("started_at = %v, want activation time", sess.StartedAt)
	}
	if sess.ExpiresAt == nil || !sess.ExpiresAt.Equal(clock.now().Add(30*time.Minute)) {
		t.Errorf("expires_at = %v, want activation+30m", sess.ExpiresAt)
	}
	if sess.DurationSeconds != 0 {
		t.Errorf("duration_seconds = %d, want consumed into expires_at", sess.DurationSeconds)
	}
}

func TestHeartbeatMarksOverrunSessionExpired(t *testing.T) {
	agent, store, clock := newTestAgent(t)
	ctx := context.Background()

	expires := testStart.Add(30 * time.Minute)
	store.SeedStation(models.Station{
		ID: "st-1", Name: "PC-01", MACAddress: "AABBCCDDEE01",
		Status: models.StationOccupied, ZoneID: "zone-1", FacilityID: "fac-1",
	})
	store.SeedSession(models.Session{
		ID: "sess-1", UserID: "u-1", StationID: "st-1", FacilityID: "fac-1",
		Status: models.SessionActive, PricingType: models.PricingFixed,
		StartedAt: testStart, ExpiresAt: &expires, IsPaid: true,
	})

	clock.advance(31 * time.Minute)
	result, err := agent.Heartbeat(ctx, HeartbeatInput{StationID: "st-1"})
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if result.Session == nil || result.Session.Status != models.SessionExpired {
		t.Fatalf("session = %+v, want EXPIRED", result.Session)
	}
	if result.Station.Status != models.StationOccupied {
		t.Errorf("station status = %s, want still OCCUPIED", result.Station.Status)
	}
}

func TestHeartbeatAppliesReportedStatusOnlyWithinLiveSet(t *testing.T) {
	agent, store, _ := newTestAgent(t)
	ctx := context.Background()

	store.SeedStation(models.Station{
		ID: "st-1", Name: "PC-01", MACAddress: "AABBCCDDEE01",
		Status: models.StationAvailable, ZoneID: "zone-1", FacilityID: "fac-1",
	})

	result, err := agent.Heartbeat(ctx, HeartbeatInput{StationID: "st-1", ReportedStatus: models.StationMaintenance})
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if result.Station.Status != models.StationMaintenance {
		t.Errorf("status = %s, want MAINTENANCE", result.Station.Status)
	}

	result, err = agent.Heartbeat(ctx, HeartbeatInput{StationID: "st-1", ReportedStatus: models.StationOffline})
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if result.Station.Status == models.StationOffline {
		t.Error("agent must not be able to report itself OFFLINE")
	}
}

func TestHeartbeatRecoversUnreachableStation(t *testing.T) {
	agent, store, _ := newTestAgent(t)
	ctx := context.Background()

	store.SeedStation(models.Station{
		ID: "st-1", Name: "PC-01", MACAddress: "AABBCCDDEE01",
		Status: models.StationOffline, ZoneID: "zone-1", FacilityID: "fac-1",
	})

	result, err := agent.Heartbeat(ctx, HeartbeatInput{StationID: "st-1", IPAddress: "10.0.0.5"})
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if result.Station.Status != models.StationAvailable {
		t.Errorf("status = %s, want AVAILABLE", result.Station.Status)
	}
}

func TestLogoutKeepsExpiredSessionLocked(t *testing.T) {
	agent, store, clock := newTestAgent(t)
	ctx := context.Background()

	expires := testStart.Add(30 * time.Minute)
	store.SeedStation(models.Station{
		ID: "st-1", Name: "PC-01", MACAddress: "AABBCCDDEE01",
		Status: models.StationOccupied, ZoneID: "zone-1", FacilityID: "fac-1",
	})
	store.SeedSession(models.Session{
		ID: "sess-1", UserID: "u-1", StationID: "st-1", FacilityID: "fac-1",
		Status: models.SessionActive, PricingType: models.PricingFixed,
		StartedAt: testStart, ExpiresAt: &expires, IsPaid: true,
	})

	clock.advance(31 * time.Minute)
	station, err := agent.Logout(ctx, "st-1")
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if station.Status != models.StationOccupied {
		t.Errorf("status = %s, want OCCUPIED until settled", station.Status)
	}
	sess, _ := store.Sessions().Get(ctx, "sess-1")
	if sess.Status != models.SessionExpired {
		t.Errorf("session status = %s, want EXPIRED", sess.Status)
	}
}

func TestLogoutFreesStationWithoutSession(t *testing.T) {
	agent, store, _ := newTestAgent(t)
	ctx := context.Background()

	stID := "st-1"
	store.SeedStation(models.Station{
		ID: stID, Name: "PC-01", MACAddress: "AABBCCDDEE01",
		Status: models.StationOccupied, ZoneID: "zone-1", FacilityID: "fac-1",
	})
	store.SeedUser(models.User{ID: "u-1", Username: "alice", ActiveStationID: &stID})

	station, err := agent.Logout(ctx, stID)
	if err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if station.Status != models.StationAvailable {
		t.Errorf("status = %s, want AVAILABLE", station.Status)
	}
	user, _ := store.Users().Get(ctx, "u-1")
	if user.ActiveStationID != nil {
		t.Errorf("active station = %v, want cleared", user.ActiveStationID)
	}
}
