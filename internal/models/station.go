package models

import "time"

// Station status values. OFFLINE and MALICIOUS are written only by the
// liveness monitor; OCCUPIED is forced whenever an occupying session exists.
const (
	StationAvailable   = "AVAILABLE"
	StationOccupied    = "OCCUPIED"
	StationReserved    = "RESERVED"
	StationMaintenance = "MAINTENANCE"
	StationOffline     = "OFFLINE"
	StationMalicious   = "MALICIOUS"
)

// Station is a monitored computer available for billed occupancy.
type Station struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	MACAddress    string     `db:"mac_address" json:"mac_address"`
	IPAddress     string     `db:"ip_address" json:"ip_address"`
	Hostname      string     `db:"hostname" json:"hostname"`
	Status        string     `db:"status" json:"status"`
	ZoneID        string     `db:"zone_id" json:"zone_id"`
	FacilityID    string     `db:"facility_id" json:"facility_id"`
	LastHeartbeat *time.Time `db:"last_heartbeat" json:"last_heartbeat,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// IsLive reports whether the station is in a heartbeat-monitored state.
func (s *Station) IsLive() bool {
	switch s.Status {
	case StationAvailable, StationOccupied, StationReserved, StationMaintenance:
		return true
	}
	return false
}

// IsUnreachable reports whether the station is considered down or compromised.
func (s *Station) IsUnreachable() bool {
	return s.Status == StationOffline || s.Status == StationMalicious
}

// StationSnapshot is what the broadcaster publishes after every transition.
type StationSnapshot struct {
	Station   Station   `json:"station"`
	Session   *Session  `json:"session,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}
