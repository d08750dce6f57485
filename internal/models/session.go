package models

import "time"

// Session status values. ACTIVE, PAUSED and EXPIRED all occupy the station;
// EXPIRED is a billing/display state, not a vacancy.
const (
	SessionActive    = "ACTIVE"
	SessionPaused    = "PAUSED"
	SessionExpired   = "EXPIRED"
	SessionCompleted = "COMPLETED"
	SessionAborted   = "ABORTED"
)

// Pricing types.
const (
	PricingOpen   = "OPEN"
	PricingBundle = "BUNDLE"
	PricingFixed  = "FIXED"
)

// Session is one billed occupancy of a station by a user.
type Session struct {
	ID              string     `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"user_id"`
	StationID       string     `db:"station_id" json:"station_id"`
	FacilityID      string     `db:"facility_id" json:"facility_id"`
	Status          string     `db:"status" json:"status"`
	PricingType     string     `db:"pricing_type" json:"pricing_type"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	EndedAt         *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	ExpiresAt       *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	DurationSeconds int64      `db:"duration_seconds" json:"duration_seconds"`
	TotalCost       Money      `db:"total_cost" json:"total_cost"`
	IsPaid          bool       `db:"is_paid" json:"is_paid"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Occupying reports whether the session keeps its station non-available.
func (s *Session) Occupying() bool {
	switch s.Status {
	case SessionActive, SessionPaused, SessionExpired:
		return true
	}
	return false
}

// Finished reports whether the session reached a terminal state.
func (s *Session) Finished() bool {
	return s.Status == SessionCompleted || s.Status == SessionAborted
}
