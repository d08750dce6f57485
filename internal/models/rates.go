package models

import "time"

// RateTier is one (minute threshold, price) step of a zone's schedule.
// Billing rounds elapsed minutes up to the first tier whose threshold covers
// them; beyond the highest tier the highest price applies.
type RateTier struct {
	ID        string    `db:"id" json:"id"`
	ZoneID    string    `db:"zone_id" json:"zone_id"`
	Minutes   int       `db:"minutes" json:"minutes"`
	Price     Money     `db:"price" json:"price"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Bundle is a fixed (minutes, price) package sold per zone.
type Bundle struct {
	ID        string    `db:"id" json:"id"`
	ZoneID    string    `db:"zone_id" json:"zone_id"`
	Name      string    `db:"name" json:"name"`
	Minutes   int       `db:"minutes" json:"minutes"`
	Price     Money     `db:"price" json:"price"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Zone groups stations inside a facility and owns the rate catalog.
type Zone struct {
	ID         string    `db:"id" json:"id"`
	FacilityID string    `db:"facility_id" json:"facility_id"`
	Name       string    `db:"name" json:"name"`
	Position   int       `db:"position" json:"position"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
