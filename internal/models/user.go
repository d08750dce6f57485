package models

import "time"

// User is a billed account. Guests are real rows provisioned on demand,
// flagged explicitly instead of being recognized by naming convention.
type User struct {
	ID              string    `db:"id" json:"id"`
	Username        string    `db:"username" json:"username"`
	PasswordHash    string    `db:"password_hash" json:"-"`
	Balance         Money     `db:"balance" json:"balance"`
	IsGuest         bool      `db:"is_guest" json:"is_guest"`
	ActiveStationID *string   `db:"active_station_id" json:"active_station_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
