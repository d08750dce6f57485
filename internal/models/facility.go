package models

import "time"

// Facility is one pay-per-use location. Managed externally; the engine only
// scopes stations and broadcasts by it.
type Facility struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
