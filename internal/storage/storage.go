package storage

import (
	"context"
	"errors"

	"lanpulse/internal/models"
)

// ErrNotFound indicates a missing row. Services translate it into their own
// error taxonomy at the boundary.
var ErrNotFound = errors.New("storage: not found")

// Store gives access to all repositories plus a transactional boundary.
// Atomically runs fn against a store bound to a single transaction; every
// mutation inside either commits as one unit or leaves no trace.
type Store interface {
	Stations() StationStore
	Sessions() SessionStore
	Users() UserStore
	Ledger() LedgerStore
	Catalog() CatalogStore

	Atomically(ctx context.Context, fn func(Store) error) error
}

// StationStore persists stations. GetForUpdate locks the row for the duration
// of the enclosing transaction; occupancy decisions must read through it.
type StationStore interface {
	Get(ctx context.Context, id string) (*models.Station, error)
	GetForUpdate(ctx context.Context, id string) (*models.Station, error)
	GetByMAC(ctx context.Context, mac string) (*models.Station, error)
	Create(ctx context.Context, station *models.Station) error
	Update(ctx context.Context, station *models.Station) error
	ListLive(ctx context.Context) ([]models.Station, error)
	ListUnreachable(ctx context.Context) ([]models.Station, error)
}

// SessionStore persists sessions. UserOccupying and ListOccupying consider the
// occupying set {ACTIVE, PAUSED, EXPIRED}.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	GetForUpdate(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	ListOccupying(ctx context.Context, stationID string) ([]models.Session, error)
	UserOccupying(ctx context.Context, userID string) (*models.Session, error)
}

// UserStore persists accounts and the occupied-station back-reference.
type UserStore interface {
	Get(ctx context.Context, id string) (*models.User, error)
	GetForUpdate(ctx context.Context, id string) (*models.User, error)
	GetByActiveStation(ctx context.Context, stationID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	ClearActiveStation(ctx context.Context, stationID string) (int, error)
}

// LedgerStore records immutable balance mutations. Entries are never updated
// except for the Refunded flag, which guards against double undo.
type LedgerStore interface {
	Create(ctx context.Context, entry *models.LedgerEntry) error
	ListBySession(ctx context.Context, sessionID string) ([]models.LedgerEntry, error)
	LastSessionPayment(ctx context.Context, sessionID string) (*models.LedgerEntry, error)
	CountSessionPayments(ctx context.Context, sessionID string) (int, error)
	MarkRefunded(ctx context.Context, id string) error
}

// CatalogStore is the read-only rate/bundle catalog and facility topology this
// engine consumes; authoring lives elsewhere.
type CatalogStore interface {
	ActiveTiers(ctx context.Context, zoneID string) ([]models.RateTier, error)
	GetBundle(ctx context.Context, id string) (*models.Bundle, error)
	GetFacility(ctx context.Context, id string) (*models.Facility, error)
	FirstZone(ctx context.Context, facilityID string) (*models.Zone, error)
	GetZone(ctx context.Context, id string) (*models.Zone, error)
}
