// Package memory provides an in-memory storage.Store used by tests. Atomically
// snapshots the data set and restores it when fn fails, so error paths leave no
// partial effect, matching the transactional guarantees of the SQL store.
package memory

import (
	"context"
	"sort"
	"sync"

	"lanpulse/internal/models"
	"lanpulse/internal/storage"
)

// Store is an in-memory storage.Store.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	stations   map[string]models.Station
	sessions   map[string]models.Session
	users      map[string]models.User
	ledger     []models.LedgerEntry
	tiers      []models.RateTier
	bundles    map[string]models.Bundle
	facilities map[string]models.Facility
	zones      []models.Zone
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		stations:   make(map[string]models.Station),
		sessions:   make(map[string]models.Session),
		users:      make(map[string]models.User),
		bundles:    make(map[string]models.Bundle),
		facilities: make(map[string]models.Facility),
	}
}

func (s *Store) Stations() storage.StationStore { return stationRepo{s} }
func (s *Store) Sessions() storage.SessionStore { return sessionRepo{s} }
func (s *Store) Users() storage.UserStore       { return userRepo{s} }
func (s *Store) Ledger() storage.LedgerStore    { return ledgerRepo{s} }
func (s *Store) Catalog() storage.CatalogStore  { return catalogRepo{s} }

type snapshot struct {
	stations map[string]models.Station
	sessions map[string]models.Session
	users    map[string]models.User
	ledger   []models.LedgerEntry
}

// Atomically serializes transactions and rolls mutable state back when fn
// returns an error. The catalog is read-only and not part of the snapshot.
func (s *Store) Atomically(ctx context.Context, fn func(storage.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := snapshot{
		stations: copyMap(s.stations),
		sessions: copyMap(s.sessions),
		users:    copyMap(s.users),
		ledger:   append([]models.LedgerEntry(nil), s.ledger...),
	}
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.stations = snap.stations
		s.sessions = snap.sessions
		s.users = snap.users
		s.ledger = snap.ledger
		s.mu.Unlock()
		return err
	}
	return nil
}

func copyMap[V any](src map[string]V) map[string]V {
	dst := make(map[string]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Seed helpers for tests.

func (s *Store) SeedFacility(f models.Facility) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facilities[f.ID] = f
}

func (s *Store) SeedZone(z models.Zone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones = append(s.zones, z)
}

func (s *Store) SeedTier(t models.RateTier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers = append(s.tiers, t)
}

func (s *Store) SeedBundle(b models.Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[b.ID] = b
}

func (s *Store) SeedStation(st models.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations[st.ID] = st
}

func (s *Store) SeedUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) SeedSession(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *Store) SeedLedgerEntry(e models.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = append(s.ledger, e)
}

// stationRepo

type stationRepo struct{ s *Store }

func (r stationRepo) Get(ctx context.Context, id string) (*models.Station, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &st, nil
}

func (r stationRepo) GetForUpdate(ctx context.Context, id string) (*models.Station, error) {
	return r.Get(ctx, id)
}

func (r stationRepo) GetByMAC(ctx context.Context, mac string) (*models.Station, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.stations {
		if st.MACAddress == mac {
			stCopy := st
			return &stCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r stationRepo) Create(ctx context.Context, station *models.Station) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stations[station.ID] = *station
	return nil
}

func (r stationRepo) Update(ctx context.Context, station *models.Station) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.stations[station.ID]; !ok {
		return storage.ErrNotFound
	}
	r.s.stations[station.ID] = *station
	return nil
}

func (r stationRepo) ListLive(ctx context.Context) ([]models.Station, error) {
	return r.list(func(st models.Station) bool { return st.IsLive() })
}

func (r stationRepo) ListUnreachable(ctx context.Context) ([]models.Station, error) {
	return r.list(func(st models.Station) bool { return st.IsUnreachable() && st.IPAddress != "" })
}

func (r stationRepo) list(keep func(models.Station) bool) ([]models.Station, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Station
	for _, st := range r.s.stations {
		if keep(st) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// sessionRepo

type sessionRepo struct{ s *Store }

func (r sessionRepo) Get(ctx context.Context, id string) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &sess, nil
}

func (r sessionRepo) GetForUpdate(ctx context.Context, id string) (*models.Session, error) {
	return r.Get(ctx, id)
}

func (r sessionRepo) Create(ctx context.Context, session *models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[session.ID] = *session
	return nil
}

func (r sessionRepo) Update(ctx context.Context, session *models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sessions[session.ID]; !ok {
		return storage.ErrNotFound
	}
	r.s.sessions[session.ID] = *session
	return nil
}

func (r sessionRepo) ListOccupying(ctx context.Context, stationID string) ([]models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Session
	for _, sess := range r.s.sessions {
		if sess.StationID == stationID && sess.Occupying() {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (r sessionRepo) UserOccupying(ctx context.Context, userID string) (*models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sess := range r.s.sessions {
		if sess.UserID == userID && sess.Occupying() {
			sessCopy := sess
			return &sessCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

// userRepo

type userRepo struct{ s *Store }

func (r userRepo) Get(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) GetForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.Get(ctx, id)
}

func (r userRepo) GetByActiveStation(ctx context.Context, stationID string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.ActiveStationID != nil && *u.ActiveStationID == stationID {
			uCopy := u
			return &uCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) Update(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return storage.ErrNotFound
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) ClearActiveStation(ctx context.Context, stationID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cleared := 0
	for id, u := range r.s.users {
		if u.ActiveStationID != nil && *u.ActiveStationID == stationID {
			u.ActiveStationID = nil
			r.s.users[id] = u
			cleared++
		}
	}
	return cleared, nil
}

// ledgerRepo

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) Create(ctx context.Context, entry *models.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.ledger = append(r.s.ledger, *entry)
	return nil
}

func (r ledgerRepo) ListBySession(ctx context.Context, sessionID string) ([]models.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.LedgerEntry
	for i := len(r.s.ledger) - 1; i >= 0; i-- {
		e := r.s.ledger[i]
		if e.SessionID != nil && *e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r ledgerRepo) LastSessionPayment(ctx context.Context, sessionID string) (*models.LedgerEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.ledger) - 1; i >= 0; i-- {
		e := r.s.ledger[i]
		if e.SessionID != nil && *e.SessionID == sessionID && e.Type == models.LedgerSessionPayment && !e.Refunded {
			return &e, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r ledgerRepo) CountSessionPayments(ctx context.Context, sessionID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, e := range r.s.ledger {
		if e.SessionID != nil && *e.SessionID == sessionID && e.Type == models.LedgerSessionPayment && !e.Refunded {
			count++
		}
	}
	return count, nil
}

func (r ledgerRepo) MarkRefunded(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.ledger {
		if r.s.ledger[i].ID == id {
			r.s.ledger[i].Refunded = true
			return nil
		}
	}
	return storage.ErrNotFound
}

// catalogRepo

type catalogRepo struct{ s *Store }

func (r catalogRepo) ActiveTiers(ctx context.Context, zoneID string) ([]models.RateTier, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.RateTier
	for _, t := range r.s.tiers {
		if t.ZoneID == zoneID && t.IsActive {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Minutes < out[j].Minutes })
	return out, nil
}

func (r catalogRepo) GetBundle(ctx context.Context, id string) (*models.Bundle, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bundles[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &b, nil
}

func (r catalogRepo) GetFacility(ctx context.Context, id string) (*models.Facility, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f, ok := r.s.facilities[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &f, nil
}

func (r catalogRepo) FirstZone(ctx context.Context, facilityID string) (*models.Zone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *models.Zone
	for i := range r.s.zones {
		z := r.s.zones[i]
		if z.FacilityID != facilityID {
			continue
		}
		if best == nil || z.Position < best.Position {
			zCopy := z
			best = &zCopy
		}
	}
	if best == nil {
		return nil, storage.ErrNotFound
	}
	return best, nil
}

func (r catalogRepo) GetZone(ctx context.Context, id string) (*models.Zone, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, z := range r.s.zones {
		if z.ID == id {
			zCopy := z
			return &zCopy, nil
		}
	}
	return nil, storage.ErrNotFound
}
