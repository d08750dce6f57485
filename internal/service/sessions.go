package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lanpulse/internal/auth"
	"lanpulse/internal/models"
	"lanpulse/internal/storage"
)

const defaultUndoWindow = 2 * time.Minute

// EngineConfig tunes the session engine.
type EngineConfig struct {
	UndoWindow time.Duration
	Now        func() time.Time
}

// Engine runs the session lifecycle: start, extend, end, undo. Every operation
// executes as a single atomic unit spanning station, session, user balance and
// ledger, then emits a facility-scoped snapshot.
type Engine struct {
	store       storage.Store
	ledger      *Ledger
	cache       OccupancyCache
	broadcaster Broadcaster
	hasher      auth.Hasher
	logger      *zap.Logger
	now         func() time.Time
	undoWindow  time.Duration
}

// NewEngine builds the engine. Cache and broadcaster may be nil.
func NewEngine(store storage.Store, ledger *Ledger, cache OccupancyCache, broadcaster Broadcaster, logger *zap.Logger, cfg EngineConfig) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	undoWindow := cfg.UndoWindow
	if undoWindow <= 0 {
		undoWindow = defaultUndoWindow
	}
	return &Engine{
		store:       store,
		ledger:      ledger,
		cache:       cache,
		broadcaster: broadcaster,
		hasher:      auth.NewBcryptHasher(0),
		logger:      logger,
		now:         now,
		undoWindow:  undoWindow,
	}
}

// StartInput describes a session start request.
type StartInput struct {
	StationID   string
	PricingType string
	BundleID    string
	Minutes     int
	UserID      string // optional explicit target; empty means station's user or a fresh guest
}

// ExtendInput describes a session extension request.
type ExtendInput struct {
	SessionID   string
	PricingType string
	BundleID    string
	Minutes     int
}

// Start creates a session on the station. On an unreachable station the
// session is queued PAUSED with its intended duration stored; otherwise it
// starts ACTIVE. Prepaid pricing is debited up front, guests auto-recharge
// their exact shortfall as a cash payment.
func (e *Engine) Start(ctx context.Context, in StartInput) (*models.Session, error) {
	if in.PricingType != models.PricingOpen && in.PricingType != models.PricingBundle && in.PricingType != models.PricingFixed {
		return nil, fmt.Errorf("%w: unknown pricing type %q", ErrInvalidState, in.PricingType)
	}

	var (
		session *models.Session
		station *models.Station
	)
	err := e.store.Atomically(ctx, func(s storage.Store) error {
		st, err := s.Stations().GetForUpdate(ctx, in.StationID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: station %s", ErrNotFound, in.StationID)
			}
			return err
		}

		if st.Status != models.StationAvailable && !st.IsUnreachable() {
			return fmt.Errorf("%w: station is %s", ErrInvalidState, st.Status)
		}

		// An unreachable station may still hold a queued session; the status
		// alone does not prove vacancy.
		occupying, err := s.Sessions().ListOccupying(ctx, st.ID)
		if err != nil {
			return err
		}
		if len(occupying) > 0 {
			return fmt.Errorf("%w: station already has an occupying session", ErrConflict)
		}

		user, err := e.resolveTargetUser(ctx, s, st, in.UserID)
		if err != nil {
			return err
		}

		if _, err := s.Sessions().UserOccupying(ctx, user.ID); err == nil {
			return ErrConflict
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		cost, minutes, prepaid, err := e.price(ctx, s, st.ZoneID, in.PricingType, in.BundleID, in.Minutes)
		if err != nil {
			return err
		}

		now := e.now()
		status := models.SessionActive
		if st.IsUnreachable() {
			status = models.SessionPaused
		}

		sess := &models.Session{
			ID:          uuid.NewString(),
			UserID:      user.ID,
			StationID:   st.ID,
			FacilityID:  st.FacilityID,
			Status:      status,
			PricingType: in.PricingType,
			StartedAt:   now,
			IsPaid:      prepaid,
		}
		if prepaid {
			if status == models.SessionActive {
				expires := now.Add(time.Duration(minutes) * time.Minute)
				sess.ExpiresAt = &expires
			} else {
				sess.DurationSeconds = int64(minutes) * 60
			}
		}

		if prepaid && cost > 0 {
			if err := e.debit(ctx, s, user, sess, cost, minutes, now,
				fmt.Sprintf("Session payment (%s) - %d min", in.PricingType, minutes)); err != nil {
				return err
			}
			sess.TotalCost = cost
		}

		if err := s.Sessions().Create(ctx, sess); err != nil {
			return err
		}

		st.Status = models.StationOccupied
		if err := s.Stations().Update(ctx, st); err != nil {
			return err
		}

		// Re-read: the debit above may have rewritten the user row.
		fresh, err := s.Users().Get(ctx, user.ID)
		if err != nil {
			return err
		}
		fresh.ActiveStationID = &st.ID
		if err := s.Users().Update(ctx, fresh); err != nil {
			return err
		}

		session = sess
		station = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("session started",
		zap.String("session_id", session.ID),
		zap.String("station_id", station.ID),
		zap.String("status", session.Status),
		zap.String("pricing_type", session.PricingType),
		zap.String("total_cost", session.TotalCost.String()),
	)
	e.publish(ctx, *station, session)
	return session, nil
}

// Extend adds billed time to an ACTIVE or PAUSED session.
func (e *Engine) Extend(ctx context.Context, in ExtendInput) (*models.Session, error) {
	if in.PricingType != models.PricingBundle && in.PricingType != models.PricingFixed {
		return nil, fmt.Errorf("%w: sessions can only be extended with BUNDLE or FIXED pricing", ErrInvalidState)
	}

	var (
		session *models.Session
		station *models.Station
	)
	err := e.store.Atomically(ctx, func(s storage.Store) error {
		sess, err := s.Sessions().GetForUpdate(ctx, in.SessionID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: session %s", ErrNotFound, in.SessionID)
			}
			return err
		}
		if sess.Status != models.SessionActive && sess.Status != models.SessionPaused {
			return fmt.Errorf("%w: only active or paused sessions can be extended", ErrInvalidState)
		}

		st, err := s.Stations().Get(ctx, sess.StationID)
		if err != nil {
			return err
		}

		cost, minutes, _, err := e.price(ctx, s, st.ZoneID, in.PricingType, in.BundleID, in.Minutes)
		if err != nil {
			return err
		}

		user, err := s.Users().GetForUpdate(ctx, sess.UserID)
		if err != nil {
			return err
		}

		now := e.now()
		if err := e.debit(ctx, s, user, sess, cost, minutes, now,
			fmt.Sprintf("Time extension (%d min)", minutes)); err != nil {
			return err
		}

		added := time.Duration(minutes) * time.Minute
		sess.TotalCost += cost
		if sess.Status == models.SessionPaused {
			sess.DurationSeconds += int64(minutes) * 60
		} else if sess.ExpiresAt != nil {
			expires := sess.ExpiresAt.Add(added)
			sess.ExpiresAt = &expires
		} else {
			expires := now.Add(added)
			sess.ExpiresAt = &expires
		}
		if err := s.Sessions().Update(ctx, sess); err != nil {
			return err
		}

		session = sess
		station = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("session extended",
		zap.String("session_id", session.ID),
		zap.String("total_cost", session.TotalCost.String()),
	)
	e.publish(ctx, *station, session)
	return session, nil
}

// End finalizes an ACTIVE or EXPIRED session. Prepaid sessions are never
// charged again; OPEN sessions are priced now from elapsed ceiling minutes.
// The station returns to AVAILABLE and the user's back-reference is cleared.
func (e *Engine) End(ctx context.Context, sessionID string) (*models.Session, error) {
	var (
		session *models.Session
		station *models.Station
	)
	err := e.store.Atomically(ctx, func(s storage.Store) error {
		sess, err := s.Sessions().GetForUpdate(ctx, sessionID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
			}
			return err
		}
		if sess.Status != models.SessionActive && sess.Status != models.SessionExpired {
			return fmt.Errorf("%w: session is %s", ErrInvalidState, sess.Status)
		}

		now := e.now()
		endTime := now
		if sess.Status == models.SessionExpired && sess.ExpiresAt != nil && sess.ExpiresAt.Before(endTime) {
			endTime = *sess.ExpiresAt
		}
		elapsed := int64(endTime.Sub(sess.StartedAt) / time.Second)
		if elapsed < 0 {
			elapsed = 0
		}

		if !sess.IsPaid {
			minutes := ceilMinutes(elapsed)
			st, err := s.Stations().Get(ctx, sess.StationID)
			if err != nil {
				return err
			}
			cost, _, err := PriceForMinutes(ctx, s.Catalog(), st.ZoneID, minutes)
			if err != nil {
				return err
			}
			user, err := s.Users().GetForUpdate(ctx, sess.UserID)
			if err != nil {
				return err
			}
			if err := e.debit(ctx, s, user, sess, cost, minutes, now,
				fmt.Sprintf("Session payment (OPEN) - %d min", minutes)); err != nil {
				return err
			}
			sess.TotalCost = cost
		}

		sess.Status = models.SessionCompleted
		sess.EndedAt = &now
		sess.DurationSeconds = elapsed
		if err := s.Sessions().Update(ctx, sess); err != nil {
			return err
		}

		st, err := s.Stations().GetForUpdate(ctx, sess.StationID)
		if err != nil {
			return err
		}
		st.Status = models.StationAvailable
		if err := s.Stations().Update(ctx, st); err != nil {
			return err
		}
		if _, err := s.Users().ClearActiveStation(ctx, st.ID); err != nil {
			return err
		}

		session = sess
		station = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("session ended",
		zap.String("session_id", session.ID),
		zap.Int64("duration_seconds", session.DurationSeconds),
		zap.String("total_cost", session.TotalCost.String()),
	)
	if e.cache != nil {
		if cErr := e.cache.DeleteOccupancy(ctx, station.ID); cErr != nil {
			e.logger.Warn("failed to drop occupancy cache", zap.Error(cErr))
		}
	}
	if e.broadcaster != nil {
		e.broadcaster.Publish(buildSnapshot(*station, nil, e.now()), station.FacilityID)
	}
	return session, nil
}

// Undo reverses the most recent payment of a still-open session, within the
// undo window. A session with a single payment entry is aborted outright;
// otherwise the last extension is reverted using the entry's structured
// minutes delta. Either way the exact debited amount is credited back as a
// REFUND entry and the original entry is marked refunded.
func (e *Engine) Undo(ctx context.Context, sessionID string) (*models.Session, error) {
	var (
		session *models.Session
		station *models.Station
	)
	err := e.store.Atomically(ctx, func(s storage.Store) error {
		sess, err := s.Sessions().GetForUpdate(ctx, sessionID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
			}
			return err
		}
		if sess.Finished() {
			return fmt.Errorf("%w: session already finalized", ErrInvalidState)
		}

		lastTx, err := s.Ledger().LastSessionPayment(ctx, sess.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrNothingToUndo
			}
			return err
		}

		now := e.now()
		if now.Sub(lastTx.CreatedAt) > e.undoWindow {
			return ErrUndoExpired
		}

		payments, err := s.Ledger().CountSessionPayments(ctx, sess.ID)
		if err != nil {
			return err
		}

		if err := s.Ledger().MarkRefunded(ctx, lastTx.ID); err != nil {
			return err
		}

		sid := sess.ID
		if _, err := e.ledger.Record(ctx, s, RecordInput{
			UserID:        sess.UserID,
			SessionID:     &sid,
			FacilityID:    sess.FacilityID,
			Type:          models.LedgerRefund,
			Amount:        -lastTx.Amount,
			PaymentMethod: lastTx.PaymentMethod,
			Description:   fmt.Sprintf("Refund: %s", lastTx.Description),
			MinutesAdded:  -lastTx.MinutesAdded,
			At:            now,
		}); err != nil {
			return err
		}

		st, err := s.Stations().GetForUpdate(ctx, sess.StationID)
		if err != nil {
			return err
		}

		if payments <= 1 {
			sess.Status = models.SessionAborted
			sess.EndedAt = &now
			sess.TotalCost = 0
			if err := s.Sessions().Update(ctx, sess); err != nil {
				return err
			}
			st.Status = models.StationAvailable
			if err := s.Stations().Update(ctx, st); err != nil {
				return err
			}
			if _, err := s.Users().ClearActiveStation(ctx, st.ID); err != nil {
				return err
			}
		} else {
			if lastTx.MinutesAdded <= 0 {
				return fmt.Errorf("%w: entry carries no reversible delta", ErrNothingToUndo)
			}
			removed := time.Duration(lastTx.MinutesAdded) * time.Minute
			sess.TotalCost += lastTx.Amount
			if sess.Status == models.SessionPaused {
				sess.DurationSeconds -= int64(lastTx.MinutesAdded) * 60
			} else if sess.ExpiresAt != nil {
				expires := sess.ExpiresAt.Add(-removed)
				sess.ExpiresAt = &expires
			}
			if err := s.Sessions().Update(ctx, sess); err != nil {
				return err
			}
		}

		session = sess
		station = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("session change undone",
		zap.String("session_id", session.ID),
		zap.String("status", session.Status),
	)
	if session.Finished() {
		if e.cache != nil {
			if cErr := e.cache.DeleteOccupancy(ctx, station.ID); cErr != nil {
				e.logger.Warn("failed to drop occupancy cache", zap.Error(cErr))
			}
		}
		if e.broadcaster != nil {
			e.broadcaster.Publish(buildSnapshot(*station, nil, e.now()), station.FacilityID)
		}
	} else {
		e.publish(ctx, *station, session)
	}
	return session, nil
}

// CostPreview reports the elapsed time of an ACTIVE session and the tier that
// would apply if it ended now.
type CostPreview struct {
	Session        *models.Session `json:"session"`
	CurrentSeconds int64           `json:"current_seconds"`
	CurrentMinutes int             `json:"current_minutes"`
	TierMinutes    int             `json:"tier_minutes"`
	EstimatedCost  models.Money    `json:"estimated_cost"`
}

// Preview computes the current cost of an ACTIVE session without mutating it.
func (e *Engine) Preview(ctx context.Context, sessionID string) (*CostPreview, error) {
	sess, err := e.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
		}
		return nil, err
	}
	if sess.Status != models.SessionActive {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, sess.Status)
	}

	st, err := e.store.Stations().Get(ctx, sess.StationID)
	if err != nil {
		return nil, err
	}

	seconds := int64(e.now().Sub(sess.StartedAt) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	minutes := ceilMinutes(seconds)
	cost, tier, err := PriceForMinutes(ctx, e.store.Catalog(), st.ZoneID, minutes)
	if err != nil {
		return nil, err
	}

	return &CostPreview{
		Session:        sess,
		CurrentSeconds: seconds,
		CurrentMinutes: minutes,
		TierMinutes:    tier.Minutes,
		EstimatedCost:  cost,
	}, nil
}

// LedgerEntries lists the ledger entries attached to a session, newest first.
func (e *Engine) LedgerEntries(ctx context.Context, sessionID string) ([]models.LedgerEntry, error) {
	if _, err := e.store.Sessions().Get(ctx, sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
		}
		return nil, err
	}
	return e.store.Ledger().ListBySession(ctx, sessionID)
}

// resolveTargetUser picks the billed account: explicit id, the station's
// currently assigned user, or a freshly provisioned guest.
func (e *Engine) resolveTargetUser(ctx context.Context, s storage.Store, st *models.Station, explicitID string) (*models.User, error) {
	if explicitID != "" {
		user, err := s.Users().Get(ctx, explicitID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%w: user %s", ErrNotFound, explicitID)
			}
			return nil, err
		}
		return user, nil
	}

	user, err := s.Users().GetByActiveStation(ctx, st.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	return e.provisionGuest(ctx, s)
}

// provisionGuest creates a throwaway zero-balance account with a random
// credential so it behaves like any other user row.
func (e *Engine) provisionGuest(ctx context.Context, s storage.Store) (*models.User, error) {
	id := uuid.NewString()
	hash, err := e.hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("provision guest: %w", err)
	}
	guest := &models.User{
		ID:           id,
		Username:     "guest_" + strings.Split(id, "-")[0],
		PasswordHash: hash,
		IsGuest:      true,
	}
	if err := s.Users().Create(ctx, guest); err != nil {
		return nil, err
	}
	e.logger.Info("guest account provisioned", zap.String("user_id", guest.ID), zap.String("username", guest.Username))
	return guest, nil
}

// price computes (cost, minutes, prepaid) for the requested pricing.
func (e *Engine) price(ctx context.Context, s storage.Store, zoneID, pricingType, bundleID string, minutes int) (models.Money, int, bool, error) {
	switch pricingType {
	case models.PricingBundle:
		if bundleID == "" {
			return 0, 0, false, fmt.Errorf("%w: bundle id required", ErrInvalidState)
		}
		bundle, err := s.Catalog().GetBundle(ctx, bundleID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return 0, 0, false, fmt.Errorf("%w: bundle %s", ErrNotFound, bundleID)
			}
			return 0, 0, false, err
		}
		if !bundle.IsActive {
			return 0, 0, false, fmt.Errorf("%w: bundle %s", ErrNotFound, bundleID)
		}
		if bundle.ZoneID != zoneID {
			return 0, 0, false, fmt.Errorf("%w: bundle belongs to another zone", ErrInvalidState)
		}
		return bundle.Price, bundle.Minutes, true, nil
	case models.PricingFixed:
		if minutes <= 0 {
			return 0, 0, false, fmt.Errorf("%w: minutes required", ErrInvalidState)
		}
		cost, _, err := PriceForMinutes(ctx, s.Catalog(), zoneID, minutes)
		if err != nil {
			return 0, 0, false, err
		}
		return cost, minutes, true, nil
	default: // OPEN: priced at end
		return 0, 0, false, nil
	}
}

// debit charges the user for a session payment. Guests are auto-recharged the
// exact shortfall as a cash payment first; registered users must have balance.
func (e *Engine) debit(ctx context.Context, s storage.Store, user *models.User, sess *models.Session, cost models.Money, minutes int, at time.Time, description string) error {
	if cost <= 0 {
		return nil
	}
	if user.Balance < cost {
		if !user.IsGuest {
			return fmt.Errorf("%w: need %s, have %s", ErrInsufficientBalance, cost.String(), user.Balance.String())
		}
		shortfall := cost - user.Balance
		if _, err := e.ledger.Record(ctx, s, RecordInput{
			UserID:        user.ID,
			FacilityID:    sess.FacilityID,
			Type:          models.LedgerRecharge,
			Amount:        shortfall,
			PaymentMethod: models.PaymentCash,
			Description:   "Automatic cash recharge",
			At:            at,
		}); err != nil {
			return err
		}
	}

	sid := sess.ID
	_, err := e.ledger.Record(ctx, s, RecordInput{
		UserID:        user.ID,
		SessionID:     &sid,
		FacilityID:    sess.FacilityID,
		Type:          models.LedgerSessionPayment,
		Amount:        -cost,
		PaymentMethod: models.PaymentBalance,
		Description:   description,
		MinutesAdded:  minutes,
		At:            at,
	})
	return err
}

// publish emits the post-transition snapshot and refreshes the occupancy cache.
func (e *Engine) publish(ctx context.Context, station models.Station, session *models.Session) {
	snap := buildSnapshot(station, session, e.now())
	if e.cache != nil {
		if err := e.cache.SaveOccupancy(ctx, snap); err != nil {
			e.logger.Warn("failed to cache occupancy", zap.String("station_id", station.ID), zap.Error(err))
		}
	}
	if e.broadcaster != nil {
		e.broadcaster.Publish(snap, station.FacilityID)
	}
}
