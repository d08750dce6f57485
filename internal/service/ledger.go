package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lanpulse/internal/models"
	"lanpulse/internal/storage"
)

// Ledger records balance mutations. Every change to a user's balance goes
// through Record, which pairs the new balance with an immutable entry carrying
// the exact before/after amounts. Record must run inside the caller's
// transaction: it locks the user row so the recorded before/after reflect the
// balance immediately preceding this entry even under concurrent writers.
type Ledger struct {
	logger *zap.Logger
}

// NewLedger builds the ledger recorder.
func NewLedger(logger *zap.Logger) *Ledger {
	return &Ledger{logger: logger}
}

// RecordInput describes one balance mutation. Amount is signed: debits
// negative, credits positive.
type RecordInput struct {
	UserID        string
	SessionID     *string
	FacilityID    string
	Type          string
	Amount        models.Money
	PaymentMethod string
	Description   string
	MinutesAdded  int
	At            time.Time
}

// Record applies the delta to the user's balance and persists the paired
// ledger entry as one step inside the enclosing transaction.
func (l *Ledger) Record(ctx context.Context, s storage.Store, in RecordInput) (*models.LedgerEntry, error) {
	user, err := s.Users().GetForUpdate(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("ledger: lock user: %w", err)
	}

	entry := &models.LedgerEntry{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		SessionID:     in.SessionID,
		FacilityID:    in.FacilityID,
		Type:          in.Type,
		Amount:        in.Amount,
		BalanceBefore: user.Balance,
		BalanceAfter:  user.Balance + in.Amount,
		PaymentMethod: in.PaymentMethod,
		Description:   in.Description,
		MinutesAdded:  in.MinutesAdded,
		CreatedAt:     in.At,
	}

	if err := s.Ledger().Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("ledger: create entry: %w", err)
	}

	user.Balance = entry.BalanceAfter
	if err := s.Users().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("ledger: apply balance: %w", err)
	}

	l.logger.Info("ledger entry recorded",
		zap.String("entry_id", entry.ID),
		zap.String("user_id", entry.UserID),
		zap.String("type", entry.Type),
		zap.String("amount", entry.Amount.String()),
		zap.String("balance_after", entry.BalanceAfter.String()),
	)
	return entry, nil
}
