package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"lanpulse/internal/models"
	"lanpulse/internal/storage"
	"lanpulse/internal/storage/memory"
)

func TestRecordChainsBalances(t *testing.T) {
	store := memory.NewStore()
	store.SeedUser(models.User{ID: "u-1", Username: "alice", Balance: 1000})
	ledger := NewLedger(zap.NewNop())
	ctx := context.Background()
	at := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	err := store.Atomically(ctx, func(s storage.Store) error {
		first, err := ledger.Record(ctx, s, RecordInput{
			UserID: "u-1", FacilityID: "fac-1", Type: models.LedgerSessionPayment,
			Amount: -300, PaymentMethod: models.PaymentBalance, At: at,
		})
		if err != nil {
			return err
		}
		if first.BalanceBefore != 1000 || first.BalanceAfter != 700 {
			t.Errorf("first entry %d -> %d, want 1000 -> 700", first.BalanceBefore, first.BalanceAfter)
		}

		second, err := ledger.Record(ctx, s, RecordInput{
			UserID: "u-1", FacilityID: "fac-1", Type: models.LedgerRecharge,
			Amount: 500, PaymentMethod: models.PaymentCash, At: at,
		})
		if err != nil {
			return err
		}
		if second.BalanceBefore != 700 || second.BalanceAfter != 1200 {
			t.Errorf("second entry %d -> %d, want 700 -> 1200", second.BalanceBefore, second.BalanceAfter)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Atomically: %v", err)
	}

	user, _ := store.Users().Get(ctx, "u-1")
	if user.Balance != 1200 {
		t.Errorf("balance = %d, want 1200", user.Balance)
	}
}

func TestRecordRollsBackWithTransaction(t *testing.T) {
	store := memory.NewStore()
	store.SeedUser(models.User{ID: "u-1", Username: "alice", Balance: 1000})
	ledger := NewLedger(zap.NewNop())
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.Atomically(ctx, func(s storage.Store) error {
		if _, err := ledger.Record(ctx, s, RecordInput{
			UserID: "u-1", FacilityID: "fac-1", Type: models.LedgerSessionPayment,
			Amount: -300, PaymentMethod: models.PaymentBalance, At: time.Now(),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}

	user, _ := store.Users().Get(ctx, "u-1")
	if user.Balance != 1000 {
		t.Errorf("balance = %d, want untouched 1000", user.Balance)
	}
}
