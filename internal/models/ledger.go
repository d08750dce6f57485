package models

import "time"

// Ledger entry types.
const (
	LedgerRecharge       = "RECHARGE"
	LedgerSessionPayment = "SESSION_PAYMENT"
	LedgerRefund         = "REFUND"
)

// Payment methods recorded on ledger entries.
const (
	PaymentBalance = "BALANCE"
	PaymentCash    = "CASH"
)

// LedgerEntry is an immutable record of one balance mutation. Amount is signed:
// debits are negative, credits positive, and BalanceAfter = BalanceBefore + Amount
// always holds exactly. MinutesAdded carries the reversible delta for undo;
// Refunded marks entries already reversed so they cannot be undone twice.
type LedgerEntry struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	SessionID     *string   `db:"session_id" json:"session_id,omitempty"`
	FacilityID    string    `db:"facility_id" json:"facility_id"`
	Type          string    `db:"type" json:"type"`
	Amount        Money     `db:"amount" json:"amount"`
	BalanceBefore Money     `db:"balance_before" json:"balance_before"`
	BalanceAfter  Money     `db:"balance_after" json:"balance_after"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	Description   string    `db:"description" json:"description"`
	MinutesAdded  int       `db:"minutes_added" json:"minutes_added"`
	Refunded      bool      `db:"refunded" json:"refunded"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
