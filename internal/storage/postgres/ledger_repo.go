package postgres

import (
	"context"
	"database/sql"
	"errors"

	"lanpulse/internal/models"
	"lanpulse/internal/storage"
)

type ledgerRepo struct {
	q querier
}

const ledgerColumns = `id, user_id, session_id, facility_id, type, amount, balance_before, balance_after, payment_method, description, minutes_added, refunded, created_at`

func scanEntry(row interface{ Scan(...any) error }) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.SessionID,
		&e.FacilityID,
		&e.Type,
		&e.Amount,
		&e.BalanceBefore,
		&e.BalanceAfter,
		&e.PaymentMethod,
		&e.Description,
		&e.MinutesAdded,
		&e.Refunded,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *ledgerRepo) Create(ctx context.Context, entry *models.LedgerEntry) error {
	const query = `
		INSERT INTO ledger_entries (id, user_id, session_id, facility_id, type, amount, balance_before, balance_after, payment_method, description, minutes_added, refunded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`
	return r.q.QueryRowContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.SessionID,
		entry.FacilityID,
		entry.Type,
		entry.Amount,
		entry.BalanceBefore,
		entry.BalanceAfter,
		entry.PaymentMethod,
		entry.Description,
		entry.MinutesAdded,
		entry.Refunded,
		entry.CreatedAt,
	).Scan(&entry.CreatedAt)
}

func (r *ledgerRepo) ListBySession(ctx context.Context, sessionID string) ([]models.LedgerEntry, error) {
	const query = `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE session_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.q.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *ledgerRepo) LastSessionPayment(ctx context.Context, sessionID string) (*models.LedgerEntry, error) {
	const query = `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE session_id = $1 AND type = 'SESSION_PAYMENT' AND NOT refunded
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanEntry(r.q.QueryRowContext(ctx, query, sessionID))
}

func (r *ledgerRepo) CountSessionPayments(ctx context.Context, sessionID string) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE session_id = $1 AND type = 'SESSION_PAYMENT' AND NOT refunded
	`
	var count int
	if err := r.q.QueryRowContext(ctx, query, sessionID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ledgerRepo) MarkRefunded(ctx context.Context, id string) error {
	const query = `UPDATE ledger_entries SET refunded = TRUE WHERE id = $1`
	result, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
