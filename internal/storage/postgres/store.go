package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"lanpulse/internal/storage"
)

// querier is satisfied by both *sql.DB and *sql.Tx so every repository can run
// inside or outside a transaction unchanged.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the Postgres-backed storage.Store.
type Store struct {
	db *sql.DB
	q  querier
}

// NewStore wraps the given pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Stations() storage.StationStore { return &stationRepo{q: s.q} }
func (s *Store) Sessions() storage.SessionStore { return &sessionRepo{q: s.q} }
func (s *Store) Users() storage.UserStore       { return &userRepo{q: s.q} }
func (s *Store) Ledger() storage.LedgerStore    { return &ledgerRepo{q: s.q} }
func (s *Store) Catalog() storage.CatalogStore  { return &catalogRepo{q: s.q} }

// Atomically runs fn against a transaction-bound store. A nested call reuses
// the transaction already in flight.
func (s *Store) Atomically(ctx context.Context, fn func(storage.Store) error) error {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
