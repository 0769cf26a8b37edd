package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx used by repositories. Both *pgxpool.Pool and
// pgx.Tx satisfy it, so the same repository code runs inside or outside a
// transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store aggregates the repositories and provides the transactional boundary
// the borrowing lifecycle requires: reads and writes across the catalog and
// the loan ledger must be indivisible for a given book.
type Store interface {
	Books() BookRepository
	Loans() LoanRepository
	Users() UserRepository

	// WithinTx runs fn against transaction-scoped repositories. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	pool  *pgxpool.Pool
	db    Querier
	books BookRepository
	loans LoanRepository
	users UserRepository
}

// NewStore returns a Postgres-backed Store.
func NewStore(pool *pgxpool.Pool) Store {
	return newPgStore(pool, pool)
}

func newPgStore(pool *pgxpool.Pool, db Querier) *pgStore {
	return &pgStore{
		pool:  pool,
		db:    db,
		books: NewBookRepository(db),
		loans: NewLoanRepository(db),
		users: NewUserRepository(db),
	}
}

func (s *pgStore) Books() BookRepository { return s.books }
func (s *pgStore) Loans() LoanRepository { return s.loans }
func (s *pgStore) Users() UserRepository { return s.users }

func (s *pgStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if _, alreadyTx := s.db.(pgx.Tx); alreadyTx {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(newPgStore(s.pool, tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
