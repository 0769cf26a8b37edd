package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/library-service/internal/domain"
)

// LoanRepository stores ledger entries. Loans are inserted on borrow and
// closed exactly once on return; nothing here deletes a row.
type LoanRepository interface {
	Create(ctx context.Context, loan *domain.Loan) error
	// Open returns the currently unreturned loan for a book, or pgx.ErrNoRows.
	Open(ctx context.Context, bookID string) (*domain.Loan, error)
	Close(ctx context.Context, loanID string, returnedAt time.Time) error
	GetByID(ctx context.Context, id string) (*domain.Loan, error)
	ListByUser(ctx context.Context, userID string) ([]domain.LoanDetail, error)
	ListOpenByUser(ctx context.Context, userID string) ([]domain.LoanDetail, error)
	ListAll(ctx context.Context) ([]domain.LoanDetail, error)
}

type loanRepository struct {
	db Querier
}

// NewLoanRepository builds repository.
func NewLoanRepository(db Querier) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	const query = `
        INSERT INTO loans (book_id, user_id, borrowed_at)
        VALUES ($1, $2, $3)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		loan.BookID,
		loan.UserID,
		loan.BorrowedAt,
	).Scan(&loan.ID)
}

func (r *loanRepository) Open(ctx context.Context, bookID string) (*domain.Loan, error) {
	const query = `
        SELECT id, book_id, user_id, borrowed_at, returned_at
        FROM loans WHERE book_id=$1 AND returned_at IS NULL`
	return r.fetchSingle(ctx, query, bookID)
}

func (r *loanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	const query = `
        SELECT id, book_id, user_id, borrowed_at, returned_at
        FROM loans WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *loanRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Loan, error) {
	var loan domain.Loan
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&loan.ID,
		&loan.BookID,
		&loan.UserID,
		&loan.BorrowedAt,
		&loan.ReturnedAt,
	); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) Close(ctx context.Context, loanID string, returnedAt time.Time) error {
	const query = `
        UPDATE loans SET returned_at=$1
        WHERE id=$2 AND returned_at IS NULL`
	cmd, err := r.db.Exec(ctx, query, returnedAt, loanID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const loanDetailQuery = `
        SELECT l.id, l.book_id, l.user_id, l.borrowed_at, l.returned_at, b.title, b.author
        FROM loans l
        JOIN books b ON l.book_id = b.id`

func (r *loanRepository) ListByUser(ctx context.Context, userID string) ([]domain.LoanDetail, error) {
	query := loanDetailQuery + `
        WHERE l.user_id=$1
        ORDER BY l.borrowed_at DESC`
	return r.listDetails(ctx, query, userID)
}

func (r *loanRepository) ListOpenByUser(ctx context.Context, userID string) ([]domain.LoanDetail, error) {
	query := loanDetailQuery + `
        WHERE l.user_id=$1 AND l.returned_at IS NULL
        ORDER BY l.borrowed_at DESC`
	return r.listDetails(ctx, query, userID)
}

func (r *loanRepository) ListAll(ctx context.Context) ([]domain.LoanDetail, error) {
	query := loanDetailQuery + `
        ORDER BY l.borrowed_at DESC`
	return r.listDetails(ctx, query)
}

func (r *loanRepository) listDetails(ctx context.Context, query string, args ...any) ([]domain.LoanDetail, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.LoanDetail
	for rows.Next() {
		var detail domain.LoanDetail
		if err := rows.Scan(
			&detail.ID,
			&detail.BookID,
			&detail.UserID,
			&detail.BorrowedAt,
			&detail.ReturnedAt,
			&detail.BookTitle,
			&detail.BookAuthor,
		); err != nil {
			return nil, err
		}
		result = append(result, detail)
	}
	return result, rows.Err()
}
