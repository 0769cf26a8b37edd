package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/library-service/internal/domain"
)

// BookRepository encapsulates catalog persistence.
type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) error
	Update(ctx context.Context, book *domain.Book) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Book, error)
	// GetForUpdate locks the book row for the duration of the enclosing
	// transaction, serializing borrow/return on the same book.
	GetForUpdate(ctx context.Context, id string) (*domain.Book, error)
	ListAll(ctx context.Context) ([]domain.Book, error)
	ListAvailable(ctx context.Context) ([]domain.Book, error)
	SetAvailability(ctx context.Context, id string, available bool) error
	Stats(ctx context.Context) (domain.CatalogStats, error)
}

type bookRepository struct {
	db Querier
}

// NewBookRepository instantiates repository.
func NewBookRepository(db Querier) BookRepository {
	return &bookRepository{db: db}
}

const bookColumns = `id, title, author, available, created_at, updated_at`

func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	const query = `
        INSERT INTO books (title, author, available)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		book.Title,
		book.Author,
		book.Available,
	).Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)
}

func (r *bookRepository) Update(ctx context.Context, book *domain.Book) error {
	const query = `
        UPDATE books SET title=$1, author=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.db.Exec(ctx, query, book.Title, book.Author, book.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *bookRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM books WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *bookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	return r.fetchSingle(ctx, `SELECT `+bookColumns+` FROM books WHERE id=$1`, id)
}

func (r *bookRepository) GetForUpdate(ctx context.Context, id string) (*domain.Book, error) {
	return r.fetchSingle(ctx, `SELECT `+bookColumns+` FROM books WHERE id=$1 FOR UPDATE`, id)
}

func (r *bookRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Book, error) {
	var book domain.Book
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Available,
		&book.CreatedAt,
		&book.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) ListAll(ctx context.Context) ([]domain.Book, error) {
	return r.list(ctx, `SELECT `+bookColumns+` FROM books ORDER BY title ASC`)
}

func (r *bookRepository) ListAvailable(ctx context.Context) ([]domain.Book, error) {
	return r.list(ctx, `SELECT `+bookColumns+` FROM books WHERE available ORDER BY title ASC`)
}

func (r *bookRepository) list(ctx context.Context, query string) ([]domain.Book, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Book
	for rows.Next() {
		var book domain.Book
		if err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Author,
			&book.Available,
			&book.CreatedAt,
			&book.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, book)
	}
	return result, rows.Err()
}

func (r *bookRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE books SET available=$1, updated_at=NOW() WHERE id=$2`, available, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *bookRepository) Stats(ctx context.Context) (domain.CatalogStats, error) {
	const query = `
        SELECT COUNT(*), COUNT(*) FILTER (WHERE available)
        FROM books`
	var stats domain.CatalogStats
	if err := r.db.QueryRow(ctx, query).Scan(&stats.TotalBooks, &stats.AvailableBooks); err != nil {
		return domain.CatalogStats{}, err
	}
	stats.IssuedBooks = stats.TotalBooks - stats.AvailableBooks
	return stats, nil
}
