package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/repository"
)

// fakeStore is an in-memory repository.Store. WithinTx serializes callers on
// a mutex, which is exactly the isolation the lifecycle engine needs from the
// real store, so the concurrency properties can be exercised in-process.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	seq      int
	books    map[string]*domain.Book
	loans    map[string]*domain.Loan
	users    map[string]*domain.User
	beginErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		books: make(map[string]*domain.Book),
		loans: make(map[string]*domain.Loan),
		users: make(map[string]*domain.User),
	}
}

func (s *fakeStore) Books() repository.BookRepository { return &fakeBooks{s: s} }
func (s *fakeStore) Loans() repository.LoanRepository { return &fakeLoans{s: s} }
func (s *fakeStore) Users() repository.UserRepository { return &fakeUsers{s: s} }

func (s *fakeStore) WithinTx(_ context.Context, fn func(tx repository.Store) error) error {
	if s.beginErr != nil {
		return s.beginErr
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeStore) addBook(title, author string, available bool) *domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	book := &domain.Book{
		ID:        s.nextID("book"),
		Title:     title,
		Author:    author,
		Available: available,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.books[book.ID] = book
	return book
}

func (s *fakeStore) addUser(username string, role domain.Role) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &domain.User{
		ID:       s.nextID("user"),
		Username: username,
		Role:     role,
	}
	s.users[user.ID] = user
	return user
}

func (s *fakeStore) openLoanFor(bookID string) *domain.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, loan := range s.loans {
		if loan.BookID == bookID && loan.ReturnedAt == nil {
			copied := *loan
			return &copied
		}
	}
	return nil
}

func (s *fakeStore) loanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loans)
}

type fakeBooks struct {
	s *fakeStore
}

func (r *fakeBooks) Create(_ context.Context, book *domain.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	book.ID = r.s.nextID("book")
	book.CreatedAt = time.Now()
	book.UpdatedAt = book.CreatedAt
	copied := *book
	r.s.books[book.ID] = &copied
	return nil
}

func (r *fakeBooks) Update(_ context.Context, book *domain.Book) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.books[book.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Title = book.Title
	stored.Author = book.Author
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeBooks) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.books[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.books, id)
	return nil
}

func (r *fakeBooks) GetByID(_ context.Context, id string) (*domain.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	book, ok := r.s.books[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *book
	return &copied, nil
}

func (r *fakeBooks) GetForUpdate(ctx context.Context, id string) (*domain.Book, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeBooks) ListAll(_ context.Context) ([]domain.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Book
	for _, book := range r.s.books {
		result = append(result, *book)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result, nil
}

func (r *fakeBooks) ListAvailable(ctx context.Context) ([]domain.Book, error) {
	all, _ := r.ListAll(ctx)
	var result []domain.Book
	for _, book := range all {
		if book.Available {
			result = append(result, book)
		}
	}
	return result, nil
}

func (r *fakeBooks) SetAvailability(_ context.Context, id string, available bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	book, ok := r.s.books[id]
	if !ok {
		return pgx.ErrNoRows
	}
	book.Available = available
	book.UpdatedAt = time.Now()
	return nil
}

func (r *fakeBooks) Stats(ctx context.Context) (domain.CatalogStats, error) {
	all, _ := r.ListAll(ctx)
	stats := domain.CatalogStats{TotalBooks: len(all)}
	for _, book := range all {
		if book.Available {
			stats.AvailableBooks++
		}
	}
	stats.IssuedBooks = stats.TotalBooks - stats.AvailableBooks
	return stats, nil
}

type fakeLoans struct {
	s *fakeStore
}

func (r *fakeLoans) Create(_ context.Context, loan *domain.Loan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	loan.ID = r.s.nextID("loan")
	copied := *loan
	r.s.loans[loan.ID] = &copied
	return nil
}

func (r *fakeLoans) Open(_ context.Context, bookID string) (*domain.Loan, error) {
	if loan := r.s.openLoanFor(bookID); loan != nil {
		return loan, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeLoans) Close(_ context.Context, loanID string, returnedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	loan, ok := r.s.loans[loanID]
	if !ok || loan.ReturnedAt != nil {
		return pgx.ErrNoRows
	}
	at := returnedAt
	loan.ReturnedAt = &at
	return nil
}

func (r *fakeLoans) GetByID(_ context.Context, id string) (*domain.Loan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	loan, ok := r.s.loans[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *loan
	return &copied, nil
}

func (r *fakeLoans) ListByUser(_ context.Context, userID string) ([]domain.LoanDetail, error) {
	return r.list(func(loan *domain.Loan) bool { return loan.UserID == userID }), nil
}

func (r *fakeLoans) ListOpenByUser(_ context.Context, userID string) ([]domain.LoanDetail, error) {
	return r.list(func(loan *domain.Loan) bool {
		return loan.UserID == userID && loan.ReturnedAt == nil
	}), nil
}

func (r *fakeLoans) ListAll(_ context.Context) ([]domain.LoanDetail, error) {
	return r.list(func(*domain.Loan) bool { return true }), nil
}

func (r *fakeLoans) list(match func(*domain.Loan) bool) []domain.LoanDetail {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.LoanDetail
	for _, loan := range r.s.loans {
		if !match(loan) {
			continue
		}
		detail := domain.LoanDetail{Loan: *loan}
		if book, ok := r.s.books[loan.BookID]; ok {
			detail.BookTitle = book.Title
			detail.BookAuthor = book.Author
		}
		result = append(result, detail)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].BorrowedAt.After(result[j].BorrowedAt)
	})
	return result
}

type fakeUsers struct {
	s *fakeStore
}

func (r *fakeUsers) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user.ID = r.s.nextID("user")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.s.users[user.ID] = &copied
	return nil
}

func (r *fakeUsers) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	*stored = *user
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}
