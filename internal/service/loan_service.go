package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/library-service/internal/auth"
	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/events"
	"github.com/spec-kit/library-service/internal/repository"
	apperrors "github.com/spec-kit/library-service/pkg/util"
)

const uniqueViolationCode = "23505"

// LoanService is the borrowing lifecycle engine. Borrow and Return are the
// only code paths that mutate book availability together with the loan
// ledger; both run inside a single transaction with the book row locked.
type LoanService struct {
	store      repository.Store
	policy     *auth.Policy
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// LoanDependencies bundles collaborators for the lifecycle engine.
type LoanDependencies struct {
	Store      repository.Store
	Policy     *auth.Policy
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	// Now overrides the wall clock; nil means time.Now.
	Now func() time.Time
}

// NewLoanService constructs the engine.
func NewLoanService(deps LoanDependencies) *LoanService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoanService{
		store:      deps.Store,
		policy:     deps.Policy,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// Borrow issues a book to the calling member. Exactly one of two racing
// borrows for the same book succeeds; the loser observes a conflict.
func (s *LoanService) Borrow(ctx context.Context, actor domain.Actor, bookID string) (*domain.Loan, error) {
	if !s.policy.Allowed(actor.Role, auth.OpBorrow) {
		return nil, apperrors.NewForbidden("role may not borrow books")
	}

	var (
		loan  *domain.Loan
		title string
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		book, err := tx.Books().GetForUpdate(ctx, bookID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("book", map[string]any{"book_id": bookID})
			}
			return err
		}

		open, err := s.openLoan(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if err := s.checkConsistency(book, open); err != nil {
			return err
		}
		if !book.Available {
			return apperrors.NewConflict("book is already issued", map[string]any{"book_id": bookID})
		}

		loan = &domain.Loan{
			BookID:     bookID,
			UserID:     actor.UserID,
			BorrowedAt: s.now().UTC(),
		}
		if err := tx.Loans().Create(ctx, loan); err != nil {
			if isUniqueViolation(err) {
				return apperrors.NewConflict("book is already issued", map[string]any{"book_id": bookID})
			}
			return err
		}
		if err := tx.Books().SetAvailability(ctx, bookID, false); err != nil {
			return err
		}
		title = book.Title
		return nil
	})
	if err != nil {
		return nil, s.storeErr(err)
	}

	s.publish(ctx, events.Event{
		Type:   events.EventBookBorrowed,
		BookID: bookID,
		Actor:  events.Actor{UserID: actor.UserID, Role: actor.Role},
		Payload: events.BookBorrowedPayload{
			LoanID:     loan.ID,
			BorrowedAt: loan.BorrowedAt,
			Title:      title,
		},
	})
	return loan, nil
}

// Return closes the open loan on a book. Members may only return their own
// loans; an admin may force-return any loan when the policy grants it.
func (s *LoanService) Return(ctx context.Context, actor domain.Actor, bookID string) (*domain.Loan, error) {
	if !s.policy.Allowed(actor.Role, auth.OpReturn) {
		return nil, apperrors.NewForbidden("role may not return books")
	}

	var (
		closed      *domain.Loan
		forceReturn bool
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		book, err := tx.Books().GetForUpdate(ctx, bookID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("book", map[string]any{"book_id": bookID})
			}
			return err
		}

		open, err := s.openLoan(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if err := s.checkConsistency(book, open); err != nil {
			return err
		}
		if open == nil {
			return apperrors.NewConflict("book is not currently borrowed", map[string]any{"book_id": bookID})
		}

		if open.UserID != actor.UserID {
			if actor.Role != domain.RoleAdmin {
				return apperrors.NewForbidden("loan belongs to another member")
			}
			forceReturn = true
		}

		returnedAt := s.now().UTC()
		if err := tx.Loans().Close(ctx, open.ID, returnedAt); err != nil {
			return err
		}
		if err := tx.Books().SetAvailability(ctx, bookID, true); err != nil {
			return err
		}

		open.ReturnedAt = &returnedAt
		closed = open
		return nil
	})
	if err != nil {
		return nil, s.storeErr(err)
	}

	s.publish(ctx, events.Event{
		Type:   events.EventBookReturned,
		BookID: bookID,
		Actor:  events.Actor{UserID: actor.UserID, Role: actor.Role},
		Payload: events.BookReturnedPayload{
			LoanID:      closed.ID,
			ReturnedAt:  *closed.ReturnedAt,
			ForceReturn: forceReturn,
		},
	})
	return closed, nil
}

// HistoryOwn lists the caller's full borrow history, most recent first.
func (s *LoanService) HistoryOwn(ctx context.Context, actor domain.Actor) ([]domain.LoanDetail, error) {
	if !s.policy.Allowed(actor.Role, auth.OpViewHistoryOwn) {
		return nil, apperrors.NewForbidden("role may not view own history")
	}
	loans, err := s.store.Loans().ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return loans, nil
}

// OpenLoans lists the caller's currently borrowed books.
func (s *LoanService) OpenLoans(ctx context.Context, actor domain.Actor) ([]domain.LoanDetail, error) {
	if !s.policy.Allowed(actor.Role, auth.OpViewHistoryOwn) {
		return nil, apperrors.NewForbidden("role may not view own history")
	}
	loans, err := s.store.Loans().ListOpenByUser(ctx, actor.UserID)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return loans, nil
}

// HistoryAll lists the complete ledger for admins, most recent first.
func (s *LoanService) HistoryAll(ctx context.Context, actor domain.Actor) ([]domain.LoanDetail, error) {
	if !s.policy.Allowed(actor.Role, auth.OpViewHistoryAll) {
		return nil, apperrors.NewForbidden("role may not view the full ledger")
	}
	loans, err := s.store.Loans().ListAll(ctx)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return loans, nil
}

// openLoan loads the unreturned loan for a book, nil when there is none.
func (s *LoanService) openLoan(ctx context.Context, tx repository.Store, bookID string) (*domain.Loan, error) {
	open, err := tx.Loans().Open(ctx, bookID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return open, nil
}

// checkConsistency verifies that the availability flag agrees with the open
// loan ledger. A mismatch means a past write escaped the transactional
// boundary; it is fatal to the operation and logged loudly.
func (s *LoanService) checkConsistency(book *domain.Book, open *domain.Loan) error {
	if book.Available == (open == nil) {
		return nil
	}
	fields := []zap.Field{
		zap.String("book_id", book.ID),
		zap.Bool("available", book.Available),
	}
	if open != nil {
		fields = append(fields, zap.String("open_loan_id", open.ID))
	}
	s.logger.Error("catalog availability and loan ledger disagree", fields...)
	return apperrors.NewLedgerMismatch(book.ID)
}

func (s *LoanService) storeErr(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewStoreUnavailable(err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func (s *LoanService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
