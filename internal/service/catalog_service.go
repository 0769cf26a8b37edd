package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/spec-kit/library-service/internal/auth"
	"github.com/spec-kit/library-service/internal/cache"
	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/events"
	"github.com/spec-kit/library-service/internal/repository"
	apperrors "github.com/spec-kit/library-service/pkg/util"
)

const foreignKeyViolationCode = "23503"

// CatalogService handles catalog CRUD, listings and dashboard stats. Book
// availability is out of its hands; only the lifecycle engine flips it.
type CatalogService struct {
	store      repository.Store
	policy     *auth.Policy
	dispatcher events.Dispatcher
	stats      *cache.StatsCache
	logger     *zap.Logger
}

// CatalogDependencies bundles collaborators for the catalog service.
type CatalogDependencies struct {
	Store      repository.Store
	Policy     *auth.Policy
	Dispatcher events.Dispatcher
	StatsCache *cache.StatsCache
	Logger     *zap.Logger
}

// BookInput describes an add/edit payload.
type BookInput struct {
	Title  string
	Author string
}

// NewCatalogService constructs the service.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		store:      deps.Store,
		policy:     deps.Policy,
		dispatcher: deps.Dispatcher,
		stats:      deps.StatsCache,
		logger:     logger,
	}
}

// ListAll returns the whole catalog for admins.
func (s *CatalogService) ListAll(ctx context.Context, actor domain.Actor) ([]domain.Book, error) {
	if !s.policy.Allowed(actor.Role, auth.OpViewCatalogAll) {
		return nil, apperrors.NewForbidden("role may not view the full catalog")
	}
	books, err := s.store.Books().ListAll(ctx)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return books, nil
}

// ListAvailable returns books that can currently be borrowed.
func (s *CatalogService) ListAvailable(ctx context.Context, actor domain.Actor) ([]domain.Book, error) {
	if !s.policy.Allowed(actor.Role, auth.OpViewCatalogAvailable) {
		return nil, apperrors.NewForbidden("role may not browse the catalog")
	}
	books, err := s.store.Books().ListAvailable(ctx)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return books, nil
}

// GetBook loads a single book.
func (s *CatalogService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.store.Books().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("book", map[string]any{"book_id": id})
		}
		return nil, s.storeErr(err)
	}
	return book, nil
}

// AddBook creates a catalog entry. New books start available.
func (s *CatalogService) AddBook(ctx context.Context, actor domain.Actor, input BookInput) (*domain.Book, error) {
	if !s.policy.Allowed(actor.Role, auth.OpEditCatalog) {
		return nil, apperrors.NewForbidden("role may not edit the catalog")
	}
	title := strings.TrimSpace(input.Title)
	author := strings.TrimSpace(input.Author)
	if title == "" || author == "" {
		return nil, apperrors.NewValidationError("title and author are required", nil)
	}

	book := &domain.Book{Title: title, Author: author, Available: true}
	if err := s.store.Books().Create(ctx, book); err != nil {
		return nil, s.storeErr(err)
	}

	s.publishCatalogEvent(ctx, events.EventBookAdded, actor, book)
	return book, nil
}

// UpdateBook edits title/author. Availability is untouched.
func (s *CatalogService) UpdateBook(ctx context.Context, actor domain.Actor, id string, input BookInput) (*domain.Book, error) {
	if !s.policy.Allowed(actor.Role, auth.OpEditCatalog) {
		return nil, apperrors.NewForbidden("role may not edit the catalog")
	}
	title := strings.TrimSpace(input.Title)
	author := strings.TrimSpace(input.Author)
	if title == "" || author == "" {
		return nil, apperrors.NewValidationError("title and author are required", nil)
	}

	book, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	book.Title = title
	book.Author = author
	if err := s.store.Books().Update(ctx, book); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("book", map[string]any{"book_id": id})
		}
		return nil, s.storeErr(err)
	}

	s.publishCatalogEvent(ctx, events.EventBookUpdated, actor, book)
	return book, nil
}

// DeleteBook removes a book that has never circulated. The loan ledger is
// permanent, so a book with history (or an open loan) cannot be deleted.
func (s *CatalogService) DeleteBook(ctx context.Context, actor domain.Actor, id string) error {
	if !s.policy.Allowed(actor.Role, auth.OpEditCatalog) {
		return apperrors.NewForbidden("role may not edit the catalog")
	}

	book, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}
	if !book.Available {
		return apperrors.NewConflict("book is currently issued", map[string]any{"book_id": id})
	}

	if err := s.store.Books().Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("book", map[string]any{"book_id": id})
		}
		if isForeignKeyViolation(err) {
			return apperrors.NewConflict("book has loan history and cannot be deleted",
				map[string]any{"book_id": id})
		}
		return s.storeErr(err)
	}

	s.publishCatalogEvent(ctx, events.EventBookRemoved, actor, book)
	return nil
}

// Stats returns catalog counts for the admin dashboard, served from the
// Redis cache when fresh.
func (s *CatalogService) Stats(ctx context.Context) (domain.CatalogStats, error) {
	if stats, err := s.stats.Get(ctx); err == nil {
		return stats, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("stats cache read failed", zap.Error(err))
	}

	stats, err := s.store.Books().Stats(ctx)
	if err != nil {
		return domain.CatalogStats{}, s.storeErr(err)
	}
	if err := s.stats.Set(ctx, stats); err != nil {
		s.logger.Warn("stats cache write failed", zap.Error(err))
	}
	return stats, nil
}

// InvalidateStats drops the cached dashboard counts. Wired to borrow,
// return and catalog mutation events.
func (s *CatalogService) InvalidateStats(ctx context.Context) error {
	return s.stats.Invalidate(ctx)
}

func (s *CatalogService) storeErr(err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewStoreUnavailable(err)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

func (s *CatalogService) publishCatalogEvent(ctx context.Context, eventType events.EventType, actor domain.Actor, book *domain.Book) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		BookID:    book.ID,
		Timestamp: time.Now().UTC(),
		Actor:     events.Actor{UserID: actor.UserID, Role: actor.Role},
		Payload: events.BookCatalogPayload{
			Title:  book.Title,
			Author: book.Author,
		},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
