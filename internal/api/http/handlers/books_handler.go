package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/library-service/internal/api/dto"
	"github.com/spec-kit/library-service/internal/auth"
	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/service"
	apperrors "github.com/spec-kit/library-service/pkg/util"
)

// BooksHandler serves member-facing catalog and lifecycle endpoints.
type BooksHandler struct {
	catalog *service.CatalogService
	loans   *service.LoanService
}

// NewBooksHandler constructs handler.
func NewBooksHandler(catalog *service.CatalogService, loans *service.LoanService) *BooksHandler {
	return &BooksHandler{catalog: catalog, loans: loans}
}

// ListAvailable GET /books.
func (h *BooksHandler) ListAvailable(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	books, err := h.catalog.ListAvailable(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bookResponses(books)})
}

// Borrow POST /books/:id/borrow.
func (h *BooksHandler) Borrow(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	loan, err := h.loans.Borrow(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": loanResponse(loan)})
}

// Return POST /books/:id/return.
func (h *BooksHandler) Return(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	loan, err := h.loans.Return(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": loanResponse(loan)})
}

// History GET /loans.
func (h *BooksHandler) History(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	loans, err := h.loans.HistoryOwn(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": loanDetailResponses(loans)})
}

// OpenLoans GET /loans/open.
func (h *BooksHandler) OpenLoans(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	loans, err := h.loans.OpenLoans(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": loanDetailResponses(loans)})
}

// Dashboard GET /dashboard.
func (h *BooksHandler) Dashboard(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	open, err := h.loans.OpenLoans(c.Context(), actor)
	if err != nil {
		return err
	}
	available, err := h.catalog.ListAvailable(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MemberDashboardResponse{
		BorrowedBooks:  len(open),
		AvailableBooks: len(available),
	}})
}

func requireActor(c *fiber.Ctx) (domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor(), nil
}

func bookResponses(books []domain.Book) []dto.BookResponse {
	items := make([]dto.BookResponse, 0, len(books))
	for i := range books {
		items = append(items, bookResponse(&books[i]))
	}
	return items
}

func bookResponse(book *domain.Book) dto.BookResponse {
	return dto.BookResponse{
		ID:        book.ID,
		Title:     book.Title,
		Author:    book.Author,
		Available: book.Available,
		CreatedAt: book.CreatedAt,
		UpdatedAt: book.UpdatedAt,
	}
}

func loanResponse(loan *domain.Loan) dto.LoanResponse {
	return dto.LoanResponse{
		ID:         loan.ID,
		BookID:     loan.BookID,
		UserID:     loan.UserID,
		BorrowedAt: loan.BorrowedAt,
		ReturnedAt: loan.ReturnedAt,
	}
}

func loanDetailResponses(loans []domain.LoanDetail) []dto.LoanDetailResponse {
	items := make([]dto.LoanDetailResponse, 0, len(loans))
	for _, loan := range loans {
		items = append(items, dto.LoanDetailResponse{
			ID:         loan.ID,
			BookID:     loan.BookID,
			BookTitle:  loan.BookTitle,
			BookAuthor: loan.BookAuthor,
			UserID:     loan.UserID,
			BorrowedAt: loan.BorrowedAt,
			ReturnedAt: loan.ReturnedAt,
		})
	}
	return items
}
