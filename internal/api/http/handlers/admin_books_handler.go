package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/library-service/internal/api/dto"
	"github.com/spec-kit/library-service/internal/service"
	apperrors "github.com/spec-kit/library-service/pkg/util"
)

// AdminBooksHandler serves admin catalog management and the full ledger.
type AdminBooksHandler struct {
	catalog *service.CatalogService
	loans   *service.LoanService
}

// NewAdminBooksHandler constructs handler.
func NewAdminBooksHandler(catalog *service.CatalogService, loans *service.LoanService) *AdminBooksHandler {
	return &AdminBooksHandler{catalog: catalog, loans: loans}
}

// ListBooks GET /admin/books.
func (h *AdminBooksHandler) ListBooks(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	books, err := h.catalog.ListAll(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bookResponses(books)})
}

// AddBook POST /admin/books.
func (h *AdminBooksHandler) AddBook(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.BookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	book, err := h.catalog.AddBook(c.Context(), actor, service.BookInput{Title: req.Title, Author: req.Author})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": bookResponse(book)})
}

// UpdateBook PUT /admin/books/:id.
func (h *AdminBooksHandler) UpdateBook(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.BookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	book, err := h.catalog.UpdateBook(c.Context(), actor, c.Params("id"), service.BookInput{Title: req.Title, Author: req.Author})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bookResponse(book)})
}

// DeleteBook DELETE /admin/books/:id.
func (h *AdminBooksHandler) DeleteBook(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteBook(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": true}})
}

// ForceReturn POST /admin/books/:id/return closes another member's loan.
func (h *AdminBooksHandler) ForceReturn(c *fiber.Ctx) error {
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

// ListLoans GET /admin/loans.
func (h *AdminBooksHandler) ListLoans(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	loans, err := h.loans.HistoryAll(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": loanDetailResponses(loans)})
}

// Dashboard GET /admin/dashboard.
func (h *AdminBooksHandler) Dashboard(c *fiber.Ctx) error {
	if _, err := requireActor(c); err != nil {
		return err
	}
	stats, err := h.catalog.Stats(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AdminDashboardResponse{
		TotalBooks:     stats.TotalBooks,
		AvailableBooks: stats.AvailableBooks,
		IssuedBooks:    stats.IssuedBooks,
	}})
}
