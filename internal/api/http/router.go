package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/library-service/internal/api/http/handlers"
	"github.com/spec-kit/library-service/internal/auth"
	"github.com/spec-kit/library-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Books          *handlers.BooksHandler
	AdminBooks     *handlers.AdminBooksHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireRole(), cfg.Auth.ChangePassword)

	memberOnly := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleMember)}
	app.Get("/books", append(memberOnly, cfg.Books.ListAvailable)...)
	app.Post("/books/:id/borrow", append(memberOnly, cfg.Books.Borrow)...)
	app.Post("/books/:id/return", append(memberOnly, cfg.Books.Return)...)
	app.Get("/loans", append(memberOnly, cfg.Books.History)...)
	app.Get("/loans/open", append(memberOnly, cfg.Books.OpenLoans)...)
	app.Get("/dashboard", append(memberOnly, cfg.Books.Dashboard)...)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/books", cfg.AdminBooks.ListBooks)
	admin.Post("/books", cfg.AdminBooks.AddBook)
	admin.Put("/books/:id", cfg.AdminBooks.UpdateBook)
	admin.Delete("/books/:id", cfg.AdminBooks.DeleteBook)
	admin.Post("/books/:id/return", cfg.AdminBooks.ForceReturn)
	admin.Get("/loans", cfg.AdminBooks.ListLoans)
	admin.Get("/dashboard", cfg.AdminBooks.Dashboard)
}
