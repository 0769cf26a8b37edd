package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/library-service/internal/auth"
	"github.com/spec-kit/library-service/internal/domain"
	"github.com/spec-kit/library-service/internal/repository"
)

// defaultAdminPassword is for local development only; rotate it in any real
// deployment.
const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
)

var sampleBooks = []struct {
	title  string
	author string
}{
	{"The Midnight Kite of Varanasi", "Arunika Senapati"},
	{"Whispers of the Monsoon", "Rohan Mehra"},
	{"The Last Stepwell", "Anaya Iyer"},
	{"Tales of the Banyan Court", "Devansh Rathore"},
	{"The River's Secret of Kaveri", "Priyanka Deshpande"},
	{"Marigold and Ashes", "Kavya Nair"},
	{"The Glass Lantern of Jodhpur", "Samarjeet Bhatia"},
	{"Echoes from the Spice Market", "Mehul Joshi"},
}

// SeedDefaults inserts the default admin account and a sample catalog on a
// fresh database. Existing data is left untouched.
func SeedDefaults(ctx context.Context, store repository.Store, bcryptCost int, logger *zap.Logger) error {
	if store == nil {
		logger.Warn("no store available; skipping seed data")
		return nil
	}

	users := store.Users()
	if _, err := users.GetByUsername(ctx, defaultAdminUsername); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		hash, err := auth.HashPassword(defaultAdminPassword, bcryptCost)
		if err != nil {
			return err
		}
		admin := &domain.User{
			Username:     defaultAdminUsername,
			PasswordHash: hash,
			Role:         domain.RoleAdmin,
		}
		if err := users.Create(ctx, admin); err != nil {
			return err
		}
		logger.Info("seeded default admin account", zap.String("username", defaultAdminUsername))
	}

	books, err := store.Books().ListAll(ctx)
	if err != nil {
		return err
	}
	if len(books) > 0 {
		return nil
	}

	for _, sample := range sampleBooks {
		book := &domain.Book{Title: sample.title, Author: sample.author, Available: true}
		if err := store.Books().Create(ctx, book); err != nil {
			return err
		}
	}
	logger.Info("seeded sample catalog", zap.Int("count", len(sampleBooks)))
	return nil
}
