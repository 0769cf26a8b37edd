package events

import (
	"time"

	"github.com/spec-kit/library-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventBookBorrowed EventType = "book_borrowed"
	EventBookReturned EventType = "book_returned"
	EventBookAdded    EventType = "book_added"
	EventBookUpdated  EventType = "book_updated"
	EventBookRemoved  EventType = "book_removed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	BookID    string      `json:"book_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// BookBorrowedPayload payload.
type BookBorrowedPayload struct {
	LoanID     string    `json:"loan_id"`
	BorrowedAt time.Time `json:"borrowed_at"`
	Title      string    `json:"title"`
}

// BookReturnedPayload payload.
type BookReturnedPayload struct {
	LoanID      string    `json:"loan_id"`
	ReturnedAt  time.Time `json:"returned_at"`
	ForceReturn bool      `json:"force_return,omitempty"`
}

// BookCatalogPayload covers add/update/remove events.
type BookCatalogPayload struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}
