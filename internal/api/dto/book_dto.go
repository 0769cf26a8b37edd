package dto

import "time"

// BookRequest covers add and edit payloads.
type BookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// BookResponse is the persisted record shape exposed to consumers.
type BookResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AdminDashboardResponse carries catalog counts.
type AdminDashboardResponse struct {
	TotalBooks     int `json:"total_books"`
	AvailableBooks int `json:"available_books"`
	IssuedBooks    int `json:"issued_books"`
}

// MemberDashboardResponse carries the member's view.
type MemberDashboardResponse struct {
	BorrowedBooks  int `json:"borrowed_books"`
	AvailableBooks int `json:"available_books"`
}
