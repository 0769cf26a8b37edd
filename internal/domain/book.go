package domain

import "time"

// Book is the catalog aggregate. Available is mutated only by the borrowing
// lifecycle; title and author by admin catalog edits.
type Book struct {
	ID        string
	Title     string
	Author    string
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CatalogStats summarizes the catalog for dashboards.
type CatalogStats struct {
	TotalBooks     int `json:"total_books"`
	AvailableBooks int `json:"available_books"`
	IssuedBooks    int `json:"issued_books"`
}
