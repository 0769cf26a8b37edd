package domain

import "time"

// Loan is a single entry in the permanent borrow ledger. It is created by a
// successful borrow and mutated exactly once, by the matching return, to set
// ReturnedAt. Ledger entries are never deleted.
type Loan struct {
	ID         string
	BookID     string
	UserID     string
	BorrowedAt time.Time
	ReturnedAt *time.Time
}

// Open reports whether the loan has not been returned yet.
func (l Loan) Open() bool {
	return l.ReturnedAt == nil
}

// LoanDetail is a ledger entry joined with book metadata for history views.
type LoanDetail struct {
	Loan
	BookTitle  string
	BookAuthor string
}
