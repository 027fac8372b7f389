package borrowing

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"library-backend/internal/library/books"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/db"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusReturned Status = "RETURNED"
	StatusOverdue  Status = "OVERDUE"
)

const (
	DefaultLoanPeriodDays = 14
	DefaultMaxActive      = 3
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusActive, StatusReturned, StatusOverdue:
		return st, nil
	}
	return "", fmt.Errorf("status must be one of %s, %s, %s", StatusActive, StatusReturned, StatusOverdue)
}

// Record is one row of borrowing_records.
type Record struct {
	ID            string         `db:"id"`
	BookID        string         `db:"book_id"`
	BorrowerName  string         `db:"borrower_name"`
	BorrowerEmail string         `db:"borrower_email"`
	BorrowDate    time.Time      `db:"borrow_date"`
	DueDate       time.Time      `db:"due_date"`
	ReturnDate    sql.NullTime   `db:"return_date"`
	Status        Status         `db:"status"`
	Notes         sql.NullString `db:"notes"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// IsOpen reports whether the loan still holds the book.
func (r *Record) IsOpen() bool { return r.Status == StatusActive || r.Status == StatusOverdue }

// IsOverdue is true once swept, or while ACTIVE after the due date.
func (r *Record) IsOverdue(today time.Time) bool {
	switch r.Status {
	case StatusOverdue:
		return true
	case StatusActive:
		return clock.EpochDay(today) > clock.EpochDay(r.DueDate)
	}
	return false
}

// DaysOverdue counts whole days past the due date, 0 when not overdue.
func (r *Record) DaysOverdue(today time.Time) int {
	if !r.IsOverdue(today) {
		return 0
	}
	if d := clock.EpochDay(today) - clock.EpochDay(r.DueDate); d > 0 {
		return int(d)
	}
	return 0
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Status        Status
	BorrowerEmail string
	From          *time.Time
	To            *time.Time
}

type BorrowRequest struct {
	BorrowerName  string  `json:"borrower_name" binding:"required,min=1,max=255"`
	BorrowerEmail string  `json:"borrower_email" binding:"required,email,max=255"`
	Notes         *string `json:"notes,omitempty" binding:"omitempty,max=500"`
}

// normalize trims the borrower fields. A name of only spaces passes the
// binding tags, so emptiness is checked again after trimming.
func (in *BorrowRequest) normalize() error {
	in.BorrowerName = strings.TrimSpace(in.BorrowerName)
	in.BorrowerEmail = strings.TrimSpace(in.BorrowerEmail)
	fields := map[string]string{}
	if in.BorrowerName == "" {
		fields["borrower_name"] = "is required"
	}
	if in.BorrowerEmail == "" {
		fields["borrower_email"] = "is required"
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

type RecordResponse struct {
	ID            string              `json:"id"`
	BookID        string              `json:"book_id"`
	Book          *books.BookResponse `json:"book,omitempty"`
	BorrowerName  string              `json:"borrower_name"`
	BorrowerEmail string              `json:"borrower_email"`
	BorrowDate    string              `json:"borrow_date"`
	DueDate       string              `json:"due_date"`
	ReturnDate    *string             `json:"return_date,omitempty"`
	Status        Status              `json:"status"`
	Notes         *string             `json:"notes,omitempty"`
	Overdue       bool                `json:"overdue"`
	DaysOverdue   int                 `json:"days_overdue"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func toResponse(r *Record, book *books.BookResponse, today time.Time) RecordResponse {
	return RecordResponse{
		ID:            r.ID,
		BookID:        r.BookID,
		Book:          book,
		BorrowerName:  r.BorrowerName,
		BorrowerEmail: r.BorrowerEmail,
		BorrowDate:    clock.FormatDate(r.BorrowDate),
		DueDate:       clock.FormatDate(r.DueDate),
		ReturnDate:    db.DatePtr(r.ReturnDate),
		Status:        r.Status,
		Notes:         db.StringPtr(r.Notes),
		Overdue:       r.IsOverdue(today),
		DaysOverdue:   r.DaysOverdue(today),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// SweepResult is returned by the on-demand sweep endpoint.
type SweepResult struct {
	Marked int    `json:"marked"`
	Today  string `json:"today"`
}
