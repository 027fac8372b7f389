package books

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"library-backend/internal/library/authors"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/db"
)

type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusBorrowed  Status = "BORROWED"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusAvailable, StatusBorrowed:
		return st, nil
	}
	return "", fmt.Errorf("status must be one of %s, %s", StatusAvailable, StatusBorrowed)
}

type Book struct {
	ID              string         `db:"id"`
	ISBN            string         `db:"isbn"`
	Title           string         `db:"title"`
	Publisher       sql.NullString `db:"publisher"`
	PublicationYear sql.NullInt32  `db:"publication_year"`
	Genre           sql.NullString `db:"genre"`
	Status          Status         `db:"status"`
	DateAdded       time.Time      `db:"date_added"`
	Location        sql.NullString `db:"location"`
	AuthorID        string         `db:"author_id"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (b *Book) IsAvailable() bool { return b.Status == StatusAvailable }
func (b *Book) IsBorrowed() bool  { return b.Status == StatusBorrowed }

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Status   Status
	Genre    string
	AuthorID string
}

// BookRequest is the body of both create and update. Status and date added
// are owned by the catalog and cannot be set here.
type BookRequest struct {
	ISBN            string  `json:"isbn" binding:"required,min=10,max=17"`
	Title           string  `json:"title" binding:"required,min=1,max=255"`
	AuthorID        string  `json:"author_id" binding:"required"`
	Publisher       *string `json:"publisher,omitempty" binding:"omitempty,max=255"`
	PublicationYear *int    `json:"publication_year,omitempty" binding:"omitempty,min=1000,max=9999"`
	Genre           *string `json:"genre,omitempty" binding:"omitempty,max=100"`
	Location        *string `json:"location,omitempty" binding:"omitempty,max=100"`
}

// normalize trims isbn and title. The binding tags see the untrimmed
// values, so their lengths are checked again here.
func (in *BookRequest) normalize() error {
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Title = strings.TrimSpace(in.Title)

	fields := map[string]string{}
	switch n := utf8.RuneCountInString(in.ISBN); {
	case n == 0:
		fields["isbn"] = "is required"
	case n < 10:
		fields["isbn"] = "size must be at least 10"
	}
	if in.Title == "" {
		fields["title"] = "is required"
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

func (in BookRequest) apply(b *Book) {
	b.ISBN = in.ISBN
	b.Title = in.Title
	b.AuthorID = in.AuthorID
	b.Publisher = db.NullString(in.Publisher)
	b.PublicationYear = db.NullInt32(in.PublicationYear)
	b.Genre = db.NullString(in.Genre)
	b.Location = db.NullString(in.Location)
}

type BookResponse struct {
	ID              string                  `json:"id"`
	ISBN            string                  `json:"isbn"`
	Title           string                  `json:"title"`
	Publisher       *string                 `json:"publisher,omitempty"`
	PublicationYear *int                    `json:"publication_year,omitempty"`
	Genre           *string                 `json:"genre,omitempty"`
	Status          Status                  `json:"status"`
	DateAdded       string                  `json:"date_added"`
	Location        *string                 `json:"location,omitempty"`
	AuthorID        string                  `json:"author_id"`
	Author          *authors.AuthorResponse `json:"author,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

func toResponse(b *Book, author *authors.AuthorResponse) BookResponse {
	return BookResponse{
		ID:              b.ID,
		ISBN:            b.ISBN,
		Title:           b.Title,
		Publisher:       db.StringPtr(b.Publisher),
		PublicationYear: db.IntPtr(b.PublicationYear),
		Genre:           db.StringPtr(b.Genre),
		Status:          b.Status,
		DateAdded:       clock.FormatDate(b.DateAdded),
		Location:        db.StringPtr(b.Location),
		AuthorID:        b.AuthorID,
		Author:          author,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}
