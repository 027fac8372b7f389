package authors

import (
	"database/sql"
	"time"

	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/db"
)

type Author struct {
	ID          string         `db:"id"`
	FirstName   string         `db:"first_name"`
	LastName    string         `db:"last_name"`
	Biography   sql.NullString `db:"biography"`
	BirthDate   sql.NullTime   `db:"birth_date"`
	Nationality sql.NullString `db:"nationality"`
	Email       sql.NullString `db:"email"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (a *Author) FullName() string { return a.FirstName + " " + a.LastName }

// AuthorRequest is the body of both create and update.
type AuthorRequest struct {
	FirstName   string  `json:"first_name" binding:"required,min=1,max=100"`
	LastName    string  `json:"last_name" binding:"required,min=1,max=100"`
	Biography   *string `json:"biography,omitempty" binding:"omitempty,max=1000"`
	BirthDate   *string `json:"birth_date,omitempty" binding:"omitempty,datetime=2006-01-02"`
	Nationality *string `json:"nationality,omitempty" binding:"omitempty,max=100"`
	Email       *string `json:"email,omitempty" binding:"omitempty,email,max=255"`
}

type AuthorResponse struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	FullName    string    `json:"full_name"`
	Biography   *string   `json:"biography,omitempty"`
	BirthDate   *string   `json:"birth_date,omitempty"`
	Nationality *string   `json:"nationality,omitempty"`
	Email       *string   `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toResponse(a *Author) AuthorResponse {
	return AuthorResponse{
		ID:          a.ID,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		FullName:    a.FullName(),
		Biography:   db.StringPtr(a.Biography),
		BirthDate:   db.DatePtr(a.BirthDate),
		Nationality: db.StringPtr(a.Nationality),
		Email:       db.StringPtr(a.Email),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toResponses(list []Author) []AuthorResponse {
	out := make([]AuthorResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	return out
}

// apply copies the request onto a. Validation has already checked the date format.
func (in AuthorRequest) apply(a *Author) {
	a.FirstName = in.FirstName
	a.LastName = in.LastName
	a.Biography = db.NullString(in.Biography)
	a.Nationality = db.NullString(in.Nationality)
	a.Email = db.NullString(in.Email)
	a.BirthDate = sql.NullTime{}
	if in.BirthDate != nil && *in.BirthDate != "" {
		if d, err := clock.ParseDate(*in.BirthDate); err == nil {
			a.BirthDate = sql.NullTime{Time: d, Valid: true}
		}
	}
}
