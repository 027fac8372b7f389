package regions

import (
	"database/sql"
	"time"

	"library-backend/internal/platform/db"
)

type Region struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Country     string         `db:"country"`
	Description sql.NullString `db:"description"`
	Climate     sql.NullString `db:"climate"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type CreateRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=200"`
	Country     string  `json:"country" binding:"required,min=1,max=100"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=500"`
	Climate     *string `json:"climate,omitempty" binding:"omitempty,max=200"`
}

// UpdateRequest changes only the fields that are present.
type UpdateRequest struct {
	Name        *string `json:"name,omitempty" binding:"omitempty,min=1,max=200"`
	Country     *string `json:"country,omitempty" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=500"`
	Climate     *string `json:"climate,omitempty" binding:"omitempty,max=200"`
}

func (in UpdateRequest) apply(r *Region) {
	if in.Name != nil {
		r.Name = *in.Name
	}
	if in.Country != nil {
		r.Country = *in.Country
	}
	if in.Description != nil {
		r.Description = db.NullString(in.Description)
	}
	if in.Climate != nil {
		r.Climate = db.NullString(in.Climate)
	}
}

type RegionResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	Description *string `json:"description,omitempty"`
	Climate     *string `json:"climate,omitempty"`
}

func toResponse(r *Region) RegionResponse {
	return RegionResponse{
		ID:          r.ID,
		Name:        r.Name,
		Country:     r.Country,
		Description: db.StringPtr(r.Description),
		Climate:     db.StringPtr(r.Climate),
	}
}
