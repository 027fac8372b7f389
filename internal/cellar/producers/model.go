package producers

import (
	"database/sql"
	"time"

	"library-backend/internal/cellar/regions"
	"library-backend/internal/platform/db"
)

type Producer struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	FoundedYear sql.NullInt32  `db:"founded_year"`
	Website     sql.NullString `db:"website"`
	RegionID    string         `db:"region_id"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type CreateRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=200"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=500"`
	FoundedYear *int    `json:"founded_year,omitempty" binding:"omitempty,min=1000"`
	Website     *string `json:"website,omitempty" binding:"omitempty,max=255"`
	RegionID    string  `json:"region_id" binding:"required"`
}

// UpdateRequest: name is always required, the rest is applied only when present.
type UpdateRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=200"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=500"`
	FoundedYear *int    `json:"founded_year,omitempty" binding:"omitempty,min=1000"`
	Website     *string `json:"website,omitempty" binding:"omitempty,max=255"`
	RegionID    *string `json:"region_id,omitempty" binding:"omitempty,min=1"`
}

func (in UpdateRequest) apply(p *Producer) {
	p.Name = in.Name
	if in.Description != nil {
		p.Description = db.NullString(in.Description)
	}
	if in.FoundedYear != nil {
		p.FoundedYear = db.NullInt32(in.FoundedYear)
	}
	if in.Website != nil {
		p.Website = db.NullString(in.Website)
	}
	if in.RegionID != nil {
		p.RegionID = *in.RegionID
	}
}

type ProducerResponse struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Description *string                 `json:"description,omitempty"`
	FoundedYear *int                    `json:"founded_year,omitempty"`
	Website     *string                 `json:"website,omitempty"`
	RegionID    string                  `json:"region_id"`
	Region      *regions.RegionResponse `json:"region,omitempty"`
}

func toResponse(p *Producer, region *regions.RegionResponse) ProducerResponse {
	return ProducerResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: db.StringPtr(p.Description),
		FoundedYear: db.IntPtr(p.FoundedYear),
		Website:     db.StringPtr(p.Website),
		RegionID:    p.RegionID,
		Region:      region,
	}
}
