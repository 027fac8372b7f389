package wines

import (
	"database/sql"
	"time"

	"library-backend/internal/cellar/producers"
	"library-backend/internal/cellar/regions"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/db"
)

type Wine struct {
	ID             string          `db:"id"`
	Name           string          `db:"name"`
	Vintage        sql.NullInt32   `db:"vintage"`
	AlcoholContent sql.NullFloat64 `db:"alcohol_content"`
	Color          string          `db:"color"`
	DrinkingDate   time.Time       `db:"drinking_date"`
	PersonalRating sql.NullInt32   `db:"personal_rating"`
	TastingNotes   sql.NullString  `db:"tasting_notes"`
	Price          sql.NullFloat64 `db:"price"`
	ProducerID     string          `db:"producer_id"`
	RegionID       string          `db:"region_id"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// SearchCriteria: empty / nil fields are ignored.
type SearchCriteria struct {
	Name    string
	Vintage *int
	Rating  *int
}

type CreateRequest struct {
	Name           string   `json:"name" binding:"required,min=1,max=200"`
	Vintage        *int     `json:"vintage,omitempty" binding:"omitempty,min=1800,max=2030"`
	AlcoholContent *float64 `json:"alcohol_content,omitempty" binding:"omitempty,min=0,max=50"`
	Color          string   `json:"color" binding:"required,max=50"`
	DrinkingDate   string   `json:"drinking_date" binding:"required,datetime=2006-01-02"`
	PersonalRating *int     `json:"personal_rating,omitempty" binding:"omitempty,min=1,max=10"`
	TastingNotes   *string  `json:"tasting_notes,omitempty" binding:"omitempty,max=1000"`
	Price          *float64 `json:"price,omitempty" binding:"omitempty,min=0"`
	ProducerID     string   `json:"producer_id" binding:"required"`
	RegionID       string   `json:"region_id" binding:"required"`
}

// UpdateRequest changes only the fields that are present.
type UpdateRequest struct {
	Name           *string  `json:"name,omitempty" binding:"omitempty,min=1,max=200"`
	Vintage        *int     `json:"vintage,omitempty" binding:"omitempty,min=1800,max=2030"`
	AlcoholContent *float64 `json:"alcohol_content,omitempty" binding:"omitempty,min=0,max=50"`
	Color          *string  `json:"color,omitempty" binding:"omitempty,min=1,max=50"`
	DrinkingDate   *string  `json:"drinking_date,omitempty" binding:"omitempty,datetime=2006-01-02"`
	PersonalRating *int     `json:"personal_rating,omitempty" binding:"omitempty,min=1,max=10"`
	TastingNotes   *string  `json:"tasting_notes,omitempty" binding:"omitempty,max=1000"`
	Price          *float64 `json:"price,omitempty" binding:"omitempty,min=0"`
	ProducerID     *string  `json:"producer_id,omitempty" binding:"omitempty,min=1"`
	RegionID       *string  `json:"region_id,omitempty" binding:"omitempty,min=1"`
}

// apply copies the optional fields. DrinkingDate and the references are
// handled by the service since they need checks first.
func (in UpdateRequest) apply(w *Wine) {
	if in.Name != nil {
		w.Name = *in.Name
	}
	if in.Vintage != nil {
		w.Vintage = db.NullInt32(in.Vintage)
	}
	if in.AlcoholContent != nil {
		w.AlcoholContent = db.NullFloat64(in.AlcoholContent)
	}
	if in.Color != nil {
		w.Color = *in.Color
	}
	if in.PersonalRating != nil {
		w.PersonalRating = db.NullInt32(in.PersonalRating)
	}
	if in.TastingNotes != nil {
		w.TastingNotes = db.NullString(in.TastingNotes)
	}
	if in.Price != nil {
		w.Price = db.NullFloat64(in.Price)
	}
}

type WineResponse struct {
	ID             string                      `json:"id"`
	Name           string                      `json:"name"`
	Vintage        *int                        `json:"vintage,omitempty"`
	AlcoholContent *float64                    `json:"alcohol_content,omitempty"`
	Color          string                      `json:"color"`
	DrinkingDate   string                      `json:"drinking_date"`
	PersonalRating *int                        `json:"personal_rating,omitempty"`
	TastingNotes   *string                     `json:"tasting_notes,omitempty"`
	Price          *float64                    `json:"price,omitempty"`
	ProducerID     string                      `json:"producer_id"`
	RegionID       string                      `json:"region_id"`
	Producer       *producers.ProducerResponse `json:"producer,omitempty"`
	Region         *regions.RegionResponse     `json:"region,omitempty"`
}

func toResponse(w *Wine, p *producers.ProducerResponse, r *regions.RegionResponse) WineResponse {
	return WineResponse{
		ID:             w.ID,
		Name:           w.Name,
		Vintage:        db.IntPtr(w.Vintage),
		AlcoholContent: db.FloatPtr(w.AlcoholContent),
		Color:          w.Color,
		DrinkingDate:   clock.FormatDate(w.DrinkingDate),
		PersonalRating: db.IntPtr(w.PersonalRating),
		TastingNotes:   db.StringPtr(w.TastingNotes),
		Price:          db.FloatPtr(w.Price),
		ProducerID:     w.ProducerID,
		RegionID:       w.RegionID,
		Producer:       p,
		Region:         r,
	}
}
