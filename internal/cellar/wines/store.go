package wines

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/jmoiron/sqlx"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/db"
)

type Repository interface {
	Insert(ctx context.Context, w *Wine) error
	Get(ctx context.Context, id string) (*Wine, error)
	List(ctx context.Context) ([]Wine, error)
	Search(ctx context.Context, c SearchCriteria) ([]Wine, error)
	Update(ctx context.Context, w *Wine) error
	Delete(ctx context.Context, id string) (int64, error)
}

type Store struct{ db *sqlx.DB }

func NewStore(conn *sqlx.DB) *Store { return &Store{db: conn} }

const tableWines = "wines"

var dialect = goqu.Dialect("mysql")

var wineColumnList = []any{
	"id", "name", "vintage", "alcohol_content", "color", "drinking_date",
	"personal_rating", "tasting_notes", "price", "producer_id", "region_id",
	"created_at", "updated_at",
}

// an FK violation here means a delete raced past the service pre-check
var parentRules = apperr.MySQLRules{
	NoParent: apperr.Invalid("producer_id or region_id does not reference an existing row"),
}

func (s *Store) Insert(ctx context.Context, w *Wine) error {
	_, err := db.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO wines (id, name, vintage, alcohol_content, color, drinking_date, personal_rating, tasting_notes, price, producer_id, region_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Vintage, w.AlcoholContent, w.Color, w.DrinkingDate,
		w.PersonalRating, w.TastingNotes, w.Price, w.ProducerID, w.RegionID)
	return apperr.FromMySQL(err, parentRules)
}

func (s *Store) Get(ctx context.Context, id string) (*Wine, error) {
	q, args, err := dialect.From(tableWines).Prepared(true).Select(wineColumnList...).
		Where(goqu.C("id").Eq(id)).ToSQL()
	if err != nil {
		return nil, err
	}
	var w Wine
	err = db.Conn(ctx, s.db).GetContext(ctx, &w, q, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Wine", id)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Store) List(ctx context.Context) ([]Wine, error) {
	return s.selectWines(ctx, s.ordered(dialect.From(tableWines).Prepared(true).Select(wineColumnList...)))
}

// Search matches name as a case-insensitive substring; vintage and rating by equality.
func (s *Store) Search(ctx context.Context, c SearchCriteria) ([]Wine, error) {
	ds := dialect.From(tableWines).Prepared(true).Select(wineColumnList...)
	if c.Name != "" {
		ds = ds.Where(goqu.C("name").ILike("%" + c.Name + "%"))
	}
	if c.Vintage != nil {
		ds = ds.Where(goqu.C("vintage").Eq(*c.Vintage))
	}
	if c.Rating != nil {
		ds = ds.Where(goqu.C("personal_rating").Eq(*c.Rating))
	}
	return s.selectWines(ctx, s.ordered(ds))
}

func (s *Store) ordered(ds *goqu.SelectDataset) *goqu.SelectDataset {
	return ds.Order(goqu.C("name").Asc(), goqu.C("vintage").Desc(), goqu.C("id").Asc())
}

func (s *Store) selectWines(ctx context.Context, ds *goqu.SelectDataset) ([]Wine, error) {
	q, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}
	out := []Wine{}
	if err := db.Conn(ctx, s.db).SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, w *Wine) error {
	_, err := db.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE wines SET name = ?, vintage = ?, alcohol_content = ?, color = ?, drinking_date = ?,
		 personal_rating = ?, tasting_notes = ?, price = ?, producer_id = ?, region_id = ? WHERE id = ?`,
		w.Name, w.Vintage, w.AlcoholContent, w.Color, w.DrinkingDate,
		w.PersonalRating, w.TastingNotes, w.Price, w.ProducerID, w.RegionID, w.ID)
	return apperr.FromMySQL(err, parentRules)
}

func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := db.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM wines WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
