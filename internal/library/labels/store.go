package labels

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/jmoiron/sqlx"

	"library-backend/internal/library/books"
	"library-backend/internal/platform/db"
)

type Repository interface {
	Rows(ctx context.Context, f books.Filter) ([]Row, error)
}

type Store struct{ db *sqlx.DB }

func NewStore(conn *sqlx.DB) *Store { return &Store{db: conn} }

var dialect = goqu.Dialect("mysql")

// Rows returns one label per matching book, ordered by shelf then title so
// a printed sheet follows the shelves.
func (s *Store) Rows(ctx context.Context, f books.Filter) ([]Row, error) {
	ds := dialect.From(goqu.T("books").As("b")).Prepared(true).
		Join(goqu.T("authors").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("b.author_id")))).
		Select(
			goqu.I("b.isbn"),
			goqu.I("b.title"),
			goqu.L("CONCAT(a.first_name, ' ', a.last_name)").As("author"),
			goqu.I("b.location"),
			goqu.I("b.status"),
		)
	if f.Status != "" {
		ds = ds.Where(goqu.I("b.status").Eq(string(f.Status)))
	}
	if f.Genre != "" {
		ds = ds.Where(goqu.Func("LOWER", goqu.I("b.genre")).Eq(strings.ToLower(f.Genre)))
	}
	if f.AuthorID != "" {
		ds = ds.Where(goqu.I("b.author_id").Eq(f.AuthorID))
	}
	q, args, err := ds.Order(goqu.I("b.location").Asc(), goqu.I("b.title").Asc()).ToSQL()
	if err != nil {
		return nil, err
	}

	out := []Row{}
	if err := db.Conn(ctx, s.db).SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}
