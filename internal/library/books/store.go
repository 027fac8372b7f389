package books

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/jmoiron/sqlx"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/db"
)

type Repository interface {
	Insert(ctx context.Context, b *Book) error
	Get(ctx context.Context, id string) (*Book, error)
	GetForUpdate(ctx context.Context, id string) (*Book, error)
	GetMany(ctx context.Context, ids []string) ([]Book, error)
	GetByISBN(ctx context.Context, isbn string) (*Book, error)
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)
	List(ctx context.Context, f Filter) ([]Book, error)
	Search(ctx context.Context, term string) ([]Book, error)
	Update(ctx context.Context, b *Book) error
	UpdateStatus(ctx context.Context, id string, st Status) error
	Delete(ctx context.Context, id string) (int64, error)
	HasOpenBorrowing(ctx context.Context, id string) (bool, error)
}

type Store struct{ db *sqlx.DB }

func NewStore(conn *sqlx.DB) *Store { return &Store{db: conn} }

var dialect = goqu.Dialect("mysql")

const (
	tableBooks  = "books"
	bookColumns = `id, isbn, title, publisher, publication_year, genre, status, date_added, location, author_id, created_at, updated_at`
)

var bookColumnList = []any{
	"id", "isbn", "title", "publisher", "publication_year", "genre",
	"status", "date_added", "location", "author_id", "created_at", "updated_at",
}

func isbnRules(b *Book) apperr.MySQLRules {
	return apperr.MySQLRules{
		Duplicate: apperr.Duplicate("Book with ISBN %s already exists", b.ISBN),
		NoParent:  apperr.NotFound("Author", b.AuthorID),
	}
}

func (s *Store) Insert(ctx context.Context, b *Book) error {
	const q = `
	INSERT INTO books (id, isbn, title, publisher, publication_year, genre, status, date_added, location, author_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.Conn(ctx, s.db).ExecContext(ctx, q,
		b.ID, b.ISBN, b.Title, b.Publisher, b.PublicationYear, b.Genre,
		b.Status, b.DateAdded, b.Location, b.AuthorID)
	return apperr.FromMySQL(err, isbnRules(b))
}

func (s *Store) Get(ctx context.Context, id string) (*Book, error) {
	return s.getOne(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id, apperr.NotFound("Book", id))
}

// GetForUpdate row-locks the book until the surrounding transaction ends.
func (s *Store) GetForUpdate(ctx context.Context, id string) (*Book, error) {
	return s.getOne(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ? FOR UPDATE`, id, apperr.NotFound("Book", id))
}

func (s *Store) GetByISBN(ctx context.Context, isbn string) (*Book, error) {
	return s.getOne(ctx, `SELECT `+bookColumns+` FROM books WHERE isbn = ?`, isbn, apperr.NotFoundBy("Book", "ISBN", isbn))
}

func (s *Store) getOne(ctx context.Context, q, arg string, notFound error) (*Book, error) {
	var b Book
	if err := db.Conn(ctx, s.db).GetContext(ctx, &b, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *Store) GetMany(ctx context.Context, ids []string) ([]Book, error) {
	if len(ids) == 0 {
		return []Book{}, nil
	}
	q, args, err := sqlx.In(`SELECT `+bookColumns+` FROM books WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	out := []Book{}
	if err := db.Conn(ctx, s.db).SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	var ok bool
	err := db.Conn(ctx, s.db).GetContext(ctx, &ok, `SELECT EXISTS(SELECT 1 FROM books WHERE isbn = ?)`, isbn)
	return ok, err
}

func (s *Store) List(ctx context.Context, f Filter) ([]Book, error) {
	ds := dialect.From(tableBooks).Prepared(true).Select(bookColumnList...)
	if f.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(f.Status)))
	}
	if f.Genre != "" {
		ds = ds.Where(goqu.Func("LOWER", goqu.C("genre")).Eq(strings.ToLower(f.Genre)))
	}
	if f.AuthorID != "" {
		ds = ds.Where(goqu.C("author_id").Eq(f.AuthorID))
	}
	return s.selectBooks(ctx, ds.Order(goqu.C("title").Asc(), goqu.C("id").Asc()))
}

// Search matches term as a case-insensitive substring of title, ISBN or publisher.
func (s *Store) Search(ctx context.Context, term string) ([]Book, error) {
	// mysql dialect renders ILike as plain LIKE (Like becomes LIKE BINARY)
	like := "%" + term + "%"
	ds := dialect.From(tableBooks).Prepared(true).Select(bookColumnList...).
		Where(goqu.Or(
			goqu.C("title").ILike(like),
			goqu.C("isbn").ILike(like),
			goqu.C("publisher").ILike(like),
		)).
		Order(goqu.C("title").Asc(), goqu.C("id").Asc())
	return s.selectBooks(ctx, ds)
}

func (s *Store) selectBooks(ctx context.Context, ds *goqu.SelectDataset) ([]Book, error) {
	q, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}
	out := []Book{}
	if err := db.Conn(ctx, s.db).SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, b *Book) error {
	const q = `
	UPDATE books
	SET isbn = ?, title = ?, publisher = ?, publication_year = ?, genre = ?, location = ?, author_id = ?
	WHERE id = ?`
	_, err := db.Conn(ctx, s.db).ExecContext(ctx, q,
		b.ISBN, b.Title, b.Publisher, b.PublicationYear, b.Genre, b.Location, b.AuthorID, b.ID)
	return apperr.FromMySQL(err, isbnRules(b))
}

// UpdateStatus does not check affected rows: MySQL reports 0 when the
// status is unchanged, and callers have already locked the row.
func (s *Store) UpdateStatus(ctx context.Context, id string, st Status) error {
	_, err := db.Conn(ctx, s.db).ExecContext(ctx, `UPDATE books SET status = ? WHERE id = ?`, st, id)
	return err
}

func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := db.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// HasOpenBorrowing reports whether the book is on an ACTIVE or OVERDUE loan.
func (s *Store) HasOpenBorrowing(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := db.Conn(ctx, s.db).GetContext(ctx, &ok,
		`SELECT EXISTS(SELECT 1 FROM borrowing_records WHERE book_id = ? AND status IN ('ACTIVE', 'OVERDUE'))`, id)
	return ok, err
}
