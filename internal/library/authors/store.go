package authors

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/db"
)

type Repository interface {
	Insert(ctx context.Context, a *Author) error
	Get(ctx context.Context, id string) (*Author, error)
	GetMany(ctx context.Context, ids []string) ([]Author, error)
	List(ctx context.Context, nationality string) ([]Author, error)
	SearchByName(ctx context.Context, term string) ([]Author, error)
	Update(ctx context.Context, a *Author) error
	Delete(ctx context.Context, id string) (int64, error)
	Exists(ctx context.Context, id string) (bool, error)
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
}

type Store struct{ db *sqlx.DB }

func NewStore(conn *sqlx.DB) *Store { return &Store{db: conn} }

const authorColumns = `id, first_name, last_name, biography, birth_date, nationality, email, created_at, updated_at`

func (s *Store) Insert(ctx context.Context, a *Author) error {
	const q = `
	INSERT INTO authors (id, first_name, last_name, biography, birth_date, nationality, email)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.Conn(ctx, s.db).ExecContext(ctx, q,
		a.ID, a.FirstName, a.LastName, a.Biography, a.BirthDate, a.Nationality, a.Email)
	return apperr.FromMySQL(err, apperr.MySQLRules{
		Duplicate: apperr.Duplicate("Author with email %s already exists", a.Email.String),
	})
}

func (s *Store) Get(ctx context.Context, id string) (*Author, error) {
	q := `SELECT ` + authorColumns + ` FROM authors WHERE id = ?`
	var a Author
	if err := db.Conn(ctx, s.db).GetContext(ctx, &a, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("Author", id)
		}
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetMany(ctx context.Context, ids []string) ([]Author, error) {
	if len(ids) == 0 {
		return []Author{}, nil
	}
	q, args, err := sqlx.In(`SELECT `+authorColumns+` FROM authors WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	out := []Author{}
	if err := db.Conn(ctx, s.db).SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns every author, or only those of nationality (case-insensitive) when set.
func (s *Store) List(ctx context.Context, nationality string) ([]Author, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + authorColumns + ` FROM authors WHERE 1=1`)
	args := []any{}
	if nationality != "" {
		sb.WriteString(` AND LOWER(nationality) = LOWER(?)`)
		args = append(args, nationality)
	}
	sb.WriteString(` ORDER BY last_name, first_name`)

	out := []Author{}
	if err := db.Conn(ctx, s.db).SelectContext(ctx, &out, sb.String(), args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SearchByName(ctx context.Context, term string) ([]Author, error) {
	q := `SELECT ` + authorColumns + ` FROM authors
	WHERE LOWER(CONCAT(first_name, ' ', last_name)) LIKE CONCAT('%', LOWER(?), '%')
	ORDER BY last_name, first_name`
	out := []Author{}
	if err := db.Conn(ctx, s.db).SelectContext(ctx, &out, q, term); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, a *Author) error {
	const q = `
	UPDATE authors
	SET first_name = ?, last_name = ?, biography = ?, birth_date = ?, nationality = ?, email = ?
	WHERE id = ?`
	_, err := db.Conn(ctx, s.db).ExecContext(ctx, q,
		a.FirstName, a.LastName, a.Biography, a.BirthDate, a.Nationality, a.Email, a.ID)
	return apperr.FromMySQL(err, apperr.MySQLRules{
		Duplicate: apperr.Duplicate("Author with email %s already exists", a.Email.String),
	})
}

func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := db.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM authors WHERE id = ?`, id)
	if err != nil {
		return 0, apperr.FromMySQL(err, apperr.MySQLRules{
			Referenced: apperr.BusinessRule("Cannot delete author with existing books"),
		})
	}
	return res.RowsAffected()
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := db.Conn(ctx, s.db).GetContext(ctx, &ok, `SELECT EXISTS(SELECT 1 FROM authors WHERE id = ?)`, id)
	return ok, err
}

// EmailTaken reports whether another author (not exceptID) already uses email.
func (s *Store) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var ok bool
	err := db.Conn(ctx, s.db).GetContext(ctx, &ok,
		`SELECT EXISTS(SELECT 1 FROM authors WHERE email = ? AND id <> ?)`, email, exceptID)
	return ok, err
}
