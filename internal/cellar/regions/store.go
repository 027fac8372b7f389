package regions

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/db"
)

type Repository interface {
	Insert(ctx context.Context, r *Region) error
	Get(ctx context.Context, id string) (*Region, error)
	GetMany(ctx context.Context, ids []string) ([]Region, error)
	List(ctx context.Context) ([]Region, error)
	Update(ctx context.Context, r *Region) error
	Delete(ctx context.Context, id string) (int64, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type Store struct{ db *sqlx.DB }

func NewStore(conn *sqlx.DB) *Store { return &Store{db: conn} }

const regionColumns = `id, name, country, description, climate, created_at, updated_at`

func (s *Store) Insert(ctx context.Context, r *Region) error {
	_, err := db.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO regions (id, name, country, description, climate) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Country, r.Description, r.Climate)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*Region, error) {
	var r Region
	err := db.Conn(ctx, s.db).GetContext(ctx, &r, `SELECT `+regionColumns+` FROM regions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Region", id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetMany(ctx context.Context, ids []string) ([]Region, error) {
	out := []Region{}
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT `+regionColumns+` FROM regions WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	err = db.Conn(ctx, s.db).SelectContext(ctx, &out, q, args...)
	return out, err
}

func (s *Store) List(ctx context.Context) ([]Region, error) {
	out := []Region{}
	err := db.Conn(ctx, s.db).SelectContext(ctx, &out, `SELECT `+regionColumns+` FROM regions ORDER BY country, name`)
	return out, err
}

func (s *Store) Update(ctx context.Context, r *Region) error {
	_, err := db.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE regions SET name = ?, country = ?, description = ?, climate = ? WHERE id = ?`,
		r.Name, r.Country, r.Description, r.Climate, r.ID)
	return err
}

func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := db.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM regions WHERE id = ?`, id)
	if err != nil {
		return 0, apperr.FromMySQL(err, apperr.MySQLRules{
			Referenced: apperr.BusinessRule("Cannot delete region referenced by producers or wines"),
		})
	}
	return res.RowsAffected()
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := db.Conn(ctx, s.db).GetContext(ctx, &ok, `SELECT EXISTS(SELECT 1 FROM regions WHERE id = ?)`, id)
	return ok, err
}
