package producers

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/db"
)

type Repository interface {
	Insert(ctx context.Context, p *Producer) error
	Get(ctx context.Context, id string) (*Producer, error)
	GetMany(ctx context.Context, ids []string) ([]Producer, error)
	List(ctx context.Context, regionID string) ([]Producer, error)
	Update(ctx context.Context, p *Producer) error
	Delete(ctx context.Context, id string) (int64, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type Store struct{ db *sqlx.DB }

func NewStore(conn *sqlx.DB) *Store { return &Store{db: conn} }

const producerColumns = `id, name, description, founded_year, website, region_id, created_at, updated_at`

func regionRules(regionID string) apperr.MySQLRules {
	return apperr.MySQLRules{NoParent: apperr.NotFound("Region", regionID)}
}

func (s *Store) Insert(ctx context.Context, p *Producer) error {
	_, err := db.Conn(ctx, s.db).ExecContext(ctx,
		`INSERT INTO producers (id, name, description, founded_year, website, region_id) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.FoundedYear, p.Website, p.RegionID)
	return apperr.FromMySQL(err, regionRules(p.RegionID))
}

func (s *Store) Get(ctx context.Context, id string) (*Producer, error) {
	var p Producer
	err := db.Conn(ctx, s.db).GetContext(ctx, &p, `SELECT `+producerColumns+` FROM producers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Producer", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetMany(ctx context.Context, ids []string) ([]Producer, error) {
	out := []Producer{}
	if len(ids) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT `+producerColumns+` FROM producers WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	err = db.Conn(ctx, s.db).SelectContext(ctx, &out, q, args...)
	return out, err
}

// List returns all producers, or only those of regionID when it is set.
func (s *Store) List(ctx context.Context, regionID string) ([]Producer, error) {
	out := []Producer{}
	q := `SELECT ` + producerColumns + ` FROM producers`
	var args []any
	if regionID != "" {
		q += ` WHERE region_id = ?`
		args = append(args, regionID)
	}
	err := db.Conn(ctx, s.db).SelectContext(ctx, &out, q+` ORDER BY name, id`, args...)
	return out, err
}

func (s *Store) Update(ctx context.Context, p *Producer) error {
	_, err := db.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE producers SET name = ?, description = ?, founded_year = ?, website = ?, region_id = ? WHERE id = ?`,
		p.Name, p.Description, p.FoundedYear, p.Website, p.RegionID, p.ID)
	return apperr.FromMySQL(err, regionRules(p.RegionID))
}

func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := db.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM producers WHERE id = ?`, id)
	if err != nil {
		return 0, apperr.FromMySQL(err, apperr.MySQLRules{
			Referenced: apperr.BusinessRule("Cannot delete producer with existing wines"),
		})
	}
	return res.RowsAffected()
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := db.Conn(ctx, s.db).GetContext(ctx, &ok, `SELECT EXISTS(SELECT 1 FROM producers WHERE id = ?)`, id)
	return ok, err
}
