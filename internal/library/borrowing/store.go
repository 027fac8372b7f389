package borrowing

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"github.com/jmoiron/sqlx"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/db"
)

type Repository interface {
	Insert(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	GetForUpdate(ctx context.Context, id string) (*Record, error)
	HasOpenForBook(ctx context.Context, bookID string) (bool, error)
	CountActiveByEmail(ctx context.Context, email string) (int, error)
	MarkReturned(ctx context.Context, id string, on time.Time) error
	MarkOverdue(ctx context.Context, id string) (bool, error)
	ListDueBefore(ctx context.Context, day time.Time) ([]Record, error)
	ListOverdue(ctx context.Context, today time.Time) ([]Record, error)
	ListByBook(ctx context.Context, bookID string) ([]Record, error)
	List(ctx context.Context, f Filter) ([]Record, error)
}

type Store struct{ db *sqlx.DB }

func NewStore(conn *sqlx.DB) *Store { return &Store{db: conn} }

var dialect = goqu.Dialect("mysql")

const (
	tableRecords  = "borrowing_records"
	recordColumns = `id, book_id, borrower_name, borrower_email, borrow_date, due_date, return_date, status, notes, created_at, updated_at`
)

var recordColumnList = []any{
	"id", "book_id", "borrower_name", "borrower_email", "borrow_date", "due_date",
	"return_date", "status", "notes", "created_at", "updated_at",
}

// Insert relies on uq_borrowing_open_book to reject a second open loan on the same book.
func (s *Store) Insert(ctx context.Context, r *Record) error {
	const q = `
	INSERT INTO borrowing_records (id, book_id, borrower_name, borrower_email, borrow_date, due_date, status, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.Conn(ctx, s.db).ExecContext(ctx, q,
		r.ID, r.BookID, r.BorrowerName, r.BorrowerEmail, r.BorrowDate, r.DueDate, r.Status, r.Notes)
	return apperr.FromMySQL(err, apperr.MySQLRules{
		Duplicate: apperr.BusinessRule("Book is already borrowed"),
		NoParent:  apperr.NotFound("Book", r.BookID),
	})
}

func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	return s.getOne(ctx, `SELECT `+recordColumns+` FROM borrowing_records WHERE id = ?`, id)
}

func (s *Store) GetForUpdate(ctx context.Context, id string) (*Record, error) {
	return s.getOne(ctx, `SELECT `+recordColumns+` FROM borrowing_records WHERE id = ? FOR UPDATE`, id)
}

func (s *Store) getOne(ctx context.Context, q, id string) (*Record, error) {
	var r Record
	if err := db.Conn(ctx, s.db).GetContext(ctx, &r, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("BorrowingRecord", id)
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) HasOpenForBook(ctx context.Context, bookID string) (bool, error) {
	var n int
	err := db.Conn(ctx, s.db).GetContext(ctx, &n,
		`SELECT COUNT(*) FROM borrowing_records WHERE book_id = ? AND status IN ('ACTIVE', 'OVERDUE') FOR UPDATE`, bookID)
	return n > 0, err
}

// CountActiveByEmail locks the borrower's ACTIVE rows so two concurrent
// borrows by the same person cannot both pass the limit check.
func (s *Store) CountActiveByEmail(ctx context.Context, email string) (int, error) {
	var n int
	err := db.Conn(ctx, s.db).GetContext(ctx, &n,
		`SELECT COUNT(*) FROM borrowing_records WHERE borrower_email = ? AND status = 'ACTIVE' FOR UPDATE`, email)
	return n, err
}

func (s *Store) MarkReturned(ctx context.Context, id string, on time.Time) error {
	const q = `UPDATE borrowing_records SET status = 'RETURNED', return_date = ? WHERE id = ?`
	res, err := db.Conn(ctx, s.db).ExecContext(ctx, q, on, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return apperr.NotFound("BorrowingRecord", id)
	}
	return nil
}

// MarkOverdue flips one record only if it is still ACTIVE. false means a
// concurrent return or an earlier sweep got there first.
func (s *Store) MarkOverdue(ctx context.Context, id string) (bool, error) {
	res, err := db.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE borrowing_records SET status = 'OVERDUE' WHERE id = ? AND status = 'ACTIVE'`, id)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	return aff == 1, err
}

func (s *Store) ListDueBefore(ctx context.Context, day time.Time) ([]Record, error) {
	ds := s.base().
		Where(goqu.C("status").Eq(string(StatusActive)), goqu.C("due_date").Lt(day)).
		Order(goqu.C("due_date").Asc(), goqu.C("id").Asc())
	return s.selectRecords(ctx, ds)
}

// ListOverdue includes ACTIVE loans past due that the sweep has not reached yet.
func (s *Store) ListOverdue(ctx context.Context, today time.Time) ([]Record, error) {
	ds := s.base().
		Where(goqu.Or(
			goqu.C("status").Eq(string(StatusOverdue)),
			goqu.And(goqu.C("status").Eq(string(StatusActive)), goqu.C("due_date").Lt(today)),
		)).
		Order(goqu.C("due_date").Asc(), goqu.C("id").Asc())
	return s.selectRecords(ctx, ds)
}

func (s *Store) ListByBook(ctx context.Context, bookID string) ([]Record, error) {
	ds := s.base().
		Where(goqu.C("book_id").Eq(bookID)).
		Order(goqu.C("borrow_date").Desc(), goqu.C("id").Desc())
	return s.selectRecords(ctx, ds)
}

// List ANDs together whichever filters are set. The date range is
// inclusive and applies to the borrow date.
func (s *Store) List(ctx context.Context, f Filter) ([]Record, error) {
	ds := s.base()
	if f.Status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(f.Status)))
	}
	if f.BorrowerEmail != "" {
		ds = ds.Where(goqu.C("borrower_email").Eq(f.BorrowerEmail))
	}
	if f.From != nil {
		ds = ds.Where(goqu.C("borrow_date").Gte(*f.From))
	}
	if f.To != nil {
		ds = ds.Where(goqu.C("borrow_date").Lte(*f.To))
	}
	return s.selectRecords(ctx, ds.Order(goqu.C("borrow_date").Desc(), goqu.C("id").Desc()))
}

func (s *Store) base() *goqu.SelectDataset {
	return dialect.From(tableRecords).Prepared(true).Select(recordColumnList...)
}

func (s *Store) selectRecords(ctx context.Context, ds *goqu.SelectDataset) ([]Record, error) {
	q, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}
	out := []Record{}
	if err := db.Conn(ctx, s.db).SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}
