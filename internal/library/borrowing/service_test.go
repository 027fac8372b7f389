package borrowing

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"library-backend/internal/library/books"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/ids"
)

type nopTx struct{}

func (nopTx) RunInTx(ctx context.Context, fn func(context.Context) error) error  { return fn(ctx) }
func (nopTx) ReadOnly(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

type memRepo struct {
	rows map[string]Record
}

func newMemRepo() *memRepo { return &memRepo{rows: map[string]Record{}} }

func (m *memRepo) Insert(_ context.Context, r *Record) error {
	for _, o := range m.rows {
		if o.BookID == r.BookID && o.IsOpen() {
			return apperr.BusinessRule("Book is already borrowed")
		}
	}
	m.rows[r.ID] = *r
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (*Record, error) {
	r, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound("BorrowingRecord", id)
	}
	return &r, nil
}

func (m *memRepo) GetForUpdate(ctx context.Context, id string) (*Record, error) {
	return m.Get(ctx, id)
}

func (m *memRepo) HasOpenForBook(_ context.Context, bookID string) (bool, error) {
	for _, r := range m.rows {
		if r.BookID == bookID && r.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) CountActiveByEmail(_ context.Context, email string) (int, error) {
	n := 0
	for _, r := range m.rows {
		if r.Status == StatusActive && strings.EqualFold(r.BorrowerEmail, email) {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) MarkReturned(_ context.Context, id string, on time.Time) error {
	r := m.rows[id]
	r.Status = StatusReturned
	r.ReturnDate.Time, r.ReturnDate.Valid = on, true
	m.rows[id] = r
	return nil
}

func (m *memRepo) MarkOverdue(_ context.Context, id string) (bool, error) {
	r, ok := m.rows[id]
	if !ok || r.Status != StatusActive {
		return false, nil
	}
	r.Status = StatusOverdue
	m.rows[id] = r
	return true, nil
}

func (m *memRepo) ListDueBefore(_ context.Context, day time.Time) ([]Record, error) {
	return m.filter(func(r Record) bool { return r.Status == StatusActive && r.DueDate.Before(day) }), nil
}

func (m *memRepo) ListOverdue(_ context.Context, today time.Time) ([]Record, error) {
	return m.filter(func(r Record) bool { return r.IsOverdue(today) }), nil
}

func (m *memRepo) ListByBook(_ context.Context, bookID string) ([]Record, error) {
	return m.filter(func(r Record) bool { return r.BookID == bookID }), nil
}

func (m *memRepo) List(_ context.Context, f Filter) ([]Record, error) {
	return m.filter(func(r Record) bool {
		return (f.Status == "" || r.Status == f.Status) &&
			(f.BorrowerEmail == "" || strings.EqualFold(r.BorrowerEmail, f.BorrowerEmail)) &&
			(f.From == nil || !r.BorrowDate.Before(*f.From)) &&
			(f.To == nil || !r.BorrowDate.After(*f.To))
	}), nil
}

// filter returns matches ordered by borrow date, most recent first.
func (m *memRepo) filter(keep func(Record) bool) []Record {
	out := []Record{}
	for _, r := range m.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BorrowDate.Equal(out[j].BorrowDate) {
			return out[i].BorrowDate.After(out[j].BorrowDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

type memCatalog struct {
	books map[string]*books.Book
}

func (c *memCatalog) Lock(_ context.Context, id string) (*books.Book, error) {
	b, ok := c.books[id]
	if !ok {
		return nil, apperr.NotFound("Book", id)
	}
	cp := *b
	return &cp, nil
}

func (c *memCatalog) MarkBorrowed(_ context.Context, id string) error {
	b, ok := c.books[id]
	if !ok {
		return apperr.NotFound("Book", id)
	}
	if !b.IsAvailable() {
		return apperr.BusinessRule("Book is not available for borrowing")
	}
	b.Status = books.StatusBorrowed
	return nil
}

func (c *memCatalog) MarkAvailable(_ context.Context, id string) error {
	b, ok := c.books[id]
	if !ok {
		return apperr.NotFound("Book", id)
	}
	b.Status = books.StatusAvailable
	return nil
}

func (c *memCatalog) Lookup(_ context.Context, ids []string) (map[string]books.BookResponse, error) {
	out := map[string]books.BookResponse{}
	for _, id := range ids {
		if b, ok := c.books[id]; ok {
			out[id] = books.BookResponse{ID: b.ID, ISBN: b.ISBN, Title: b.Title, Status: b.Status}
		}
	}
	return out, nil
}

func (c *memCatalog) status(id string) books.Status { return c.books[id].Status }

// day 0 of every scenario
var day0 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	repo    *memRepo
	catalog *memCatalog
	clock   *clock.Fixed
}

func newFixture(bookCount int) *fixture {
	cat := &memCatalog{books: map[string]*books.Book{}}
	for i := 1; i <= bookCount; i++ {
		id := fmt.Sprintf("book-%d", i)
		cat.books[id] = &books.Book{ID: id, ISBN: fmt.Sprintf("978-000000000%d", i), Title: "Book " + id, Status: books.StatusAvailable}
	}
	repo := newMemRepo()
	clk := clock.NewFixed(day0)
	svc := NewService(repo, cat, nopTx{}, clk, ids.NewULID(), zap.NewNop(), Options{})
	return &fixture{svc: svc, repo: repo, catalog: cat, clock: clk}
}

func borrower(email string) BorrowRequest {
	return BorrowRequest{BorrowerName: "Reader", BorrowerEmail: email}
}

func TestBorrowAvailableBook(t *testing.T) {
	f := newFixture(1)
	res, err := f.svc.Borrow(context.Background(), "book-1", borrower("reader@example.com"))
	require.NoError(t, err)

	assert.Equal(t, StatusActive, res.Status)
	assert.Equal(t, "2024-01-01", res.BorrowDate)
	assert.Equal(t, "2024-01-15", res.DueDate)
	assert.Nil(t, res.ReturnDate)
	assert.False(t, res.Overdue)
	require.NotNil(t, res.Book)
	assert.Equal(t, books.StatusBorrowed, res.Book.Status)
	assert.Equal(t, books.StatusBorrowed, f.catalog.status("book-1"))

	active, err := f.svc.ByStatus(context.Background(), StatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestBorrowUnavailableBookChangesNothing(t *testing.T) {
	f := newFixture(1)
	f.catalog.books["book-1"].Status = books.StatusBorrowed

	_, err := f.svc.Borrow(context.Background(), "book-1", borrower("reader@example.com"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeBusinessRule))
	assert.Contains(t, err.Error(), "Book is not available for borrowing")
	assert.Empty(t, f.repo.rows)
	assert.Equal(t, books.StatusBorrowed, f.catalog.status("book-1"))
}

func TestBorrowUnknownBook(t *testing.T) {
	f := newFixture(0)
	_, err := f.svc.Borrow(context.Background(), "nope", borrower("reader@example.com"))
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	assert.Contains(t, err.Error(), "Book not found with id: nope")
}

func TestBorrowRejectsOpenRecordEvenIfBookLooksAvailable(t *testing.T) {
	f := newFixture(1)
	f.repo.rows["r0"] = Record{ID: "r0", BookID: "book-1", BorrowerEmail: "x@example.com", BorrowDate: day0, DueDate: day0.AddDate(0, 0, 14), Status: StatusActive}

	_, err := f.svc.Borrow(context.Background(), "book-1", borrower("reader@example.com"))
	assert.True(t, apperr.Is(err, apperr.CodeBusinessRule))
	assert.Contains(t, err.Error(), "Book is already borrowed")
	assert.Equal(t, books.StatusAvailable, f.catalog.status("book-1"))
}

func TestFourthBorrowIsRejected(t *testing.T) {
	f := newFixture(4)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		// email match ignores case
		email := "reader@example.com"
		if i == 2 {
			email = "Reader@Example.com"
		}
		_, err := f.svc.Borrow(ctx, fmt.Sprintf("book-%d", i), borrower(email))
		require.NoError(t, err)
	}

	_, err := f.svc.Borrow(ctx, "book-4", borrower("READER@example.com"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeBusinessRule))
	assert.Contains(t, err.Error(), "Maximum borrowing limit (3 books) reached for user: READER@example.com")
	assert.Equal(t, books.StatusAvailable, f.catalog.status("book-4"))

	_, err = f.svc.Borrow(ctx, "book-4", borrower("someone.else@example.com"))
	assert.NoError(t, err)
}

func TestReturnActiveRecord(t *testing.T) {
	f := newFixture(1)
	ctx := context.Background()
	rec, err := f.svc.Borrow(ctx, "book-1", borrower("reader@example.com"))
	require.NoError(t, err)

	f.clock.AddDays(3)
	res, err := f.svc.Return(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, res.Status)
	require.NotNil(t, res.ReturnDate)
	assert.Equal(t, "2024-01-04", *res.ReturnDate)
	assert.Equal(t, books.StatusAvailable, f.catalog.status("book-1"))
}

func TestReturnNonActiveRecordLeavesBookAlone(t *testing.T) {
	f := newFixture(1)
	ctx := context.Background()
	rec, err := f.svc.Borrow(ctx, "book-1", borrower("reader@example.com"))
	require.NoError(t, err)
	_, err = f.svc.Return(ctx, rec.ID)
	require.NoError(t, err)

	// someone else takes the book before the stale return arrives
	f.catalog.books["book-1"].Status = books.StatusBorrowed

	_, err = f.svc.Return(ctx, rec.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeBusinessRule))
	assert.Contains(t, err.Error(), "Borrowing record is not active")
	assert.Equal(t, books.StatusBorrowed, f.catalog.status("book-1"))

	_, err = f.svc.Return(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestSweepOverdue(t *testing.T) {
	f := newFixture(2)
	today := clock.Today(f.clock)
	f.repo.rows["late"] = Record{ID: "late", BookID: "book-1", BorrowerEmail: "a@example.com",
		BorrowDate: today.AddDate(0, 0, -20), DueDate: today.AddDate(0, 0, -6), Status: StatusActive}
	f.repo.rows["fine"] = Record{ID: "fine", BookID: "book-2", BorrowerEmail: "b@example.com",
		BorrowDate: today.AddDate(0, 0, -9), DueDate: today.AddDate(0, 0, 5), Status: StatusActive}

	n, err := f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	late, err := f.svc.Get(context.Background(), "late")
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, late.Status)
	assert.True(t, late.Overdue)
	assert.Equal(t, 6, late.DaysOverdue)

	fine, err := f.svc.Get(context.Background(), "fine")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, fine.Status)
	assert.False(t, fine.Overdue)
	assert.Equal(t, 0, fine.DaysOverdue)

	// second run finds nothing left to move
	n, err = f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSweepSkipsRecordReturnedSinceScan(t *testing.T) {
	f := newFixture(1)
	today := clock.Today(f.clock)
	f.repo.rows["r1"] = Record{ID: "r1", BookID: "book-1", DueDate: today.AddDate(0, 0, -1), Status: StatusActive}
	stale := &staleRepo{memRepo: f.repo}
	f.svc.repo = stale

	n, err := f.svc.SweepOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, StatusReturned, f.repo.rows["r1"].Status)
}

// staleRepo returns the scan result, then lets a return land before the update.
type staleRepo struct{ *memRepo }

func (s *staleRepo) ListDueBefore(ctx context.Context, day time.Time) ([]Record, error) {
	list, err := s.memRepo.ListDueBefore(ctx, day)
	for _, r := range list {
		_ = s.memRepo.MarkReturned(ctx, r.ID, day)
	}
	return list, err
}

func TestBorrowSweepReturnScenario(t *testing.T) {
	f := newFixture(1)
	ctx := context.Background()

	rec, err := f.svc.Borrow(ctx, "book-1", borrower("reader@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", rec.DueDate)

	f.clock.AddDays(15)
	n, err := f.svc.SweepOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, got.Status)
	assert.Equal(t, 1, got.DaysOverdue)

	overdue, err := f.svc.Overdue(ctx)
	require.NoError(t, err)
	assert.Len(t, overdue, 1)

	f.clock.AddDays(1)
	got, err = f.svc.Return(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, got.Status)
	require.NotNil(t, got.ReturnDate)
	assert.Equal(t, "2024-01-17", *got.ReturnDate)
	assert.Equal(t, 0, got.DaysOverdue)
	assert.Equal(t, books.StatusAvailable, f.catalog.status("book-1"))
}

func TestQueries(t *testing.T) {
	f := newFixture(2)
	ctx := context.Background()
	first, err := f.svc.Borrow(ctx, "book-1", borrower("a@example.com"))
	require.NoError(t, err)
	_, err = f.svc.Return(ctx, first.ID)
	require.NoError(t, err)

	f.clock.AddDays(2)
	second, err := f.svc.Borrow(ctx, "book-1", borrower("b@example.com"))
	require.NoError(t, err)
	_, err = f.svc.Borrow(ctx, "book-2", borrower("A@example.com"))
	require.NoError(t, err)

	history, err := f.svc.History(ctx, "book-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)

	mine, err := f.svc.ByBorrower(ctx, "a@EXAMPLE.com")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.svc.ByBorrower(ctx, " ")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	from := clock.DateOf(day0.AddDate(0, 0, 1))
	ranged, err := f.svc.List(ctx, Filter{BorrowerEmail: "a@example.com", From: &from})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "book-2", ranged[0].BookID)

	returned, err := f.svc.List(ctx, Filter{Status: StatusReturned})
	require.NoError(t, err)
	assert.Len(t, returned, 1)

	to := clock.DateOf(day0)
	_, err = f.svc.List(ctx, Filter{From: &from, To: &to})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))

	empty, err := f.svc.History(ctx, "unknown")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDaysOverdue(t *testing.T) {
	today := clock.DateOf(day0)
	r := Record{Status: StatusActive, DueDate: today.AddDate(0, 0, -6)}
	assert.True(t, r.IsOverdue(today))
	assert.Equal(t, 6, r.DaysOverdue(today))

	r.DueDate = today
	assert.False(t, r.IsOverdue(today))
	assert.Equal(t, 0, r.DaysOverdue(today))

	// swept but the due date is somehow ahead: still overdue, never negative
	r = Record{Status: StatusOverdue, DueDate: today.AddDate(0, 0, 2)}
	assert.True(t, r.IsOverdue(today))
	assert.Equal(t, 0, r.DaysOverdue(today))

	r = Record{Status: StatusReturned, DueDate: today.AddDate(0, 0, -30)}
	assert.False(t, r.IsOverdue(today))
	assert.Equal(t, 0, r.DaysOverdue(today))
}
