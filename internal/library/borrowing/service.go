package borrowing

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"library-backend/internal/library/books"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/db"
	"library-backend/internal/platform/ids"
	"library-backend/internal/platform/metrics"
)

// Catalog is the book side of a loan. *books.Service implements it.
type Catalog interface {
	Lock(ctx context.Context, id string) (*books.Book, error)
	MarkBorrowed(ctx context.Context, id string) error
	MarkAvailable(ctx context.Context, id string) error
	Lookup(ctx context.Context, ids []string) (map[string]books.BookResponse, error)
}

type Options struct {
	LoanPeriodDays int
	MaxActive      int
}

type Service struct {
	repo    Repository
	catalog Catalog
	tx      db.TxRunner
	clock   clock.Clock
	ids     ids.Generator
	log     *zap.Logger
	opts    Options
}

func NewService(repo Repository, catalog Catalog, tx db.TxRunner, clk clock.Clock, gen ids.Generator, log *zap.Logger, opts Options) *Service {
	if opts.LoanPeriodDays <= 0 {
		opts.LoanPeriodDays = DefaultLoanPeriodDays
	}
	if opts.MaxActive <= 0 {
		opts.MaxActive = DefaultMaxActive
	}
	return &Service{repo: repo, catalog: catalog, tx: tx, clock: clk, ids: gen, log: log.Named("borrowing"), opts: opts}
}

// Borrow opens a loan on an AVAILABLE book. The record insert and the book
// status flip commit together; the book row lock serializes concurrent borrows.
func (s *Service) Borrow(ctx context.Context, bookID string, in BorrowRequest) (res RecordResponse, err error) {
	defer func() { metrics.RecordLending("borrow", err) }()

	if err = in.normalize(); err != nil {
		return RecordResponse{}, err
	}
	email := in.BorrowerEmail
	s.log.Info("borrowing book", zap.String("book_id", bookID), zap.String("borrower_email", email))

	var saved *Record
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		book, err := s.catalog.Lock(ctx, bookID)
		if err != nil {
			return err
		}
		if !book.IsAvailable() {
			return apperr.BusinessRule("Book is not available for borrowing")
		}
		open, err := s.repo.HasOpenForBook(ctx, bookID)
		if err != nil {
			return err
		}
		if open {
			return apperr.BusinessRule("Book is already borrowed")
		}
		n, err := s.repo.CountActiveByEmail(ctx, email)
		if err != nil {
			return err
		}
		if n >= s.opts.MaxActive {
			return apperr.BusinessRule("Maximum borrowing limit (%d books) reached for user: %s", s.opts.MaxActive, email)
		}

		today := clock.Today(s.clock)
		rec := &Record{
			ID:            s.ids.NewID(s.clock.Now()),
			BookID:        bookID,
			BorrowerName:  in.BorrowerName,
			BorrowerEmail: email,
			BorrowDate:    today,
			DueDate:       today.AddDate(0, 0, s.opts.LoanPeriodDays),
			Status:        StatusActive,
			Notes:         db.NullString(in.Notes),
		}
		// record first, then the status flip
		if err := s.repo.Insert(ctx, rec); err != nil {
			return err
		}
		if err := s.catalog.MarkBorrowed(ctx, bookID); err != nil {
			return err
		}
		saved, err = s.repo.Get(ctx, rec.ID)
		return err
	})
	if err != nil {
		s.log.Warn("borrow rejected", zap.String("book_id", bookID), zap.Error(err))
		return RecordResponse{}, err
	}
	s.log.Info("borrowed book", zap.String("record_id", saved.ID), zap.String("due_date", clock.FormatDate(saved.DueDate)))
	return s.respond(ctx, saved)
}

// Return closes an ACTIVE or OVERDUE loan today and releases the book.
func (s *Service) Return(ctx context.Context, id string) (res RecordResponse, err error) {
	defer func() { metrics.RecordLending("return", err) }()

	var saved *Record
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rec, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		// book before record, same lock order as Borrow
		if _, err := s.catalog.Lock(ctx, rec.BookID); err != nil {
			return err
		}
		if rec, err = s.repo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		if !rec.IsOpen() {
			return apperr.BusinessRule("Borrowing record is not active")
		}
		if err := s.repo.MarkReturned(ctx, id, clock.Today(s.clock)); err != nil {
			return err
		}
		if err := s.catalog.MarkAvailable(ctx, rec.BookID); err != nil {
			return err
		}
		saved, err = s.repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return RecordResponse{}, err
	}
	s.log.Info("returned book", zap.String("record_id", id), zap.String("book_id", saved.BookID))
	return s.respond(ctx, saved)
}

// SweepOverdue moves ACTIVE records due before today to OVERDUE, one
// transaction per record, and returns how many it moved. Records that
// stopped being ACTIVE since the scan are skipped.
func (s *Service) SweepOverdue(ctx context.Context) (marked int, err error) {
	defer func() { metrics.RecordSweep(marked, err) }()

	today := clock.Today(s.clock)
	due, err := s.repo.ListDueBefore(ctx, today)
	if err != nil {
		return 0, err
	}
	for i := range due {
		id := due[i].ID
		var moved bool
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			var err error
			moved, err = s.repo.MarkOverdue(ctx, id)
			return err
		})
		if err != nil {
			s.log.Error("overdue sweep failed", zap.String("record_id", id), zap.Error(err))
			return marked, err
		}
		if !moved {
			s.log.Debug("record no longer active, skipped", zap.String("record_id", id))
			continue
		}
		marked++
	}
	s.log.Info("overdue sweep finished",
		zap.String("today", clock.FormatDate(today)),
		zap.Int("candidates", len(due)),
		zap.Int("marked", marked))
	return marked, nil
}

func (s *Service) Get(ctx context.Context, id string) (RecordResponse, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return RecordResponse{}, err
	}
	return s.respond(ctx, rec)
}

func (s *Service) List(ctx context.Context, f Filter) ([]RecordResponse, error) {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, apperr.Invalid("from_date must not be after to_date")
	}
	f.BorrowerEmail = strings.TrimSpace(f.BorrowerEmail)
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.respondMany(ctx, list)
}

func (s *Service) ByStatus(ctx context.Context, st Status) ([]RecordResponse, error) {
	return s.List(ctx, Filter{Status: st})
}

// ByBorrower matches the email case-insensitively.
func (s *Service) ByBorrower(ctx context.Context, email string) ([]RecordResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperr.Invalid("email is required")
	}
	return s.List(ctx, Filter{BorrowerEmail: email})
}

// History lists every loan of a book, most recent first.
func (s *Service) History(ctx context.Context, bookID string) ([]RecordResponse, error) {
	list, err := s.repo.ListByBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	return s.respondMany(ctx, list)
}

func (s *Service) Overdue(ctx context.Context) ([]RecordResponse, error) {
	list, err := s.repo.ListOverdue(ctx, clock.Today(s.clock))
	if err != nil {
		return nil, err
	}
	return s.respondMany(ctx, list)
}

func (s *Service) respond(ctx context.Context, r *Record) (RecordResponse, error) {
	res, err := s.respondMany(ctx, []Record{*r})
	if err != nil {
		return RecordResponse{}, err
	}
	return res[0], nil
}

func (s *Service) respondMany(ctx context.Context, list []Record) ([]RecordResponse, error) {
	out := make([]RecordResponse, 0, len(list))
	if len(list) == 0 {
		return out, nil
	}
	bookIDs := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for i := range list {
		if _, ok := seen[list[i].BookID]; !ok {
			seen[list[i].BookID] = struct{}{}
			bookIDs = append(bookIDs, list[i].BookID)
		}
	}
	found, err := s.catalog.Lookup(ctx, bookIDs)
	if err != nil {
		return nil, err
	}

	today := clock.Today(s.clock)
	for i := range list {
		var b *books.BookResponse
		if v, ok := found[list[i].BookID]; ok {
			b = &v
		}
		out = append(out, toResponse(&list[i], b, today))
	}
	return out, nil
}
