package books

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"library-backend/internal/library/authors"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/db"
	"library-backend/internal/platform/ids"
)

// AuthorDirectory is the part of the author registry the catalog needs.
type AuthorDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
	Lookup(ctx context.Context, ids []string) (map[string]authors.AuthorResponse, error)
}

type Service struct {
	repo    Repository
	authors AuthorDirectory
	tx      db.TxRunner
	clock   clock.Clock
	ids     ids.Generator
	log     *zap.Logger
}

func NewService(repo Repository, dir AuthorDirectory, tx db.TxRunner, clk clock.Clock, gen ids.Generator, log *zap.Logger) *Service {
	return &Service{repo: repo, authors: dir, tx: tx, clock: clk, ids: gen, log: log.Named("books")}
}

// Create registers a book as AVAILABLE with date added set to today.
func (s *Service) Create(ctx context.Context, in BookRequest) (BookResponse, error) {
	if err := in.normalize(); err != nil {
		return BookResponse{}, err
	}
	s.log.Info("creating book", zap.String("isbn", in.ISBN), zap.String("title", in.Title))

	var saved *Book
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		exists, err := s.repo.ExistsByISBN(ctx, in.ISBN)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Duplicate("Book with ISBN %s already exists", in.ISBN)
		}
		if err := s.requireAuthor(ctx, in.AuthorID); err != nil {
			return err
		}

		b := &Book{
			ID:        s.ids.NewID(s.clock.Now()),
			Status:    StatusAvailable,
			DateAdded: clock.Today(s.clock),
		}
		in.apply(b)
		if err := s.repo.Insert(ctx, b); err != nil {
			return err
		}
		saved, err = s.repo.Get(ctx, b.ID)
		return err
	})
	if err != nil {
		return BookResponse{}, err
	}
	s.log.Info("created book", zap.String("id", saved.ID))
	return s.withAuthor(ctx, saved)
}

func (s *Service) Get(ctx context.Context, id string) (BookResponse, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return BookResponse{}, err
	}
	return s.withAuthor(ctx, b)
}

func (s *Service) GetByISBN(ctx context.Context, isbn string) (BookResponse, error) {
	b, err := s.repo.GetByISBN(ctx, strings.TrimSpace(isbn))
	if err != nil {
		return BookResponse{}, err
	}
	return s.withAuthor(ctx, b)
}

func (s *Service) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	return s.repo.ExistsByISBN(ctx, strings.TrimSpace(isbn))
}

func (s *Service) List(ctx context.Context, f Filter) ([]BookResponse, error) {
	s.log.Debug("listing books", zap.String("status", string(f.Status)), zap.String("genre", f.Genre))
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.withAuthors(ctx, list)
}

func (s *Service) ListAvailable(ctx context.Context) ([]BookResponse, error) {
	return s.List(ctx, Filter{Status: StatusAvailable})
}

func (s *Service) ListByAuthor(ctx context.Context, authorID string) ([]BookResponse, error) {
	return s.List(ctx, Filter{AuthorID: authorID})
}

func (s *Service) Search(ctx context.Context, query string) ([]BookResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Invalid("query is required")
	}
	list, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.withAuthors(ctx, list)
}

// Update replaces the descriptive fields. Status and date added are kept.
func (s *Service) Update(ctx context.Context, id string, in BookRequest) (BookResponse, error) {
	if err := in.normalize(); err != nil {
		return BookResponse{}, err
	}
	var saved *Book
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		// the ISBN collation ignores case, so compare ids to tell our own row apart
		other, err := s.repo.GetByISBN(ctx, in.ISBN)
		switch {
		case err == nil && other.ID != b.ID:
			return apperr.Duplicate("Book with ISBN %s already exists", in.ISBN)
		case err != nil && !apperr.Is(err, apperr.CodeNotFound):
			return err
		}
		if in.AuthorID != b.AuthorID {
			if err := s.requireAuthor(ctx, in.AuthorID); err != nil {
				return err
			}
		}

		in.apply(b)
		if err := s.repo.Update(ctx, b); err != nil {
			return err
		}
		saved, err = s.repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return BookResponse{}, err
	}
	s.log.Info("updated book", zap.String("id", id))
	return s.withAuthor(ctx, saved)
}

// Delete removes a book that is not out on loan. Its borrowing history goes with it.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		open, err := s.repo.HasOpenBorrowing(ctx, id)
		if err != nil {
			return err
		}
		if open {
			return apperr.BusinessRule("Cannot delete book with active borrowing records")
		}
		n, err := s.repo.Delete(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("Book", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("deleted book", zap.String("id", id))
	return nil
}

// Lock fetches the book and holds its row lock for the rest of the
// caller's transaction. Lending operations serialize on it.
func (s *Service) Lock(ctx context.Context, id string) (*Book, error) {
	return s.repo.GetForUpdate(ctx, id)
}

// MarkBorrowed moves an AVAILABLE book to BORROWED.
func (s *Service) MarkBorrowed(ctx context.Context, id string) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !b.IsAvailable() {
			return apperr.BusinessRule("Book is not available for borrowing")
		}
		return s.repo.UpdateStatus(ctx, id, StatusBorrowed)
	})
}

// MarkAvailable sets the book AVAILABLE whatever its current status.
func (s *Service) MarkAvailable(ctx context.Context, id string) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		return s.repo.UpdateStatus(ctx, id, StatusAvailable)
	})
}

// Lookup resolves many books at once with their authors, keyed by id.
func (s *Service) Lookup(ctx context.Context, ids []string) (map[string]BookResponse, error) {
	list, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	res, err := s.withAuthors(ctx, list)
	if err != nil {
		return nil, err
	}
	out := make(map[string]BookResponse, len(res))
	for _, b := range res {
		out[b.ID] = b
	}
	return out, nil
}

func (s *Service) requireAuthor(ctx context.Context, id string) error {
	ok, err := s.authors.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Author", id)
	}
	return nil
}

func (s *Service) withAuthor(ctx context.Context, b *Book) (BookResponse, error) {
	res, err := s.withAuthors(ctx, []Book{*b})
	if err != nil {
		return BookResponse{}, err
	}
	return res[0], nil
}

func (s *Service) withAuthors(ctx context.Context, list []Book) ([]BookResponse, error) {
	out := make([]BookResponse, 0, len(list))
	if len(list) == 0 {
		return out, nil
	}
	authorIDs := make([]string, 0, len(list))
	for i := range list {
		authorIDs = append(authorIDs, list[i].AuthorID)
	}
	found, err := s.authors.Lookup(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	for i := range list {
		var a *authors.AuthorResponse
		if v, ok := found[list[i].AuthorID]; ok {
			a = &v
		}
		out = append(out, toResponse(&list[i], a))
	}
	return out, nil
}
