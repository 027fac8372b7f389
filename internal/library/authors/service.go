package authors

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/ids"
)

type Service struct {
	repo  Repository
	clock clock.Clock
	ids   ids.Generator
	log   *zap.Logger
}

func NewService(repo Repository, clk clock.Clock, gen ids.Generator, log *zap.Logger) *Service {
	return &Service{repo: repo, clock: clk, ids: gen, log: log.Named("authors")}
}

func (s *Service) Create(ctx context.Context, in AuthorRequest) (AuthorResponse, error) {
	s.log.Info("creating author", zap.String("first_name", in.FirstName), zap.String("last_name", in.LastName))
	if err := s.checkEmail(ctx, in.Email, ""); err != nil {
		return AuthorResponse{}, err
	}

	a := &Author{ID: s.ids.NewID(s.clock.Now())}
	in.apply(a)
	if err := s.repo.Insert(ctx, a); err != nil {
		return AuthorResponse{}, err
	}

	// created_at/updated_at come from DB defaults
	saved, err := s.repo.Get(ctx, a.ID)
	if err != nil {
		return AuthorResponse{}, err
	}
	s.log.Info("created author", zap.String("id", a.ID))
	return toResponse(saved), nil
}

func (s *Service) Get(ctx context.Context, id string) (AuthorResponse, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return AuthorResponse{}, err
	}
	return toResponse(a), nil
}

func (s *Service) List(ctx context.Context, nationality string) ([]AuthorResponse, error) {
	s.log.Debug("listing authors", zap.String("nationality", nationality))
	list, err := s.repo.List(ctx, strings.TrimSpace(nationality))
	if err != nil {
		return nil, err
	}
	return toResponses(list), nil
}

func (s *Service) Search(ctx context.Context, query string) ([]AuthorResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Invalid("query is required")
	}
	list, err := s.repo.SearchByName(ctx, query)
	if err != nil {
		return nil, err
	}
	return toResponses(list), nil
}

func (s *Service) Update(ctx context.Context, id string, in AuthorRequest) (AuthorResponse, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return AuthorResponse{}, err
	}
	if in.Email != nil && *in.Email != "" && !strings.EqualFold(*in.Email, a.Email.String) {
		if err := s.checkEmail(ctx, in.Email, id); err != nil {
			return AuthorResponse{}, err
		}
	}

	in.apply(a)
	if err := s.repo.Update(ctx, a); err != nil {
		return AuthorResponse{}, err
	}
	saved, err := s.repo.Get(ctx, id)
	if err != nil {
		return AuthorResponse{}, err
	}
	s.log.Info("updated author", zap.String("id", id))
	return toResponse(saved), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Author", id)
	}
	s.log.Info("deleted author", zap.String("id", id))
	return nil
}

// Exists backs the reference check done before a book is saved.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// Lookup resolves many authors at once, keyed by id. Unknown ids are absent.
func (s *Service) Lookup(ctx context.Context, ids []string) (map[string]AuthorResponse, error) {
	list, err := s.repo.GetMany(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[string]AuthorResponse, len(list))
	for i := range list {
		out[list[i].ID] = toResponse(&list[i])
	}
	return out, nil
}

func (s *Service) checkEmail(ctx context.Context, email *string, exceptID string) error {
	if email == nil || strings.TrimSpace(*email) == "" {
		return nil
	}
	taken, err := s.repo.EmailTaken(ctx, *email, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Duplicate("Author with email %s already exists", *email)
	}
	return nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
