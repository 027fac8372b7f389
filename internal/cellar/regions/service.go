package regions

import (
	"context"

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
	return &Service{repo: repo, clock: clk, ids: gen, log: log.Named("regions")}
}

func (s *Service) Create(ctx context.Context, in CreateRequest) (RegionResponse, error) {
	r := &Region{ID: s.ids.NewID(s.clock.Now()), Name: in.Name, Country: in.Country}
	UpdateRequest{Description: in.Description, Climate: in.Climate}.apply(r)
	if err := s.repo.Insert(ctx, r); err != nil {
		return RegionResponse{}, err
	}
	s.log.Info("created region", zap.String("id", r.ID), zap.String("name", r.Name))
	return toResponse(r), nil
}

func (s *Service) List(ctx context.Context) ([]RegionResponse, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RegionResponse, 0, len(list))
	for i := range list {
		out = append(out, toResponse(&list[i]))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (RegionResponse, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return RegionResponse{}, err
	}
	return toResponse(r), nil
}

func (s *Service) Update(ctx context.Context, id string, in UpdateRequest) (RegionResponse, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return RegionResponse{}, err
	}
	in.apply(r)
	if err := s.repo.Update(ctx, r); err != nil {
		return RegionResponse{}, err
	}
	return toResponse(r), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Region", id)
	}
	s.log.Info("deleted region", zap.String("id", id))
	return nil
}

func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// Lookup resolves regions by id for embedding in producer and wine responses.
func (s *Service) Lookup(ctx context.Context, ids []string) (map[string]RegionResponse, error) {
	list, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]RegionResponse, len(list))
	for i := range list {
		out[list[i].ID] = toResponse(&list[i])
	}
	return out, nil
}
