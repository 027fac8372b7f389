package producers

import (
	"context"

	"go.uber.org/zap"

	"library-backend/internal/cellar/regions"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/db"
	"library-backend/internal/platform/ids"
)

// RegionDirectory is the part of the regions service producers depend on.
type RegionDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
	Lookup(ctx context.Context, ids []string) (map[string]regions.RegionResponse, error)
}

type Service struct {
	repo    Repository
	regions RegionDirectory
	tx      db.TxRunner
	clock   clock.Clock
	ids     ids.Generator
	log     *zap.Logger
}

func NewService(repo Repository, dir RegionDirectory, tx db.TxRunner, clk clock.Clock, gen ids.Generator, log *zap.Logger) *Service {
	return &Service{repo: repo, regions: dir, tx: tx, clock: clk, ids: gen, log: log.Named("producers")}
}

func (s *Service) requireRegion(ctx context.Context, id string) error {
	ok, err := s.regions.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("Region", id)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateRequest) (ProducerResponse, error) {
	p := &Producer{ID: s.ids.NewID(s.clock.Now()), RegionID: in.RegionID}
	UpdateRequest{Name: in.Name, Description: in.Description, FoundedYear: in.FoundedYear, Website: in.Website}.apply(p)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.requireRegion(ctx, p.RegionID); err != nil {
			return err
		}
		return s.repo.Insert(ctx, p)
	})
	if err != nil {
		return ProducerResponse{}, err
	}
	s.log.Info("created producer", zap.String("id", p.ID), zap.String("region_id", p.RegionID))
	return s.withRegion(ctx, p)
}

func (s *Service) List(ctx context.Context, regionID string) ([]ProducerResponse, error) {
	s.log.Debug("listing producers", zap.String("region_id", regionID))
	list, err := s.repo.List(ctx, regionID)
	if err != nil {
		return nil, err
	}
	return s.withRegions(ctx, list)
}

func (s *Service) Get(ctx context.Context, id string) (ProducerResponse, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return ProducerResponse{}, err
	}
	return s.withRegion(ctx, p)
}

func (s *Service) Update(ctx context.Context, id string, in UpdateRequest) (ProducerResponse, error) {
	var p *Producer
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.repo.Get(ctx, id); err != nil {
			return err
		}
		if in.RegionID != nil && *in.RegionID != p.RegionID {
			if err := s.requireRegion(ctx, *in.RegionID); err != nil {
				return err
			}
		}
		in.apply(p)
		return s.repo.Update(ctx, p)
	})
	if err != nil {
		return ProducerResponse{}, err
	}
	return s.withRegion(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Producer", id)
	}
	s.log.Info("deleted producer", zap.String("id", id))
	return nil
}

func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// Lookup resolves producers (with their region) by id.
func (s *Service) Lookup(ctx context.Context, ids []string) (map[string]ProducerResponse, error) {
	list, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	res, err := s.withRegions(ctx, list)
	if err != nil {
		return nil, err
	}
	out := make(map[string]ProducerResponse, len(res))
	for _, p := range res {
		out[p.ID] = p
	}
	return out, nil
}

func (s *Service) withRegion(ctx context.Context, p *Producer) (ProducerResponse, error) {
	res, err := s.withRegions(ctx, []Producer{*p})
	if err != nil {
		return ProducerResponse{}, err
	}
	return res[0], nil
}

func (s *Service) withRegions(ctx context.Context, list []Producer) ([]ProducerResponse, error) {
	seen := map[string]bool{}
	regionIDs := []string{}
	for _, p := range list {
		if !seen[p.RegionID] {
			seen[p.RegionID] = true
			regionIDs = append(regionIDs, p.RegionID)
		}
	}
	byID, err := s.regions.Lookup(ctx, regionIDs)
	if err != nil {
		return nil, err
	}
	out := make([]ProducerResponse, 0, len(list))
	for i := range list {
		var region *regions.RegionResponse
		if r, ok := byID[list[i].RegionID]; ok {
			region = &r
		}
		out = append(out, toResponse(&list[i], region))
	}
	return out, nil
}
