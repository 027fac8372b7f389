package wines

import (
	"context"
	"time"

	"go.uber.org/zap"

	"library-backend/internal/cellar/producers"
	"library-backend/internal/cellar/regions"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/clock"
	"library-backend/internal/platform/db"
	"library-backend/internal/platform/ids"
)

type ProducerDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
	Lookup(ctx context.Context, ids []string) (map[string]producers.ProducerResponse, error)
}

type RegionDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
	Lookup(ctx context.Context, ids []string) (map[string]regions.RegionResponse, error)
}

type Service struct {
	repo      Repository
	producers ProducerDirectory
	regions   RegionDirectory
	tx        db.TxRunner
	clock     clock.Clock
	ids       ids.Generator
	log       *zap.Logger
}

func NewService(repo Repository, pd ProducerDirectory, rd RegionDirectory, tx db.TxRunner, clk clock.Clock, gen ids.Generator, log *zap.Logger) *Service {
	return &Service{repo: repo, producers: pd, regions: rd, tx: tx, clock: clk, ids: gen, log: log.Named("wines")}
}

// drinkingDate parses v and rejects dates after today.
func (s *Service) drinkingDate(v string) (time.Time, error) {
	d, err := clock.ParseDate(v)
	if err != nil {
		return time.Time{}, apperr.Invalid("drinking_date must be a date in " + clock.DateLayout + " format")
	}
	if clock.EpochDay(d) > clock.EpochDay(clock.Today(s.clock)) {
		return time.Time{}, apperr.Invalid("Drinking date cannot be in the future")
	}
	return d, nil
}

func (s *Service) requireRefs(ctx context.Context, producerID, regionID *string) error {
	if producerID != nil {
		ok, err := s.producers.Exists(ctx, *producerID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("Producer", *producerID)
		}
	}
	if regionID != nil {
		ok, err := s.regions.Exists(ctx, *regionID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound("Region", *regionID)
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateRequest) (WineResponse, error) {
	date, err := s.drinkingDate(in.DrinkingDate)
	if err != nil {
		return WineResponse{}, err
	}
	w := &Wine{
		ID:           s.ids.NewID(s.clock.Now()),
		Name:         in.Name,
		Color:        in.Color,
		DrinkingDate: date,
		ProducerID:   in.ProducerID,
		RegionID:     in.RegionID,
	}
	UpdateRequest{
		Vintage:        in.Vintage,
		AlcoholContent: in.AlcoholContent,
		PersonalRating: in.PersonalRating,
		TastingNotes:   in.TastingNotes,
		Price:          in.Price,
	}.apply(w)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.requireRefs(ctx, &w.ProducerID, &w.RegionID); err != nil {
			return err
		}
		return s.repo.Insert(ctx, w)
	})
	if err != nil {
		return WineResponse{}, err
	}
	s.log.Info("created wine", zap.String("id", w.ID), zap.String("producer_id", w.ProducerID))
	return s.respond(ctx, w)
}

func (s *Service) List(ctx context.Context) ([]WineResponse, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.respondMany(ctx, list)
}

func (s *Service) Get(ctx context.Context, id string) (WineResponse, error) {
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return WineResponse{}, err
	}
	return s.respond(ctx, w)
}

func (s *Service) Search(ctx context.Context, c SearchCriteria) ([]WineResponse, error) {
	s.log.Debug("searching wines", zap.String("name", c.Name), zap.Intp("vintage", c.Vintage), zap.Intp("rating", c.Rating))
	list, err := s.repo.Search(ctx, c)
	if err != nil {
		return nil, err
	}
	return s.respondMany(ctx, list)
}

func (s *Service) Update(ctx context.Context, id string, in UpdateRequest) (WineResponse, error) {
	var date *time.Time
	if in.DrinkingDate != nil {
		d, err := s.drinkingDate(*in.DrinkingDate)
		if err != nil {
			return WineResponse{}, err
		}
		date = &d
	}

	var w *Wine
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if w, err = s.repo.Get(ctx, id); err != nil {
			return err
		}
		if err := s.requireRefs(ctx, in.ProducerID, in.RegionID); err != nil {
			return err
		}
		in.apply(w)
		if date != nil {
			w.DrinkingDate = *date
		}
		if in.ProducerID != nil {
			w.ProducerID = *in.ProducerID
		}
		if in.RegionID != nil {
			w.RegionID = *in.RegionID
		}
		return s.repo.Update(ctx, w)
	})
	if err != nil {
		return WineResponse{}, err
	}
	return s.respond(ctx, w)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Wine", id)
	}
	s.log.Info("deleted wine", zap.String("id", id))
	return nil
}

func (s *Service) respond(ctx context.Context, w *Wine) (WineResponse, error) {
	res, err := s.respondMany(ctx, []Wine{*w})
	if err != nil {
		return WineResponse{}, err
	}
	return res[0], nil
}

func (s *Service) respondMany(ctx context.Context, list []Wine) ([]WineResponse, error) {
	var producerIDs, regionIDs []string
	seen := map[string]bool{}
	for _, w := range list {
		if !seen["p:"+w.ProducerID] {
			seen["p:"+w.ProducerID] = true
			producerIDs = append(producerIDs, w.ProducerID)
		}
		if !seen["r:"+w.RegionID] {
			seen["r:"+w.RegionID] = true
			regionIDs = append(regionIDs, w.RegionID)
		}
	}
	ps, err := s.producers.Lookup(ctx, producerIDs)
	if err != nil {
		return nil, err
	}
	rs, err := s.regions.Lookup(ctx, regionIDs)
	if err != nil {
		return nil, err
	}

	out := make([]WineResponse, 0, len(list))
	for i := range list {
		var p *producers.ProducerResponse
		if v, ok := ps[list[i].ProducerID]; ok {
			p = &v
		}
		var r *regions.RegionResponse
		if v, ok := rs[list[i].RegionID]; ok {
			r = &v
		}
		out = append(out, toResponse(&list[i], p, r))
	}
	return out, nil
}
