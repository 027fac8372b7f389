package borrowing

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper runs SweepOverdue on a cron schedule inside the server process.
type Sweeper struct {
	cron    *cron.Cron
	svc     overdueSweeper
	log     *zap.Logger
	timeout time.Duration
}

type overdueSweeper interface {
	SweepOverdue(ctx context.Context) (int, error)
}

// NewSweeper parses spec (standard 5-field cron, or descriptors like "@daily").
func NewSweeper(svc overdueSweeper, spec string, loc *time.Location, log *zap.Logger) (*Sweeper, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Sweeper{
		svc:     svc,
		log:     log.Named("sweeper"),
		timeout: 5 * time.Minute,
	}
	// skip a tick while the previous sweep is still running
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("overdue sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.svc.SweepOverdue(ctx)
	if err != nil {
		s.log.Error("scheduled overdue sweep failed", zap.Error(err))
		return
	}
	s.log.Info("scheduled overdue sweep", zap.Int("marked", n), zap.Duration("took", time.Since(start)))
}

func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Info("overdue sweeper started")
}

// Stop waits for a running sweep to finish, or for ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("overdue sweeper did not stop in time")
	}
}
