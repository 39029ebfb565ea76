package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/yearn/internal/core/config"
)

// Sweeper removes expired rows. Both the KV and lock stores implement it.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Passes is what the scheduler drives. Runner implements it.
type Passes interface {
	Cycle(ctx context.Context) error
	Execute(ctx context.Context) error
}

// Scheduler runs cycle, execute and sweep passes on fixed intervals until
// its context is cancelled. Passes run one at a time on the calling
// goroutine; a slow pass delays the next tick rather than overlapping it.
type Scheduler struct {
	passes   Passes
	sweepers []Sweeper
	cfg      config.ScheduleConfig
	log      zerolog.Logger
}

// NewScheduler creates a scheduler.
func NewScheduler(passes Passes, cfg config.ScheduleConfig, log zerolog.Logger, sweepers ...Sweeper) *Scheduler {
	return &Scheduler{passes: passes, sweepers: sweepers, cfg: cfg, log: log}
}

// Run blocks until ctx is cancelled. A cycle and an execute pass run
// immediately on start.
func (s *Scheduler) Run(ctx context.Context) error {
	cycle := time.NewTicker(s.cfg.CycleInterval)
	defer cycle.Stop()
	execute := time.NewTicker(s.cfg.ExecuteInterval)
	defer execute.Stop()
	sweep := time.NewTicker(s.cfg.SweepInterval)
	defer sweep.Stop()

	s.log.Info().
		Dur("cycle_interval", s.cfg.CycleInterval).
		Dur("execute_interval", s.cfg.ExecuteInterval).
		Msg("scheduler started")

	s.cycle(ctx)
	s.execute(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return nil
		case <-cycle.C:
			s.cycle(ctx)
		case <-execute.C:
			s.execute(ctx)
		case <-sweep.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.passes.Cycle(ctx); err != nil {
		s.log.Warn().Err(err).Msg("cycle pass failed")
	}
}

func (s *Scheduler) execute(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.passes.Execute(ctx); err != nil {
		s.log.Warn().Err(err).Msg("execute pass failed")
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	for _, sw := range s.sweepers {
		n, err := sw.SweepExpired(ctx)
		if err != nil {
			s.log.Debug().Err(err).Msg("sweep failed")
			continue
		}
		if n > 0 {
			s.log.Debug().Int64("removed", n).Msg("swept expired rows")
		}
	}
}
