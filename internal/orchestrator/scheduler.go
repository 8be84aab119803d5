package orchestrator

import (
	"context"
	"fmt"
	"time"

	"skyrating/internal/config"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// Scheduler runs a replay cycle at start and then every ReplayInterval. Cycles never overlap.
type Scheduler struct {
	scheduler gocron.Scheduler
	orch      *Orchestrator
	ctx       context.Context
	cancel    context.CancelFunc
	logger    zerolog.Logger
}

func NewScheduler(cfg *config.Config, orch *Orchestrator, logger zerolog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := &Scheduler{
		scheduler: s,
		orch:      orch,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}

	_, err = s.NewJob(
		gocron.DurationJob(cfg.ReplayInterval),
		gocron.NewTask(sched.run),
		gocron.WithName("season-replay"),
		gocron.WithTags("replay"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create replay job: %w", err)
	}
	return sched, nil
}

func (s *Scheduler) run() {
	if _, err := s.orch.RunCycle(s.ctx); err != nil {
		s.logger.Error().Err(err).Msg("replay cycle failed")
	}
}

func (s *Scheduler) Start() {
	s.logger.Info().Msg("starting replay scheduler")
	s.scheduler.Start()
}

// Shutdown cancels a running cycle, which kills its child, and stops the scheduler.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.scheduler.Shutdown()
}
