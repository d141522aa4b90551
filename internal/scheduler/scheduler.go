package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/jackwood1/woodfamily-ai/internal/config"
	"github.com/jackwood1/woodfamily-ai/internal/service"
)

// Scheduler runs the nightly source refresh. League documents are replaced
// at most weekly, so a single off-hours cron entry keeps the stored rows
// current without hammering the listing site.
type Scheduler struct {
	cfg  *config.Config
	svc  *service.Service
	cron *cron.Cron
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, svc *service.Service) *Scheduler {
	return &Scheduler{
		cfg:  cfg,
		svc:  svc,
		cron: cron.New(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.NightlyRefreshCron, func() {
		log.Info().Msg("Running nightly refresh...")
		if err := s.svc.SyncAll(ctx, false); err != nil {
			log.Error().Err(err).Msg("Nightly refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule nightly refresh: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.NightlyRefreshCron).
		Msg("Nightly refresh scheduled")

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		s.cron.Stop()
	}

	log.Info().Msg("Scheduler stopped")
}
