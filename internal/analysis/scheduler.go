package analysis

import (
	"errors"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/trogers1052/finfun/internal/models"
)

// DefaultSchedule runs the daily refresh at midnight
const DefaultSchedule = "0 0 * * *"

// Scheduler triggers a forced portfolio refresh on a cron schedule
type Scheduler struct {
	service *Service
	cron    *cron.Cron
	logger  zerolog.Logger
}

// NewScheduler creates a new refresh scheduler
func NewScheduler(service *Service, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		service: service,
		cron:    cron.New(),
		logger:  logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start begins the scheduled refreshes
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	if _, err := s.cron.AddFunc(schedule, s.trigger); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", schedule).Msg("analysis scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job callback to return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("analysis scheduler stopped")
}

func (s *Scheduler) trigger() {
	err := s.service.Refresh(models.TriggerScheduled, true)
	if errors.Is(err, ErrRunInProgress) {
		s.logger.Info().Msg("skipping scheduled refresh, a run is already in progress")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled refresh failed to start")
	}
}
