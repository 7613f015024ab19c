package worker

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// deletionSweeper is the subset of AccountLifecycleService the sweep
// depends on.
type deletionSweeper interface {
	SweepDue(now time.Time) (int, error)
}

// DeletionSweep runs the account-deletion anonymization pass on a daily
// cron schedule. Mined from the ecosystem's cron.Scheduler
// pattern rather than a hand-rolled ticker, since a calendar-anchored
// daily job is exactly what robfig/cron is for.
type DeletionSweep struct {
	cron    *cron.Cron
	service deletionSweeper
	logger  zerolog.Logger
}

// NewDeletionSweep builds a sweep that fires at the given cron schedule
// (e.g. "0 3 * * *" for 3am daily).
func NewDeletionSweep(service deletionSweeper, logger zerolog.Logger, schedule string) (*DeletionSweep, error) {
	logger = logger.With().Str("component", "deletion_sweep").Logger()
	c := cron.New()

	sweep := &DeletionSweep{cron: c, service: service, logger: logger}

	if _, err := c.AddFunc(schedule, sweep.run); err != nil {
		return nil, err
	}

	return sweep, nil
}

// Start begins the cron scheduler in the background.
func (s *DeletionSweep) Start() {
	s.logger.Info().Msg("starting account deletion sweep")
	s.cron.Start()
}

// Stop halts the scheduler, waiting for any in-flight run to finish.
func (s *DeletionSweep) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("account deletion sweep stopped")
}

func (s *DeletionSweep) run() {
	start := time.Now()
	anonymized, err := s.service.SweepDue(start)
	if err != nil {
		s.logger.Error().Err(err).Msg("account deletion sweep failed")
		return
	}
	s.logger.Info().
		Int("anonymized", anonymized).
		Dur("elapsed", time.Since(start)).
		Msg("account deletion sweep completed")
}
