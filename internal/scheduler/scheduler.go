package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/weather-warnings/internal/warnings"
)

// DefaultIntervalMinutes is used when the configured interval is under a minute.
const DefaultIntervalMinutes = 60

// Refresher is the callable the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context) (warnings.Snapshot, error)
}

// Scheduler periodically refreshes the warnings feed.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	logger    zerolog.Logger
}

// New creates a new Scheduler.
func New(refresher Refresher, interval time.Duration, logger zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		refresher: refresher,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the refresh job, runs it once immediately and starts the
// underlying scheduler. A run still in progress makes the next tick skip.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = DefaultIntervalMinutes
	}

	_, err := s.scheduler.Every(minutes).Minutes().SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.logger.Info().Int("interval_minutes", minutes).Msg("scheduler started")
	s.scheduler.StartAsync()
	return nil
}

// run performs one refresh. Failures are logged; the next tick is the retry.
func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("scheduled refresh failed")
		return
	}
	s.logger.Debug().Int("alerts", len(snap.Alerts)).Msg("scheduled refresh completed")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
