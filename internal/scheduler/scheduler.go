package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/pressure-forecast/internal/monitor"
)

// Scheduler periodically samples the monitor's sources.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *monitor.Service
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. Each sample gets at most timeout to complete.
func New(interval, timeout time.Duration, service *monitor.Service, logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	// One producer at a time: a slow sample delays the next tick instead of overlapping it.
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		service:   service,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules the sampling job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = time.Second
	}

	_, err := s.scheduler.Every(interval).Do(s.sample)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", interval.String(), "sources", s.service.SourceNames())
	return nil
}

func (s *Scheduler) sample() {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.service.Sample(ctx); err != nil {
		if errors.Is(err, monitor.ErrNoNewReading) {
			s.logger.Debug("scheduler: no new reading", "error", err)
			return
		}
		s.logger.Warn("scheduler: sample failed", "error", err)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
