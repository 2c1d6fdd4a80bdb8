package usecase

import (
	"context"
	"log/slog"
	"time"

	"ThreatScanner/internal/ports"
)

// Scheduler wires the ticker-like driver with the collection orchestrator.
// On every trigger it collects exactly the feeds that are due.
type Scheduler struct {
	driver       ports.Scheduler
	orchestrator *Orchestrator
	feeds        ports.FeedRepository
	logger       *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring collection runs.
func NewScheduler(driver ports.Scheduler, orchestrator *Orchestrator, feeds ports.FeedRepository, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, orchestrator: orchestrator, feeds: feeds, logger: logger}
}

// Start registers the collection job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.orchestrator == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.runDue(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}

func (s *Scheduler) runDue(ctx context.Context, trigger time.Time) {
	feeds, err := s.feeds.List(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("list feeds for scheduled run", "error", err)
		}
		return
	}

	var due []string
	for _, feed := range feeds {
		if feed.Due(trigger) {
			due = append(due, feed.ID)
		}
	}
	if len(due) == 0 {
		return
	}

	if s.logger != nil {
		s.logger.Info("scheduled collection run", "due_feeds", len(due))
	}
	s.orchestrator.CollectAll(ctx, due, 0)
}
