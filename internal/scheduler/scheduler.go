package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feed_poster/internal/domain"
)

// Cycler runs one full fetch-filter-deliver cycle.
type Cycler interface {
	Run(ctx context.Context) (*domain.CycleStats, error)
}

// Notifier tells the operator about unrecoverable cycle failures.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type Scheduler struct {
	cycler   Cycler
	notifier Notifier // may be nil
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func New(cycler Cycler, notifier Notifier, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cycler:   cycler,
		notifier: notifier,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With("component", "scheduler"),
	}
}

// Start runs a cycle immediately, then once per interval until the context
// is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runCycle(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.cycler.Run(cycleCtx); err != nil {
		s.logger.Error("cycle failed", "error", err)
		if s.notifier != nil && ctx.Err() == nil {
			text := fmt.Sprintf("feed cycle failed: %v", err)
			if nerr := s.notifier.Notify(ctx, text); nerr != nil {
				s.logger.Error("operator notification failed", "error", nerr)
			}
		}
	}
}
