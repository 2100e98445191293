package sched

import (
	"context"
	"fmt"
	"log/slog"

	"urban-store/internal/notify"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the reminder batches on their cron cadence: weekly for debt
// reminders, daily for scheduled-payment reminders. It only decides WHEN; the
// eligibility rules and dispatch behavior live in ledger and notify.
type Scheduler struct {
	cron       *cron.Cron
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
}

// New builds a scheduler with the two reminder jobs registered.
func New(ctx context.Context, dispatcher *notify.Dispatcher, logger *slog.Logger, debtSpec, scheduledSpec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:       cron.New(),
		dispatcher: dispatcher,
		logger:     logger.With("component", "sched"),
	}

	if _, err := s.cron.AddFunc(debtSpec, func() {
		summary, err := dispatcher.SendDebtReminders(ctx)
		if err != nil {
			s.logger.Error("debt reminder job failed", "error", err)
			return
		}
		s.logger.Info("debt reminder job done", "sent", summary.Sent, "failed", summary.Failed)
	}); err != nil {
		return nil, fmt.Errorf("schedule debt reminders %q: %w", debtSpec, err)
	}

	if _, err := s.cron.AddFunc(scheduledSpec, func() {
		summary, err := dispatcher.SendScheduledReminders(ctx)
		if err != nil {
			s.logger.Error("scheduled reminder job failed", "error", err)
			return
		}
		s.logger.Info("scheduled reminder job done", "sent", summary.Sent, "failed", summary.Failed)
	}); err != nil {
		return nil, fmt.Errorf("schedule payment reminders %q: %w", scheduledSpec, err)
	}

	return s, nil
}

// Start begins running jobs on their schedule in a background goroutine.
func (s *Scheduler) Start() {
	s.logger.Info("reminder jobs scheduled")
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
