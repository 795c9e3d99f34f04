package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"venux-billing/internal/domain/ports/adapter"
	"venux-billing/internal/usecase"
)

// ReminderWorker pushes due bill reminders to subscribed devices.
type ReminderWorker struct {
	*periodic
	uc usecase.ReminderUseCase
}

func NewReminderWorker(interval time.Duration, uc usecase.ReminderUseCase, locker adapter.Locker, logger *zerolog.Logger) *ReminderWorker {
	return &ReminderWorker{
		periodic: newPeriodic("reminders", interval, locker, logger),
		uc:       uc,
	}
}

func (w *ReminderWorker) Run(ctx context.Context) error {
	return w.run(ctx, w.tick)
}

func (w *ReminderWorker) tick(ctx context.Context, now time.Time) error {
	rep, err := w.uc.DispatchDue(ctx, now)
	if rep.Reminders > 0 {
		w.log.Info().
			Int("reminders", rep.Reminders).
			Int("sent", rep.Sent).
			Int("gone", rep.Gone).
			Int("failed", rep.Failed).
			Int("notified", rep.Notified).
			Msg("reminders dispatched")
	}
	return err
}
