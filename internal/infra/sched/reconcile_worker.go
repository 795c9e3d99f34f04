package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"venux-billing/internal/domain/ports/adapter"
	"venux-billing/internal/usecase"
)

// ReconcileWorker periodically re-syncs active profiles whose paid period
// ended without a webhook update.
type ReconcileWorker struct {
	*periodic
	uc    usecase.ReconcileUseCase
	batch int
}

func NewReconcileWorker(interval time.Duration, batch int, uc usecase.ReconcileUseCase, locker adapter.Locker, logger *zerolog.Logger) *ReconcileWorker {
	if batch <= 0 {
		batch = 50
	}
	return &ReconcileWorker{
		periodic: newPeriodic("reconcile", interval, locker, logger),
		uc:       uc,
		batch:    batch,
	}
}

func (w *ReconcileWorker) Run(ctx context.Context) error {
	return w.run(ctx, w.tick)
}

func (w *ReconcileWorker) tick(ctx context.Context, now time.Time) error {
	rep, err := w.uc.ReconcileStale(ctx, now, w.batch)
	if rep.Checked > 0 {
		w.log.Info().
			Int("checked", rep.Checked).
			Int("activated", rep.Activated).
			Int("refreshed", rep.Refreshed).
			Int("skipped", rep.Skipped).
			Int("failed", rep.Failed).
			Msg("stale subscriptions reconciled")
	}
	return err
}
