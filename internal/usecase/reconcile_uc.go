// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/ports/repository"
	"venux-billing/internal/infra/metrics"
)

// ReconcileReport counts what a reconciliation pass did.
type ReconcileReport struct {
	Checked   int
	Activated int
	Refreshed int
	Skipped   int
	Failed    int
}

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

type ReconcileUseCase interface {
	// ReconcileStale re-syncs profiles still marked active whose expiration
	// is older than now minus the grace period. It repairs webhook updates
	// that were lost.
	ReconcileStale(ctx context.Context, now time.Time, limit int) (ReconcileReport, error)
}

type reconcileUC struct {
	profiles repository.ProfileRepository
	sync     SyncUseCase
	grace    time.Duration
	retry    time.Duration
	log      *zerolog.Logger
}

// NewReconcileUseCase builds the reconciler. A profile is attempted at most
// once per retry window, whatever the outcome, so rows the provider knows
// nothing about cannot hold the head of the queue.
func NewReconcileUseCase(profiles repository.ProfileRepository, sync SyncUseCase, grace, retry time.Duration, logger *zerolog.Logger) ReconcileUseCase {
	if retry <= 0 {
		retry = 24 * time.Hour
	}
	l := logger.With().Str("component", "reconcile").Logger()
	return &reconcileUC{profiles: profiles, sync: sync, grace: grace, retry: retry, log: &l}
}

func (u *reconcileUC) ReconcileStale(ctx context.Context, now time.Time, limit int) (ReconcileReport, error) {
	var rep ReconcileReport
	stale, err := u.profiles.ListStaleActive(ctx, repository.NoTX, now.Add(-u.grace), now.Add(-u.retry), limit)
	if err != nil {
		return rep, err
	}

	attempted := make([]string, 0, len(stale))
	defer func() {
		if len(attempted) == 0 {
			return
		}
		mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := u.profiles.MarkReconciled(mctx, repository.NoTX, attempted, now); err != nil {
			u.log.Warn().Err(err).Int("count", len(attempted)).Msg("mark reconciled failed")
		}
	}()

	for _, p := range stale {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		rep.Checked++
		res, err := u.sync.Refresh(ctx, p.ID)
		if !errors.Is(err, domain.ErrSyncInProgress) {
			attempted = append(attempted, p.ID)
		}
		switch {
		case errors.Is(err, domain.ErrSyncInProgress):
			rep.Skipped++
		case err != nil:
			rep.Failed++
			u.log.Warn().Err(err).Str("user_id", p.ID).Msg("reconcile failed for profile")
		case res.Outcome == SyncActivated:
			rep.Activated++
		case res.Outcome == SyncRefreshed:
			rep.Refreshed++
		default:
			rep.Skipped++
		}
	}

	metrics.AddSubscriptionsReconciled("active", rep.Activated)
	metrics.AddSubscriptionsReconciled("refreshed", rep.Refreshed)
	metrics.AddSubscriptionsReconciled("unchanged", rep.Skipped)
	metrics.AddSubscriptionsReconciled("failed", rep.Failed)
	return rep, nil
}
