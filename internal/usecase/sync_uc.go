// File: internal/usecase/sync_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/adapter"
	"venux-billing/internal/domain/ports/repository"
	"venux-billing/internal/infra/logging"
	"venux-billing/internal/infra/metrics"
)

type SyncOutcome string

const (
	SyncActivated      SyncOutcome = "activated"
	SyncRefreshed      SyncOutcome = "refreshed"
	SyncNoCustomer     SyncOutcome = "no_customer"
	SyncNoSubscription SyncOutcome = "no_subscription"
)

// SyncResult is returned to the client as-is. Success is omitted for the
// informational outcomes.
type SyncResult struct {
	Success bool        `json:"success,omitempty"`
	Message string      `json:"message"`
	Outcome SyncOutcome `json:"-"`
}

type SyncOptions struct {
	LockTTL    time.Duration
	RateLimit  int
	RateWindow time.Duration
}

// Compile-time check
var _ SyncUseCase = (*syncUC)(nil)

type SyncUseCase interface {
	// Sync is the user-triggered pull of provider state. It is rate limited
	// per user and serialized with other syncs of the same user.
	Sync(ctx context.Context, userID string) (SyncResult, error)
	// Refresh is Sync without the rate limit, for background reconciliation.
	Refresh(ctx context.Context, userID string) (SyncResult, error)
}

type syncUC struct {
	profiles repository.ProfileRepository
	billing  adapter.BillingProvider
	locker   adapter.Locker
	limiter  adapter.RateLimiter
	tr       adapter.Translator
	opts     SyncOptions
	log      *zerolog.Logger
}

// NewSyncUseCase builds the manual sync. locker and limiter may be nil.
func NewSyncUseCase(
	profiles repository.ProfileRepository,
	billing adapter.BillingProvider,
	locker adapter.Locker,
	limiter adapter.RateLimiter,
	tr adapter.Translator,
	opts SyncOptions,
	logger *zerolog.Logger,
) SyncUseCase {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	l := logger.With().Str("component", "sync").Logger()
	return &syncUC{
		profiles: profiles,
		billing:  billing,
		locker:   locker,
		limiter:  limiter,
		tr:       tr,
		opts:     opts,
		log:      &l,
	}
}

func SyncLockKey(userID string) string { return "lock:sync:" + userID }
func SyncRateKey(userID string) string  { return "rate_limit:sync:" + userID }

func (u *syncUC) Sync(ctx context.Context, userID string) (SyncResult, error) {
	if userID == "" {
		return SyncResult{}, domain.ErrUnauthorized
	}
	log := logging.With(ctx, u.log)

	if u.limiter != nil && u.opts.RateLimit > 0 {
		ok, err := u.limiter.Allow(ctx, SyncRateKey(userID), u.opts.RateLimit, u.opts.RateWindow)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("rate limiter unavailable, allowing sync")
		case !ok:
			metrics.IncSync("limited")
			return SyncResult{}, domain.ErrRateLimited
		}
	}
	return u.Refresh(ctx, userID)
}

func (u *syncUC) Refresh(ctx context.Context, userID string) (SyncResult, error) {
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "SyncUC.Refresh")()

	if u.locker != nil {
		token, err := u.locker.TryLock(ctx, SyncLockKey(userID), u.opts.LockTTL)
		switch {
		case errors.Is(err, domain.ErrLockBusy):
			metrics.IncSync("busy")
			return SyncResult{}, domain.ErrSyncInProgress
		case err != nil:
			log.Warn().Err(err).Msg("sync lock unavailable, continuing unlocked")
		default:
			defer func() {
				// unlock must outlive a cancelled request
				uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				if err := u.locker.Unlock(uctx, SyncLockKey(userID), token); err != nil {
					log.Warn().Err(err).Msg("sync unlock failed")
				}
			}()
		}
	}

	res, err := u.pull(ctx, userID)
	if err != nil {
		metrics.IncSync("failed")
		return res, err
	}
	metrics.IncSync(string(res.Outcome))
	log.Info().Str("outcome", string(res.Outcome)).Msg("subscription synced")
	return res, nil
}

func (u *syncUC) pull(ctx context.Context, userID string) (SyncResult, error) {
	prof, err := u.profiles.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("%w: %v", domain.ErrProfileUnavailable, err)
	}
	if !prof.HasCustomer() {
		return u.info(SyncNoCustomer, keySyncNoCustomer), nil
	}

	sub, err := u.billing.LatestSubscription(ctx, prof.CustomerID, true)
	if errors.Is(err, domain.ErrCustomerNotFound) {
		return u.info(SyncNoCustomer, keySyncNoCustomer), nil
	}
	if err != nil {
		return SyncResult{}, err
	}
	if sub != nil {
		if _, err := u.profiles.ApplySubscription(ctx, repository.NoTX, model.ByUserID(userID), model.ActivationPatch(sub, "")); err != nil {
			metrics.IncProfileWriteFailure("sync")
			return SyncResult{}, fmt.Errorf("apply subscription: %w", err)
		}
		return SyncResult{Success: true, Message: u.tr.T(keySyncDone), Outcome: SyncActivated}, nil
	}

	sub, err = u.billing.LatestSubscription(ctx, prof.CustomerID, false)
	if errors.Is(err, domain.ErrCustomerNotFound) {
		return u.info(SyncNoCustomer, keySyncNoCustomer), nil
	}
	if err != nil {
		return SyncResult{}, err
	}
	if sub == nil {
		return u.info(SyncNoSubscription, keySyncNoSubscription), nil
	}

	patch := model.StatusRefreshPatch(sub.SyncStatus(), sub.CurrentPeriodEnd)
	if _, err := u.profiles.ApplySubscription(ctx, repository.NoTX, model.ByUserID(userID), patch); err != nil {
		metrics.IncProfileWriteFailure("sync")
		return SyncResult{}, fmt.Errorf("apply status: %w", err)
	}
	return SyncResult{Success: true, Message: u.tr.T(keySyncStatusUpdated), Outcome: SyncRefreshed}, nil
}

func (u *syncUC) info(outcome SyncOutcome, key string) SyncResult {
	return SyncResult{Message: u.tr.T(key), Outcome: outcome}
}
