package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/repository"
	"venux-billing/internal/infra/metrics"
	red "venux-billing/internal/infra/redis"
)

var _ repository.ProfileRepository = (*profileRepoCacheDecorator)(nil)

type profileRepoCacheDecorator struct {
	inner repository.ProfileRepository
	cache red.RedisClient
	ttl   time.Duration
}

// NewProfileRepoCacheDecorator caches FindByID lookups. Every write drops
// the cached copies of the rows it touched.
func NewProfileRepoCacheDecorator(inner repository.ProfileRepository, cache red.RedisClient, ttl time.Duration) repository.ProfileRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &profileRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

func profileKey(id string) string { return fmt.Sprintf("profile:id:%s", id) }

func (d *profileRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	// Reads inside a transaction must see uncommitted writes.
	if tx != nil {
		metrics.IncCacheRequest("profile", "bypass")
		return d.inner.FindByID(ctx, tx, userID)
	}

	key := profileKey(userID)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var p model.Profile
		if json.Unmarshal([]byte(val), &p) == nil {
			metrics.IncCacheRequest("profile", "hit")
			return &p, nil
		}
	} else if err != redis.Nil {
		metrics.IncCacheRequest("profile", "error")
	}

	metrics.IncCacheRequest("profile", "miss")
	p, err := d.inner.FindByID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		bytes, _ := json.Marshal(p)
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return p, nil
}

func (d *profileRepoCacheDecorator) SetCustomerID(ctx context.Context, tx repository.Tx, userID, customerID string) error {
	if err := d.inner.SetCustomerID(ctx, tx, userID, customerID); err != nil {
		return err
	}
	d.invalidate(ctx, tx, []string{userID})
	return nil
}

func (d *profileRepoCacheDecorator) ApplySubscription(ctx context.Context, tx repository.Tx, target model.ProfileTarget, patch model.SubscriptionPatch) ([]string, error) {
	ids, err := d.inner.ApplySubscription(ctx, tx, target, patch)
	if err != nil {
		return nil, err
	}
	d.invalidate(ctx, tx, ids)
	return ids, nil
}

// Pass-through: the reconciler needs fresh rows.
func (d *profileRepoCacheDecorator) ListStaleActive(ctx context.Context, tx repository.Tx, expiredBefore, attemptedBefore time.Time, limit int) ([]*model.Profile, error) {
	return d.inner.ListStaleActive(ctx, tx, expiredBefore, attemptedBefore, limit)
}

// MarkReconciled touches a column the cached profile does not carry.
func (d *profileRepoCacheDecorator) MarkReconciled(ctx context.Context, tx repository.Tx, ids []string, at time.Time) error {
	return d.inner.MarkReconciled(ctx, tx, ids, at)
}

// FindByWhatsApp is not cached; the accessor must see the current status.
func (d *profileRepoCacheDecorator) FindByWhatsApp(ctx context.Context, tx repository.Tx, whatsapp string) (*model.Profile, error) {
	return d.inner.FindByWhatsApp(ctx, tx, whatsapp)
}

// invalidate drops the cached rows. Inside a transaction the delete waits
// for the commit, otherwise a concurrent reader could cache the old row
// again before the new one is visible.
func (d *profileRepoCacheDecorator) invalidate(ctx context.Context, tx repository.Tx, ids []string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, profileKey(id))
	}
	drop := func(ctx context.Context) {
		if d.cache.Del(ctx, keys...) == nil {
			metrics.AddCacheInvalidations("profile", len(keys))
		}
	}
	if tx != nil {
		afterCommit(ctx, drop)
		return
	}
	drop(ctx)
}
