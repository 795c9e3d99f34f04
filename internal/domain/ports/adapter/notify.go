package adapter

import (
	"context"
	"time"

	"venux-billing/internal/domain/model"
)

// AlertNotifier delivers operational alerts to the on-call channel.
type AlertNotifier interface {
	Alert(ctx context.Context, text string) error
}

// PushSender delivers a web push message to one device. It returns
// domain.ErrPushSubscriptionGone when the push service no longer knows
// the endpoint.
type PushSender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload model.PushPayload) error
}

// Locker is a short-lived distributed mutex. TryLock returns
// domain.ErrLockBusy when another holder owns key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// RateLimiter counts hits per key within a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Translator resolves user-facing message keys.
type Translator interface {
	T(key string, args ...interface{}) string
}
