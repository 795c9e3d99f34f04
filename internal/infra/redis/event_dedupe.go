package redis

import (
	"context"
	"time"

	"venux-billing/internal/domain/ports/adapter"
)

var _ adapter.EventDeduper = (*EventDedupe)(nil)

const eventKeyPrefix = "webhook:event:"

// EventDedupe remembers processed webhook event ids for ttl.
type EventDedupe struct {
	client RedisClient
	ttl    time.Duration
}

func NewEventDedupe(client RedisClient, ttl time.Duration) *EventDedupe {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &EventDedupe{client: client, ttl: ttl}
}

func (d *EventDedupe) Seen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}
	n, err := d.client.Exists(ctx, eventKeyPrefix+eventID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *EventDedupe) Remember(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	return d.client.Set(ctx, eventKeyPrefix+eventID, time.Now().UTC().Unix(), d.ttl)
}
