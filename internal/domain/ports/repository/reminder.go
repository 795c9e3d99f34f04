package repository

import (
	"context"
	"time"

	"venux-billing/internal/domain/model"
)

// -----------------------------
// Reminders & push devices
// -----------------------------

type ReminderRepository interface {
	// ListDuePending skips reminders already notified at or after notifiedBefore.
	ListDuePending(ctx context.Context, tx Tx, dueBy, notifiedBefore time.Time, limit int) ([]*model.Reminder, error)
	MarkNotified(ctx context.Context, tx Tx, ids []string, at time.Time) error
}

type PushSubscriptionRepository interface {
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.PushSubscription, error)
	Delete(ctx context.Context, tx Tx, id string) error
}
