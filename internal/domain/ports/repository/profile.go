package repository

import (
	"context"
	"time"

	"venux-billing/internal/domain/model"
)

// -----------------------------
// Profiles
// -----------------------------

type ProfileRepository interface {
	FindByID(ctx context.Context, tx Tx, userID string) (*model.Profile, error)
	SetCustomerID(ctx context.Context, tx Tx, userID, customerID string) error
	// ApplySubscription writes patch to every profile matched by target and
	// returns the ids of the rows it touched. Zero matches is not an error.
	ApplySubscription(ctx context.Context, tx Tx, target model.ProfileTarget, patch model.SubscriptionPatch) ([]string, error)
	FindByWhatsApp(ctx context.Context, tx Tx, whatsapp string) (*model.Profile, error)
	// ListStaleActive returns active profiles whose period ended before
	// expiredBefore and that were not reconciled since attemptedBefore.
	ListStaleActive(ctx context.Context, tx Tx, expiredBefore, attemptedBefore time.Time, limit int) ([]*model.Profile, error)
	MarkReconciled(ctx context.Context, tx Tx, ids []string, at time.Time) error
}
