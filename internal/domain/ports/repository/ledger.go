package repository

import (
	"context"
	"encoding/json"

	"venux-billing/internal/domain/model"
)

// -----------------------------
// Ledger (WhatsApp assistant)
// -----------------------------

// LedgerRepository reads and writes the user-owned finance tables. Every
// call is scoped to userID; rows owned by someone else behave as missing.
type LedgerRepository interface {
	AddTransaction(ctx context.Context, tx Tx, t *model.Transaction) (*model.Transaction, error)
	AddSubscription(ctx context.Context, tx Tx, s *model.RecurringSubscription) (*model.RecurringSubscription, error)
	AddReminder(ctx context.Context, tx Tx, r *model.Reminder) (*model.Reminder, error)
	// Balance is income minus every other transaction type.
	Balance(ctx context.Context, tx Tx, userID string) (float64, error)
	Recent(ctx context.Context, tx Tx, userID string, limit int) (*model.RecentItems, error)
	DeleteItem(ctx context.Context, tx Tx, table model.LedgerTable, userID, id string) error
	// UpdateItem applies changes produced by LedgerTable.Changes and returns
	// the updated row as JSON.
	UpdateItem(ctx context.Context, tx Tx, table model.LedgerTable, userID, id string, changes map[string]any) (json.RawMessage, error)
}
