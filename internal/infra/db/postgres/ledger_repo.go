package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*ledgerRepo)(nil)

type ledgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *ledgerRepo {
	return &ledgerRepo{pool: pool}
}

func (r *ledgerRepo) AddTransaction(ctx context.Context, tx repository.Tx, t *model.Transaction) (*model.Transaction, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	out := model.Transaction{}
	err = ex.QueryRow(ctx, `
		INSERT INTO transactions (user_id, amount, category, description, type, date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, amount::float8, category, COALESCE(description, ''), type, date`,
		t.UserID, t.Amount, t.Category, t.Description, t.Type, t.Date.UTC(),
	).Scan(&out.ID, &out.UserID, &out.Amount, &out.Category, &out.Description, &out.Type, &out.Date)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	out.Date = out.Date.UTC()
	return &out, nil
}

func (r *ledgerRepo) AddSubscription(ctx context.Context, tx repository.Tx, s *model.RecurringSubscription) (*model.RecurringSubscription, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	out := model.RecurringSubscription{}
	err = ex.QueryRow(ctx, `
		INSERT INTO recurring_subscriptions (user_id, name, amount, category, next_billing_date, billing_cycle)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, user_id, name, amount::float8, category, next_billing_date, billing_cycle`,
		s.UserID, s.Name, s.Amount, s.Category, s.NextBillingDate.UTC(), s.BillingCycle,
	).Scan(&out.ID, &out.UserID, &out.Name, &out.Amount, &out.Category, &out.NextBillingDate, &out.BillingCycle)
	if err != nil {
		return nil, fmt.Errorf("insert recurring subscription: %w", err)
	}
	out.NextBillingDate = out.NextBillingDate.UTC()
	return &out, nil
}

func (r *ledgerRepo) AddReminder(ctx context.Context, tx repository.Tx, rem *model.Reminder) (*model.Reminder, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	var (
		out    model.Reminder
		status string
	)
	err = ex.QueryRow(ctx, `
		INSERT INTO reminders (user_id, title, valor, remind_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, title, valor::float8, remind_at, status`,
		rem.UserID, rem.Title, rem.Amount, rem.RemindAt.UTC(), string(model.ReminderStatusPending),
	).Scan(&out.ID, &out.UserID, &out.Title, &out.Amount, &out.RemindAt, &status)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	out.Status = model.ReminderStatus(status)
	out.RemindAt = out.RemindAt.UTC()
	return &out, nil
}

func (r *ledgerRepo) Balance(ctx context.Context, tx repository.Tx, userID string) (float64, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	var balance float64
	err = ex.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = $2 THEN amount ELSE -amount END), 0)::float8
		FROM transactions
		WHERE user_id = $1`, userID, model.TransactionIncome).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return balance, nil
}

func (r *ledgerRepo) Recent(ctx context.Context, tx repository.Tx, userID string, limit int) (*model.RecentItems, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	out := &model.RecentItems{
		Transactions:  []*model.Transaction{},
		Subscriptions: []*model.RecurringSubscription{},
		Reminders:     []*model.Reminder{},
	}

	rows, err := ex.Query(ctx, `
		SELECT id, user_id, amount::float8, category, COALESCE(description, ''), type, date
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Category, &t.Description, &t.Type, &t.Date); err != nil {
			rows.Close()
			return nil, err
		}
		t.Date = t.Date.UTC()
		out.Transactions = append(out.Transactions, &t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = ex.Query(ctx, `
		SELECT id, user_id, name, amount::float8, category, next_billing_date, billing_cycle
		FROM recurring_subscriptions
		WHERE user_id = $1
		ORDER BY next_billing_date ASC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent subscriptions: %w", err)
	}
	for rows.Next() {
		var s model.RecurringSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Amount, &s.Category, &s.NextBillingDate, &s.BillingCycle); err != nil {
			rows.Close()
			return nil, err
		}
		s.NextBillingDate = s.NextBillingDate.UTC()
		out.Subscriptions = append(out.Subscriptions, &s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = ex.Query(ctx, `
		SELECT id, user_id, title, valor::float8, remind_at, status
		FROM reminders
		WHERE user_id = $1 AND status = $2
		ORDER BY remind_at ASC
		LIMIT $3`, userID, string(model.ReminderStatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("recent reminders: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rem    model.Reminder
			status string
		)
		if err := rows.Scan(&rem.ID, &rem.UserID, &rem.Title, &rem.Amount, &rem.RemindAt, &status); err != nil {
			return nil, err
		}
		rem.Status = model.ReminderStatus(status)
		rem.RemindAt = rem.RemindAt.UTC()
		out.Reminders = append(out.Reminders, &rem)
	}
	return out, rows.Err()
}

func (r *ledgerRepo) DeleteItem(ctx context.Context, tx repository.Tx, table model.LedgerTable, userID, id string) error {
	if _, err := model.ParseLedgerTable(string(table)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx,
		`DELETE FROM `+pgx.Identifier{string(table)}.Sanitize()+` WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ledgerRepo) UpdateItem(ctx context.Context, tx repository.Tx, table model.LedgerTable, userID, id string, changes map[string]any) (json.RawMessage, error) {
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidArgument)
	}
	names := make([]string, 0, len(changes))
	for name := range changes {
		if !table.Editable(name) {
			return nil, fmt.Errorf("%w: column %q cannot be changed", domain.ErrInvalidArgument, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}

	sets := make([]string, 0, len(names))
	args := []any{id, userID}
	for _, name := range names {
		args = append(args, changes[name])
		sets = append(sets, fmt.Sprintf("%s = $%d", pgx.Identifier{name}.Sanitize(), len(args)))
	}
	query := `UPDATE ` + pgx.Identifier{string(table)}.Sanitize() + ` AS t SET ` + strings.Join(sets, ", ") +
		` WHERE t.id = $1 AND t.user_id = $2 RETURNING to_jsonb(t)::text`

	var row string
	if err := ex.QueryRow(ctx, query, args...).Scan(&row); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	return json.RawMessage(row), nil
}
