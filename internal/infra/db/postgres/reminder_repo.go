package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/repository"
)

var _ repository.ReminderRepository = (*reminderRepo)(nil)

type reminderRepo struct {
	pool *pgxpool.Pool
}

func NewReminderRepo(pool *pgxpool.Pool) *reminderRepo {
	return &reminderRepo{pool: pool}
}

// ListDuePending returns pending reminders due at or before dueBy that were
// not notified since notifiedBefore.
func (r *reminderRepo) ListDuePending(ctx context.Context, tx repository.Tx, dueBy, notifiedBefore time.Time, limit int) ([]*model.Reminder, error) {
	if limit <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, `
		SELECT id, user_id, title, valor::float8, remind_at, status
		FROM reminders
		WHERE status = $1 AND remind_at <= $2
		  AND (last_notified_at IS NULL OR last_notified_at < $3)
		ORDER BY remind_at ASC
		LIMIT $4`,
		string(model.ReminderStatusPending), dueBy.UTC(), notifiedBefore.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	defer rows.Close()

	var out []*model.Reminder
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
		out = append(out, &rem)
	}
	return out, rows.Err()
}

func (r *reminderRepo) MarkNotified(ctx context.Context, tx repository.Tx, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, `UPDATE reminders SET last_notified_at = $2 WHERE id = ANY($1::uuid[])`, ids, at.UTC()); err != nil {
		return fmt.Errorf("mark reminders notified: %w", err)
	}
	return nil
}
