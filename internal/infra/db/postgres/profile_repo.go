package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.ProfileRepository = (*profileRepo)(nil)

type profileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *profileRepo {
	return &profileRepo{pool: pool}
}

const profileColumns = `
	id, COALESCE(email, ''), full_name, whatsapp,
	status_assinatura, plano_nome,
	stripe_customer_id, stripe_subscription_id, stripe_price_id,
	data_ativacao, data_expiracao, updated_at`

func (r *profileRepo) FindByID(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	if tx != nil {
		// row stays locked until the caller's transaction ends
		q += ` FOR UPDATE`
	}
	p, err := scanProfile(pickRow(ctx, r.pool, tx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

func (r *profileRepo) SetCustomerID(ctx context.Context, tx repository.Tx, userID, customerID string) error {
	if userID == "" || customerID == "" {
		return domain.ErrInvalidArgument
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx,
		`UPDATE profiles SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`,
		userID, customerID)
	if err != nil {
		return fmt.Errorf("set customer id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ApplySubscription issues a single UPDATE over every row matching target.
func (r *profileRepo) ApplySubscription(ctx context.Context, tx repository.Tx, target model.ProfileTarget, patch model.SubscriptionPatch) ([]string, error) {
	q, args, err := buildSubscriptionUpdate(target, patch)
	if err != nil {
		return nil, err
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("apply subscription: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListStaleActive returns active profiles whose paid period ended before
// expiredBefore and that no reconciliation touched since attemptedBefore.
// Never-attempted rows come first, then the oldest expirations.
func (r *profileRepo) ListStaleActive(ctx context.Context, tx repository.Tx, expiredBefore, attemptedBefore time.Time, limit int) ([]*model.Profile, error) {
	if limit <= 0 {
		limit = 50
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	q := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE status_assinatura = $1
		  AND stripe_customer_id IS NOT NULL
		  AND data_expiracao < $2
		  AND (last_reconciled_at IS NULL OR last_reconciled_at < $3)
		ORDER BY last_reconciled_at ASC NULLS FIRST, data_expiracao ASC
		LIMIT $4`
	rows, err := ex.Query(ctx, q, dbStatusActive, expiredBefore.UTC(), attemptedBefore.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale profiles: %w", err)
	}
	defer rows.Close()

	var out []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkReconciled stamps the rows a reconciliation pass attempted.
func (r *profileRepo) MarkReconciled(ctx context.Context, tx repository.Tx, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx,
		`UPDATE profiles SET last_reconciled_at = $2 WHERE id = ANY($1::uuid[])`,
		ids, at.UTC()); err != nil {
		return fmt.Errorf("mark reconciled: %w", err)
	}
	return nil
}

// FindByWhatsApp resolves the profile linked to a WhatsApp number.
func (r *profileRepo) FindByWhatsApp(ctx context.Context, tx repository.Tx, whatsapp string) (*model.Profile, error) {
	if whatsapp == "" {
		return nil, domain.ErrInvalidArgument
	}
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE whatsapp = $1 ORDER BY updated_at DESC LIMIT 1`
	p, err := scanProfile(pickRow(ctx, r.pool, tx, q, whatsapp))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find profile by whatsapp: %w", err)
	}
	return p, nil
}

// buildSubscriptionUpdate renders patch into an UPDATE statement. The match
// column comes from a fixed set so it is safe to interpolate.
func buildSubscriptionUpdate(target model.ProfileTarget, patch model.SubscriptionPatch) (string, []interface{}, error) {
	if err := target.Validate(); err != nil {
		return "", nil, err
	}
	if patch.IsEmpty() {
		return "", nil, domain.ErrInvalidArgument
	}

	var sets []string
	var args []interface{}
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Status != nil {
		add("status_assinatura", statusToDB(*patch.Status))
	}
	if patch.PlanName != nil {
		add("plano_nome", planToDB(*patch.PlanName))
	}
	if patch.CustomerID != nil {
		add("stripe_customer_id", *patch.CustomerID)
	}
	if patch.SubscriptionID != nil {
		add("stripe_subscription_id", *patch.SubscriptionID)
	}
	if patch.PriceID != nil {
		add("stripe_price_id", *patch.PriceID)
	}
	if patch.ActivatedAt != nil {
		add("data_ativacao", patch.ActivatedAt.UTC())
	}
	if patch.ExpiresAt != nil {
		add("data_expiracao", patch.ExpiresAt.UTC())
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, target.Value)
	q := fmt.Sprintf("UPDATE profiles SET %s WHERE %s = $%d RETURNING id",
		strings.Join(sets, ", "), string(target.Field), len(args))
	return q, args, nil
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var (
		p                                    model.Profile
		fullName, whatsapp, status, plan     *string
		customerID, subscriptionID, priceID  *string
		activatedAt, expiresAt, updatedAtPtr *time.Time
	)
	if err := row.Scan(
		&p.ID, &p.Email, &fullName, &whatsapp,
		&status, &plan,
		&customerID, &subscriptionID, &priceID,
		&activatedAt, &expiresAt, &updatedAtPtr,
	); err != nil {
		return nil, err
	}
	p.FullName = str(fullName)
	p.WhatsApp = str(whatsapp)
	p.Status = statusFromDB(status)
	p.PlanName = planFromDB(plan)
	p.CustomerID = str(customerID)
	p.SubscriptionID = str(subscriptionID)
	p.PriceID = str(priceID)
	p.ActivatedAt = utcPtr(activatedAt)
	p.ExpiresAt = utcPtr(expiresAt)
	if updatedAtPtr != nil {
		p.UpdatedAt = updatedAtPtr.UTC()
	}
	return &p, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
