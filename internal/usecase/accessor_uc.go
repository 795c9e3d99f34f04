// File: internal/usecase/accessor_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/adapter"
	"venux-billing/internal/domain/ports/repository"
	"venux-billing/internal/infra/metrics"
)

const (
	ActionGetReport       = "get_report"
	ActionAddTransaction  = "add_transaction"
	ActionAddSubscription = "add_subscription"
	ActionAddReminder     = "add_reminder"
	ActionGetSummary      = "get_summary"
	ActionListRecent      = "list_recent"
	ActionDeleteItem      = "delete_item"
	ActionUpdateItem      = "update_item"
)

// recentLimit caps each list in a list_recent reply.
const recentLimit = 5

var readOnlyActions = map[string]bool{
	ActionGetReport:  true,
	ActionGetSummary: true,
	ActionListRecent: true,
}

// AccessorRequest is one command from the WhatsApp assistant.
type AccessorRequest struct {
	WhatsApp string          `json:"whatsapp"`
	Action   string          `json:"action"`
	Data     json.RawMessage `json:"data"`

	// ReadOnly is set for callers holding only the public report secret.
	ReadOnly bool `json:"-"`
}

type ReportLink struct {
	Message string `json:"message"`
	Link    string `json:"link"`
}

type ItemResult struct {
	Message string `json:"message"`
	Item    any    `json:"item,omitempty"`
}

type SummaryResult struct {
	Balance float64 `json:"balance"`
	Name    string  `json:"name"`
}

type RecentResult struct {
	*model.RecentItems
	Username string `json:"username"`
}

// Compile-time check
var _ AccessorUseCase = (*accessorUC)(nil)

type AccessorUseCase interface {
	// Handle resolves the subscriber behind req.WhatsApp and runs the
	// action for them. Only profiles with an active subscription pass.
	Handle(ctx context.Context, req AccessorRequest) (any, error)
}

type AccessorOptions struct {
	SiteURL string
	Now     func() time.Time
}

type accessorUC struct {
	profiles repository.ProfileRepository
	ledger   repository.LedgerRepository
	tr       adapter.Translator
	opts     AccessorOptions
	log      *zerolog.Logger
}

func NewAccessorUseCase(
	profiles repository.ProfileRepository,
	ledger repository.LedgerRepository,
	tr adapter.Translator,
	opts AccessorOptions,
	logger *zerolog.Logger,
) AccessorUseCase {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.SiteURL = strings.TrimRight(opts.SiteURL, "/")
	l := logger.With().Str("component", "accessor").Logger()
	return &accessorUC{profiles: profiles, ledger: ledger, tr: tr, opts: opts, log: &l}
}

func (u *accessorUC) Handle(ctx context.Context, req AccessorRequest) (any, error) {
	action := strings.TrimSpace(req.Action)
	label := action
	if _, known := actionHandlers[action]; !known {
		label = "unknown"
	}

	res, err := u.handle(ctx, action, req)
	metrics.IncAccessorAction(label, accessorResult(err))
	return res, err
}

type actionFunc func(u *accessorUC, ctx context.Context, prof *model.Profile, req AccessorRequest) (any, error)

var actionHandlers = map[string]actionFunc{
	ActionGetReport:       (*accessorUC).report,
	ActionAddTransaction:  (*accessorUC).addTransaction,
	ActionAddSubscription: (*accessorUC).addSubscription,
	ActionAddReminder:     (*accessorUC).addReminder,
	ActionGetSummary:      (*accessorUC).summary,
	ActionListRecent:      (*accessorUC).recent,
	ActionDeleteItem:      (*accessorUC).deleteItem,
	ActionUpdateItem:      (*accessorUC).updateItem,
}

func (u *accessorUC) handle(ctx context.Context, action string, req AccessorRequest) (any, error) {
	if req.ReadOnly && !readOnlyActions[action] {
		return nil, domain.ErrUnauthorized
	}
	whatsapp := strings.TrimSpace(req.WhatsApp)
	if whatsapp == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, u.tr.T(keyAccessorWhatsAppRequired))
	}

	prof, err := u.profiles.FindByWhatsApp(ctx, repository.NoTX, whatsapp)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrUnknownWhatsApp
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProfileUnavailable, err)
	}
	if prof.EffectiveStatus() != model.SubscriptionStatusActive {
		u.log.Info().Str("user_id", prof.ID).Str("status", string(prof.EffectiveStatus())).Msg("accessor denied, subscription not active")
		return nil, domain.ErrSubscriptionInactive
	}

	fn, ok := actionHandlers[action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, u.tr.T(keyAccessorInvalidAction))
	}
	u.log.Debug().Str("user_id", prof.ID).Str("action", action).Msg("accessor action")
	return fn(u, ctx, prof, req)
}

func (u *accessorUC) report(ctx context.Context, prof *model.Profile, req AccessorRequest) (any, error) {
	var d struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := decodeData(req.Data, &d); err != nil {
		return nil, err
	}
	link := u.opts.SiteURL + "/report?w=" + url.QueryEscape(strings.TrimSpace(req.WhatsApp))
	if d.From != "" {
		link += "&from=" + url.QueryEscape(d.From)
	}
	if d.To != "" {
		link += "&to=" + url.QueryEscape(d.To)
	}
	return ReportLink{Message: u.tr.T(keyAccessorReportLink), Link: link}, nil
}

func (u *accessorUC) addTransaction(ctx context.Context, prof *model.Profile, req AccessorRequest) (any, error) {
	var d struct {
		Amount      *float64 `json:"amount"`
		Category    string   `json:"category"`
		Description string   `json:"description"`
		Type        string   `json:"type"`
	}
	if err := decodeData(req.Data, &d); err != nil {
		return nil, err
	}
	if d.Amount == nil {
		return nil, fmt.Errorf("%w: amount is required", domain.ErrInvalidArgument)
	}
	t := &model.Transaction{
		UserID:      prof.ID,
		Amount:      *d.Amount,
		Category:    orDefault(d.Category, model.DefaultTransactionCategory),
		Description: d.Description,
		Type:        orDefault(d.Type, model.DefaultTransactionType),
		Date:        u.opts.Now().UTC(),
	}
	if !model.ValidTransactionType(t.Type) {
		return nil, fmt.Errorf("%w: type must be %q or %q", domain.ErrInvalidArgument, model.TransactionIncome, model.TransactionExpense)
	}
	saved, err := u.ledger.AddTransaction(ctx, repository.NoTX, t)
	if err != nil {
		return nil, err
	}
	return ItemResult{Message: u.tr.T(keyAccessorTransactionSaved), Item: saved}, nil
}

func (u *accessorUC) addSubscription(ctx context.Context, prof *model.Profile, req AccessorRequest) (any, error) {
	var d struct {
		Name            string   `json:"name"`
		Amount          *float64 `json:"amount"`
		Category        string   `json:"category"`
		NextBillingDate string   `json:"next_billing_date"`
		BillingCycle    string   `json:"billing_cycle"`
	}
	if err := decodeData(req.Data, &d); err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Name) == "" || d.Amount == nil {
		return nil, fmt.Errorf("%w: name and amount are required", domain.ErrInvalidArgument)
	}
	next := u.opts.Now().UTC()
	if d.NextBillingDate != "" {
		var err error
		if next, err = model.ParseDate(d.NextBillingDate); err != nil {
			return nil, fmt.Errorf("%w: next_billing_date: %v", domain.ErrInvalidArgument, err)
		}
	}
	s := &model.RecurringSubscription{
		UserID:          prof.ID,
		Name:            strings.TrimSpace(d.Name),
		Amount:          *d.Amount,
		Category:        orDefault(d.Category, model.DefaultSubscriptionCategory),
		NextBillingDate: next,
		BillingCycle:    orDefault(d.BillingCycle, model.DefaultBillingCycle),
	}
	saved, err := u.ledger.AddSubscription(ctx, repository.NoTX, s)
	if err != nil {
		return nil, err
	}
	return ItemResult{Message: u.tr.T(keyAccessorSubscriptionSaved), Item: saved}, nil
}

func (u *accessorUC) addReminder(ctx context.Context, prof *model.Profile, req AccessorRequest) (any, error) {
	var d struct {
		Title    string   `json:"title"`
		RemindAt string   `json:"remind_at"`
		Valor    *float64 `json:"valor"`
	}
	if err := decodeData(req.Data, &d); err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidArgument)
	}
	at, err := model.ParseDate(d.RemindAt)
	if err != nil {
		return nil, fmt.Errorf("%w: remind_at: %v", domain.ErrInvalidArgument, err)
	}
	saved, err := u.ledger.AddReminder(ctx, repository.NoTX, &model.Reminder{
		UserID:   prof.ID,
		Title:    strings.TrimSpace(d.Title),
		Amount:   d.Valor,
		RemindAt: at,
		Status:   model.ReminderStatusPending,
	})
	if err != nil {
		return nil, err
	}
	return ItemResult{Message: u.tr.T(keyAccessorReminderSaved), Item: saved}, nil
}

func (u *accessorUC) summary(ctx context.Context, prof *model.Profile, _ AccessorRequest) (any, error) {
	balance, err := u.ledger.Balance(ctx, repository.NoTX, prof.ID)
	if err != nil {
		return nil, err
	}
	return SummaryResult{Balance: balance, Name: prof.FullName}, nil
}

func (u *accessorUC) recent(ctx context.Context, prof *model.Profile, _ AccessorRequest) (any, error) {
	items, err := u.ledger.Recent(ctx, repository.NoTX, prof.ID, recentLimit)
	if err != nil {
		return nil, err
	}
	return RecentResult{RecentItems: items, Username: prof.FullName}, nil
}

type itemRef struct {
	Table   string         `json:"table"`
	ID      string         `json:"id"`
	NewData map[string]any `json:"newData"`
}

func (r itemRef) resolve() (model.LedgerTable, error) {
	table, err := model.ParseLedgerTable(r.Table)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	if _, err := uuid.Parse(r.ID); err != nil {
		return "", fmt.Errorf("%w: invalid item id", domain.ErrInvalidArgument)
	}
	return table, nil
}

func (u *accessorUC) deleteItem(ctx context.Context, prof *model.Profile, req AccessorRequest) (any, error) {
	var ref itemRef
	if err := decodeData(req.Data, &ref); err != nil {
		return nil, err
	}
	table, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	if err := u.ledger.DeleteItem(ctx, repository.NoTX, table, prof.ID, ref.ID); err != nil {
		return nil, err
	}
	return ItemResult{Message: u.tr.T(keyAccessorItemRemoved)}, nil
}

func (u *accessorUC) updateItem(ctx context.Context, prof *model.Profile, req AccessorRequest) (any, error) {
	var ref itemRef
	if err := decodeData(req.Data, &ref); err != nil {
		return nil, err
	}
	table, err := ref.resolve()
	if err != nil {
		return nil, err
	}
	changes, err := table.Changes(ref.NewData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	row, err := u.ledger.UpdateItem(ctx, repository.NoTX, table, prof.ID, ref.ID, changes)
	if err != nil {
		return nil, err
	}
	return ItemResult{Message: u.tr.T(keyAccessorItemUpdated), Item: row}, nil
}

// decodeData reads an action's data object. A missing object is empty.
func decodeData(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: invalid data", domain.ErrInvalidArgument)
	}
	return nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func accessorResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnknownWhatsApp), errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrSubscriptionInactive):
		return "inactive"
	case errors.Is(err, domain.ErrUnauthorized):
		return "denied"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid"
	default:
		return "failed"
	}
}
