//go:build !integration

package usecase_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/adapter"
	"venux-billing/internal/domain/ports/repository"
)

// -----------------------------
// Utilities
// -----------------------------

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// echoTranslator returns the key, followed by the args when present.
type echoTranslator struct{}

func (echoTranslator) T(key string, args ...interface{}) string {
	if len(args) == 0 {
		return key
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return key + ":" + strings.Join(parts, "|")
}

func ptrTime(t time.Time) *time.Time { return &t }

// =============================
// Repositories
// =============================

// ---- Mock ProfileRepository ----

type applyCall struct {
	Target model.ProfileTarget
	Patch  model.SubscriptionPatch
}

type MockProfileRepo struct {
	mu         sync.Mutex
	byID       map[string]*model.Profile
	reconciled map[string]time.Time

	Applied []applyCall

	FindByIDFunc          func(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error)
	SetCustomerIDFunc     func(ctx context.Context, tx repository.Tx, userID, customerID string) error
	ApplySubscriptionFunc func(ctx context.Context, tx repository.Tx, target model.ProfileTarget, patch model.SubscriptionPatch) ([]string, error)
	ListStaleActiveFunc   func(ctx context.Context, tx repository.Tx, expiredBefore, attemptedBefore time.Time, limit int) ([]*model.Profile, error)
}

var _ repository.ProfileRepository = (*MockProfileRepo)(nil)

func NewMockProfileRepo(profiles ...*model.Profile) *MockProfileRepo {
	r := &MockProfileRepo{byID: map[string]*model.Profile{}, reconciled: map[string]time.Time{}}
	for _, p := range profiles {
		cp := *p
		r.byID[p.ID] = &cp
	}
	return r
}

func (r *MockProfileRepo) Get(id string) *model.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

func (r *MockProfileRepo) FindByID(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, userID)
	}
	if p := r.Get(userID); p != nil {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockProfileRepo) SetCustomerID(ctx context.Context, tx repository.Tx, userID, customerID string) error {
	if r.SetCustomerIDFunc != nil {
		return r.SetCustomerIDFunc(ctx, tx, userID, customerID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[userID]
	if !ok {
		return domain.ErrNotFound
	}
	p.CustomerID = customerID
	return nil
}

func (r *MockProfileRepo) ApplySubscription(ctx context.Context, tx repository.Tx, target model.ProfileTarget, patch model.SubscriptionPatch) ([]string, error) {
	r.mu.Lock()
	r.Applied = append(r.Applied, applyCall{Target: target, Patch: patch})
	r.mu.Unlock()
	if r.ApplySubscriptionFunc != nil {
		return r.ApplySubscriptionFunc(ctx, tx, target, patch)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, p := range r.byID {
		var v string
		switch target.Field {
		case model.TargetUserID:
			v = p.ID
		case model.TargetCustomerID:
			v = p.CustomerID
		case model.TargetSubscriptionID:
			v = p.SubscriptionID
		}
		if v == target.Value {
			patch.Apply(p)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// ListStaleActive mirrors the SQL: never-attempted rows first, then the
// oldest expiration, capped at limit.
func (r *MockProfileRepo) ListStaleActive(ctx context.Context, tx repository.Tx, expiredBefore, attemptedBefore time.Time, limit int) ([]*model.Profile, error) {
	if r.ListStaleActiveFunc != nil {
		return r.ListStaleActiveFunc(ctx, tx, expiredBefore, attemptedBefore, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Profile
	for _, p := range r.byID {
		if p.Status != model.SubscriptionStatusActive || p.CustomerID == "" || p.ExpiresAt == nil || !p.ExpiresAt.Before(expiredBefore) {
			continue
		}
		if at, ok := r.reconciled[p.ID]; ok && !at.Before(attemptedBefore) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, iok := r.reconciled[out[i].ID]
		aj, jok := r.reconciled[out[j].ID]
		if iok != jok {
			return !iok
		}
		if iok && !ai.Equal(aj) {
			return ai.Before(aj)
		}
		return out[i].ExpiresAt.Before(*out[j].ExpiresAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockProfileRepo) MarkReconciled(ctx context.Context, tx repository.Tx, ids []string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.reconciled[id] = at
	}
	return nil
}

func (r *MockProfileRepo) FindByWhatsApp(ctx context.Context, tx repository.Tx, whatsapp string) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.WhatsApp != "" && p.WhatsApp == whatsapp {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ---- Mock ReminderRepository ----

type MockReminderRepo struct {
	mu       sync.Mutex
	items    []*model.Reminder
	notified map[string]time.Time

	ListDuePendingFunc func(ctx context.Context, tx repository.Tx, dueBy, notifiedBefore time.Time, limit int) ([]*model.Reminder, error)
	MarkNotifiedFunc   func(ctx context.Context, tx repository.Tx, ids []string, at time.Time) error
}

var _ repository.ReminderRepository = (*MockReminderRepo)(nil)

func NewMockReminderRepo(items ...*model.Reminder) *MockReminderRepo {
	return &MockReminderRepo{items: items, notified: map[string]time.Time{}}
}

func (r *MockReminderRepo) ListDuePending(ctx context.Context, tx repository.Tx, dueBy, notifiedBefore time.Time, limit int) ([]*model.Reminder, error) {
	if r.ListDuePendingFunc != nil {
		return r.ListDuePendingFunc(ctx, tx, dueBy, notifiedBefore, limit)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Reminder
	for _, it := range r.items {
		if it.Status != model.ReminderStatusPending || it.RemindAt.After(dueBy) {
			continue
		}
		if at, ok := r.notified[it.ID]; ok && !at.Before(notifiedBefore) {
			continue
		}
		cp := *it
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MockReminderRepo) MarkNotified(ctx context.Context, tx repository.Tx, ids []string, at time.Time) error {
	if r.MarkNotifiedFunc != nil {
		return r.MarkNotifiedFunc(ctx, tx, ids, at)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notified == nil {
		r.notified = map[string]time.Time{}
	}
	for _, id := range ids {
		r.notified[id] = at
	}
	return nil
}

// ---- Mock LedgerRepository ----

type ledgerRow struct {
	Table  model.LedgerTable
	UserID string
	Fields map[string]any
}

// MockLedgerRepo stores inserts in memory and keys edited rows by id.
type MockLedgerRepo struct {
	mu       sync.Mutex
	seq      int
	Rows     map[string]*ledgerRow
	Balances map[string]float64
	Recents  map[string]*model.RecentItems
}

var _ repository.LedgerRepository = (*MockLedgerRepo)(nil)

func NewMockLedgerRepo() *MockLedgerRepo {
	return &MockLedgerRepo{
		Rows:     map[string]*ledgerRow{},
		Balances: map[string]float64{},
		Recents:  map[string]*model.RecentItems{},
	}
}

func (r *MockLedgerRepo) nextID() string {
	r.seq++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", r.seq)
}

func (r *MockLedgerRepo) AddTransaction(ctx context.Context, tx repository.Tx, t *model.Transaction) (*model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	cp.ID = r.nextID()
	r.Rows[cp.ID] = &ledgerRow{Table: model.TableTransactions, UserID: cp.UserID, Fields: map[string]any{"amount": cp.Amount}}
	return &cp, nil
}

func (r *MockLedgerRepo) AddSubscription(ctx context.Context, tx repository.Tx, s *model.RecurringSubscription) (*model.RecurringSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	cp.ID = r.nextID()
	r.Rows[cp.ID] = &ledgerRow{Table: model.TableSubscriptions, UserID: cp.UserID, Fields: map[string]any{"name": cp.Name}}
	return &cp, nil
}

func (r *MockLedgerRepo) AddReminder(ctx context.Context, tx repository.Tx, rem *model.Reminder) (*model.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rem
	cp.ID = r.nextID()
	r.Rows[cp.ID] = &ledgerRow{Table: model.TableReminders, UserID: cp.UserID, Fields: map[string]any{"title": cp.Title}}
	return &cp, nil
}

func (r *MockLedgerRepo) Balance(ctx context.Context, tx repository.Tx, userID string) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Balances[userID], nil
}

func (r *MockLedgerRepo) Recent(ctx context.Context, tx repository.Tx, userID string, limit int) (*model.RecentItems, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if items, ok := r.Recents[userID]; ok {
		return items, nil
	}
	return &model.RecentItems{}, nil
}

func (r *MockLedgerRepo) owned(table model.LedgerTable, userID, id string) (*ledgerRow, bool) {
	row, ok := r.Rows[id]
	if !ok || row.Table != table || row.UserID != userID {
		return nil, false
	}
	return row, true
}

func (r *MockLedgerRepo) DeleteItem(ctx context.Context, tx repository.Tx, table model.LedgerTable, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owned(table, userID, id); !ok {
		return domain.ErrNotFound
	}
	delete(r.Rows, id)
	return nil
}

func (r *MockLedgerRepo) UpdateItem(ctx context.Context, tx repository.Tx, table model.LedgerTable, userID, id string, changes map[string]any) (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.owned(table, userID, id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	for k, v := range changes {
		row.Fields[k] = v
	}
	return json.Marshal(row.Fields)
}

// ---- Mock PushSubscriptionRepository ----

type MockPushRepo struct {
	mu      sync.Mutex
	byUser  map[string][]*model.PushSubscription
	Deleted []string

	ListByUserFunc func(ctx context.Context, tx repository.Tx, userID string) ([]*model.PushSubscription, error)
}

var _ repository.PushSubscriptionRepository = (*MockPushRepo)(nil)

func NewMockPushRepo(subs ...*model.PushSubscription) *MockPushRepo {
	r := &MockPushRepo{byUser: map[string][]*model.PushSubscription{}}
	for _, s := range subs {
		r.byUser[s.UserID] = append(r.byUser[s.UserID], s)
	}
	return r
}

func (r *MockPushRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PushSubscription, error) {
	if r.ListByUserFunc != nil {
		return r.ListByUserFunc(ctx, tx, userID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byUser[userID], nil
}

func (r *MockPushRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deleted = append(r.Deleted, id)
	return nil
}

// =============================
// Adapters
// =============================

// ---- Mock BillingProvider ----

type MockBilling struct {
	mu sync.Mutex

	Customers []adapter.CustomerRequest
	Checkouts []adapter.CheckoutRequest
	Portals   []string
	Calls     []string

	CustomerExistsFunc        func(ctx context.Context, customerID string) (bool, error)
	CreateCustomerFunc        func(ctx context.Context, req adapter.CustomerRequest) (string, error)
	CreateCheckoutSessionFunc func(ctx context.Context, req adapter.CheckoutRequest) (string, error)
	CreatePortalSessionFunc   func(ctx context.Context, customerID, returnURL string) (string, error)
	GetSubscriptionFunc       func(ctx context.Context, id string) (*model.BillingSubscription, error)
	LatestSubscriptionFunc    func(ctx context.Context, customerID string, activeOnly bool) (*model.BillingSubscription, error)
}

var _ adapter.BillingProvider = (*MockBilling)(nil)

func (m *MockBilling) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

func (m *MockBilling) Name() string { return "mock" }

func (m *MockBilling) CustomerExists(ctx context.Context, customerID string) (bool, error) {
	m.record("CustomerExists")
	if m.CustomerExistsFunc != nil {
		return m.CustomerExistsFunc(ctx, customerID)
	}
	return true, nil
}

func (m *MockBilling) CreateCustomer(ctx context.Context, req adapter.CustomerRequest) (string, error) {
	m.record("CreateCustomer")
	m.mu.Lock()
	m.Customers = append(m.Customers, req)
	m.mu.Unlock()
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, req)
	}
	return "cus_new", nil
}

func (m *MockBilling) CreateCheckoutSession(ctx context.Context, req adapter.CheckoutRequest) (string, error) {
	m.record("CreateCheckoutSession")
	m.mu.Lock()
	m.Checkouts = append(m.Checkouts, req)
	m.mu.Unlock()
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, req)
	}
	return "https://checkout.example/s/cs_1", nil
}

func (m *MockBilling) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	m.record("CreatePortalSession")
	m.mu.Lock()
	m.Portals = append(m.Portals, returnURL)
	m.mu.Unlock()
	if m.CreatePortalSessionFunc != nil {
		return m.CreatePortalSessionFunc(ctx, customerID, returnURL)
	}
	return "https://billing.example/p/1", nil
}

func (m *MockBilling) GetSubscription(ctx context.Context, id string) (*model.BillingSubscription, error) {
	m.record("GetSubscription")
	if m.GetSubscriptionFunc != nil {
		return m.GetSubscriptionFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockBilling) LatestSubscription(ctx context.Context, customerID string, activeOnly bool) (*model.BillingSubscription, error) {
	m.record(fmt.Sprintf("LatestSubscription(%t)", activeOnly))
	if m.LatestSubscriptionFunc != nil {
		return m.LatestSubscriptionFunc(ctx, customerID, activeOnly)
	}
	return nil, nil
}

// ---- Mock WebhookVerifier ----

type MockVerifier struct {
	ParseEventFunc func(payload []byte, signature string) (model.SubscriptionEvent, error)
}

func (m *MockVerifier) ParseEvent(payload []byte, signature string) (model.SubscriptionEvent, error) {
	if m.ParseEventFunc != nil {
		return m.ParseEventFunc(payload, signature)
	}
	return nil, domain.ErrInvalidSignature
}

// ---- In-memory EventDeduper ----

type memDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemDeduper() *memDeduper { return &memDeduper{seen: map[string]bool{}} }

func (d *memDeduper) Seen(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[id], nil
}

func (d *memDeduper) Remember(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[id] = true
	return nil
}

// ---- Mock AlertNotifier ----

type MockAlerts struct {
	mu   sync.Mutex
	Sent []string
}

func (m *MockAlerts) Alert(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, text)
	return nil
}

// ---- Mock PushSender ----

type MockPush struct {
	mu   sync.Mutex
	Sent []model.PushPayload

	SendFunc func(ctx context.Context, sub *model.PushSubscription, payload model.PushPayload) error
}

func (m *MockPush) Send(ctx context.Context, sub *model.PushSubscription, payload model.PushPayload) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, sub, payload); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, payload)
	return nil
}

// ---- In-memory Locker / RateLimiter ----

type memLocker struct {
	mu   sync.Mutex
	held map[string]string
	n    int
}

func newMemLocker() *memLocker { return &memLocker{held: map[string]string{}} }

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", domain.ErrLockBusy
	}
	l.n++
	tok := fmt.Sprintf("tok-%d", l.n)
	l.held[key] = tok
	return tok, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

type memLimiter struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemLimiter() *memLimiter { return &memLimiter{counts: map[string]int{}} }

func (l *memLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	return l.counts[key] <= limit, nil
}

// -----------------------------
// Transactions
// -----------------------------

// MockTxManager hands fn a marker transaction and records the outcome.
type MockTxManager struct {
	Calls int
	Err   error
}

type mockTx struct{}

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.Calls++
	if err := fn(ctx, mockTx{}); err != nil {
		m.Err = err
		return err
	}
	return nil
}
