//go:build !integration

package postgres

import (
	"context"
	"time"

	"venux-billing/internal/domain/model"
	"venux-billing/internal/domain/ports/repository"
	red "venux-billing/internal/infra/redis"

	"github.com/go-redis/redis/v8"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerProfileRepo mocks the database repository the decorator wraps.
type mockInnerProfileRepo struct {
	FindByIDFunc          func(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error)
	SetCustomerIDFunc     func(ctx context.Context, tx repository.Tx, userID, customerID string) error
	ApplySubscriptionFunc func(ctx context.Context, tx repository.Tx, target model.ProfileTarget, patch model.SubscriptionPatch) ([]string, error)
	ListStaleActiveFunc   func(ctx context.Context, tx repository.Tx, expiredBefore, attemptedBefore time.Time, limit int) ([]*model.Profile, error)
	MarkReconciledFunc    func(ctx context.Context, tx repository.Tx, ids []string, at time.Time) error
	FindByWhatsAppFunc    func(ctx context.Context, tx repository.Tx, whatsapp string) (*model.Profile, error)
}

func (m *mockInnerProfileRepo) FindByID(ctx context.Context, tx repository.Tx, userID string) (*model.Profile, error) {
	return m.FindByIDFunc(ctx, tx, userID)
}
func (m *mockInnerProfileRepo) SetCustomerID(ctx context.Context, tx repository.Tx, userID, customerID string) error {
	return m.SetCustomerIDFunc(ctx, tx, userID, customerID)
}
func (m *mockInnerProfileRepo) ApplySubscription(ctx context.Context, tx repository.Tx, target model.ProfileTarget, patch model.SubscriptionPatch) ([]string, error) {
	return m.ApplySubscriptionFunc(ctx, tx, target, patch)
}
func (m *mockInnerProfileRepo) ListStaleActive(ctx context.Context, tx repository.Tx, expiredBefore, attemptedBefore time.Time, limit int) ([]*model.Profile, error) {
	return m.ListStaleActiveFunc(ctx, tx, expiredBefore, attemptedBefore, limit)
}
func (m *mockInnerProfileRepo) MarkReconciled(ctx context.Context, tx repository.Tx, ids []string, at time.Time) error {
	return m.MarkReconciledFunc(ctx, tx, ids, at)
}
func (m *mockInnerProfileRepo) FindByWhatsApp(ctx context.Context, tx repository.Tx, whatsapp string) (*model.Profile, error) {
	return m.FindByWhatsAppFunc(ctx, tx, whatsapp)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc       func(ctx context.Context, key string) (string, error)
	SetFunc       func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc     func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	ExistsFunc    func(ctx context.Context, keys ...string) (int64, error)
	DelFunc       func(ctx context.Context, keys ...string) error
	PingFunc      func(ctx context.Context) error
	IncrFunc      func(ctx context.Context, key string) (int64, error)
	ExpireFunc    func(ctx context.Context, key string, expiration time.Duration) error
	RunScriptFunc func(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) (interface{}, error)
	CloseFunc     func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return m.SetNXFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	return m.ExistsFunc(ctx, keys...)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) RunScript(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) (interface{}, error) {
	return m.RunScriptFunc(ctx, script, keys, args...)
}
func (m *mockRedisClient) Close() error {
	return m.CloseFunc()
}
