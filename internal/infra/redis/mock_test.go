package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// mockRedisClient is an in-memory RedisClient with optional overrides.
type mockRedisClient struct {
	store map[string]string

	SetNXFunc     func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	IncrFunc      func(ctx context.Context, key string) (int64, error)
	RunScriptFunc func(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) (interface{}, error)

	expires map[string]time.Duration
}

var _ RedisClient = (*mockRedisClient)(nil)

func newMockRedisClient() *mockRedisClient {
	return &mockRedisClient{store: map[string]string{}, expires: map[string]time.Duration{}}
}

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.store[key] = toString(value)
	m.expires[key] = expiration
	return nil
}

func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if m.SetNXFunc != nil {
		return m.SetNXFunc(ctx, key, value, expiration)
	}
	if _, ok := m.store[key]; ok {
		return false, nil
	}
	m.store[key] = toString(value)
	m.expires[key] = expiration
	return true, nil
}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.store[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *mockRedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if _, ok := m.store[k]; ok {
			n++
		}
	}
	return n, nil
}

func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	if m.IncrFunc != nil {
		return m.IncrFunc(ctx, key)
	}
	n, _ := strconv.ParseInt(m.store[key], 10, 64)
	n++
	m.store[key] = toString(n)
	return n, nil
}

func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	m.expires[key] = expiration
	return nil
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.store, k)
	}
	return nil
}

// RunScript emulates the unlock and rate limit scripts.
func (m *mockRedisClient) RunScript(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) (interface{}, error) {
	if m.RunScriptFunc != nil {
		return m.RunScriptFunc(ctx, script, keys, args...)
	}
	switch script {
	case luaRateLimit:
		n, err := m.Incr(ctx, keys[0])
		if err != nil {
			return nil, err
		}
		if n == 1 || m.expires[keys[0]] <= 0 {
			ms, _ := args[0].(int64)
			m.expires[keys[0]] = time.Duration(ms) * time.Millisecond
		}
		return n, nil
	case luaUnlock:
		if m.store[keys[0]] == toString(args[0]) {
			delete(m.store, keys[0])
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, fmt.Errorf("unexpected script %s", script.Hash())
}

func (m *mockRedisClient) Close() error { return nil }

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}
