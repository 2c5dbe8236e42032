package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockCacher is an in-memory stand-in for the Redis cache. Values are stored as
// JSON like the real cache does, and misses return redis.Nil. The func fields
// override the default behaviour.
type MockCacher struct {
	GetFunc   func(ctx context.Context, key string, dest any) error
	SetFunc   func(ctx context.Context, key string, value any, expiration time.Duration) error
	CloseFunc func() error

	mu    sync.Mutex
	store map[string][]byte
}

func (m *MockCacher) Get(ctx context.Context, key string, dest any) error {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key, dest)
	}
	m.mu.Lock()
	data, ok := m.store[key]
	m.mu.Unlock()
	if !ok {
		return redis.Nil
	}
	return json.Unmarshal(data, dest)
}

func (m *MockCacher) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	m.store[key] = data
	return nil
}

func (m *MockCacher) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Keys returns the keys stored so far.
func (m *MockCacher) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.store))
	for k := range m.store {
		keys = append(keys, k)
	}
	return keys
}

// Put seeds a value as if it had been cached earlier.
func (m *MockCacher) Put(key string, value any) {
	_ = m.Set(context.Background(), key, value, 0)
}
