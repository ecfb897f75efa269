package cron

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

const testLockKey = "collectz:lock:cron-worker:test"

func TestCycleLockIsExclusivePerWorker(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	first, err := NewCycleLock(store, testLockKey, time.Hour, "cron-a")
	require.NoError(t, err)
	second, err := NewCycleLock(store, testLockKey, time.Hour, "cron-b")
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2*time.Hour, store.ttls[testLockKey], "ttl is interval plus grace")

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	holder, err := second.Holder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cron-a", holder)

	require.NoError(t, second.Release(ctx))
	holder, _ = first.Holder(ctx)
	assert.Equal(t, "cron-a", holder, "a replica that never held the lock cannot drop it")

	require.NoError(t, first.Release(ctx))
	holder, _ = first.Holder(ctx)
	assert.Empty(t, holder)

	ok, _ = second.Acquire(ctx)
	assert.True(t, ok)
}

func TestCycleLockLeavesTakenOverLock(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	lock, err := NewCycleLock(store, testLockKey, time.Hour, "cron-a")
	require.NoError(t, err)

	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// the key expired mid-cycle and another replica took it
	store.set(testLockKey, "cron-b")

	require.NoError(t, lock.Release(ctx))
	holder, err := lock.Holder(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cron-b", holder)
}

func TestNewCycleLockValidates(t *testing.T) {
	_, err := NewCycleLock(nil, testLockKey, time.Hour, "w")
	assert.Error(t, err)
	_, err = NewCycleLock(newMemoryStore(), " ", time.Hour, "w")
	assert.Error(t, err)

	lock, err := NewCycleLock(newMemoryStore(), testLockKey, 0, "")
	require.NoError(t, err)
	assert.NotEmpty(t, lock.worker)
	assert.Equal(t, defaultInterval+lockGrace, lock.ttl)
}
