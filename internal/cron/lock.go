package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// lockGrace keeps the cycle lock alive a little past the cron interval so a
// slow cycle is not joined by a second worker.
const lockGrace = time.Hour

// Lock makes sure only one cron worker replica runs a cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
	Holder(ctx context.Context) (string, error)
}

type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// CycleLock stores the holding worker id under a redis key. The value is the
// replica id so operators can see which worker owns the running cycle.
type CycleLock struct {
	store  redisStore
	key    string
	ttl    time.Duration
	worker string
	held   bool
}

// NewCycleLock builds the lock for one cron cadence. The TTL covers the
// interval plus lockGrace; worker falls back to a random id.
func NewCycleLock(store redisStore, key string, interval time.Duration, worker string) (*CycleLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for cron lock")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("cron lock key is required")
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	worker = strings.TrimSpace(worker)
	if worker == "" {
		worker = uuid.NewString()
	}
	return &CycleLock{store: store, key: key, ttl: interval + lockGrace, worker: worker}, nil
}

func (l *CycleLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.store.SetNX(ctx, l.key, l.worker, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	l.held = ok
	return ok, nil
}

// Release drops the key only while this worker still holds it. An expired
// lock taken over by another replica is left alone.
func (l *CycleLock) Release(ctx context.Context) error {
	if !l.held {
		return nil
	}
	holder, err := l.Holder(ctx)
	if err != nil {
		return err
	}
	l.held = false
	if holder != l.worker {
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}

// Holder returns the worker id holding the lock, or "" when it is free.
func (l *CycleLock) Holder(ctx context.Context) (string, error) {
	value, err := l.store.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s holder: %w", l.key, err)
	}
	return value, nil
}
