// Package redislock serializes work per key across API replicas with a
// Redis SET NX lock. Ownership is a random token so a holder whose TTL
// expired cannot release someone else's lock.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "priestwallet:lock:"
	defaultTTL    = 30 * time.Second
	defaultWait   = 5 * time.Second
	retryInterval = 25 * time.Millisecond
)

var ErrTimeout = errors.New("lock wait timed out")

// Unlock releases a held lock. Calling it more than once is harmless.
type Unlock func(ctx context.Context) error

type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// store is the subset of Redis the locker needs.
type store interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

type RedisLocker struct {
	store store
	ttl   time.Duration
	wait  time.Duration
}

func New(client redis.Cmdable, ttl, wait time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}

	return newLocker(&redisStore{client: client}, ttl, wait), nil
}

func newLocker(s store, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if wait <= 0 {
		wait = defaultWait
	}

	return &RedisLocker{store: s, ttl: ttl, wait: wait}
}

// Lock waits up to the configured wait for key to become free.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlock, error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}

	fullKey := keyPrefix + key
	owner := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.store.SetNX(ctx, fullKey, owner, l.ttl)
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("setnx %s: %w", fullKey, err)
		}
		if ok {
			return l.unlocker(fullKey, owner), nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%s: %w", key, ErrTimeout)
			}
			return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlocker(key, owner string) Unlock {
	released := false

	return func(ctx context.Context) error {
		if released {
			return nil
		}
		released = true

		_, err := l.store.CompareAndDelete(ctx, key, owner)
		if err != nil {
			return fmt.Errorf("release %s: %w", key, err)
		}

		return nil
	}
}

// Noop never blocks. It is used when Redis is not configured; row locks in
// Postgres still guard correctness.
type Noop struct{}

func (Noop) Lock(context.Context, string) (Unlock, error) {
	return func(context.Context) error { return nil }, nil
}

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisStore struct {
	client redis.Cmdable
}

func (s *redisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (s *redisStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	n, err := releaseScript.Run(ctx, s.client, []string{key}, value).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	return n == 1, nil
}
