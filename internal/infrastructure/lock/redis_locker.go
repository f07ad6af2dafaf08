package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "acctsync:lock:"

// RedisLocker implements Locker on top of redislock
type RedisLocker struct {
	client    *redislock.Client
	keyPrefix string
}

// NewRedisLocker creates a locker sharing the given redis client
func NewRedisLocker(rdb redis.UniversalClient, keyPrefix string) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisLocker{
		client:    redislock.New(rdb),
		keyPrefix: keyPrefix,
	}
}

// Acquire obtains the lock once, without retrying
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	lk, err := l.client.Obtain(ctx, l.keyPrefix+key, ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrNotAcquired
		}
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return &redisLease{key: key, lock: lk}, nil
}

type redisLease struct {
	key  string
	lock *redislock.Lock
}

func (l *redisLease) Key() string { return l.key }

// Release drops the lock. A lock that already expired is not an error.
func (l *redisLease) Release(ctx context.Context) error {
	if err := l.lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	return nil
}

var _ Locker = (*RedisLocker)(nil)
