// Package lock provides short-lived named locks used to keep sweeps from
// running concurrently across replicas.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when another holder owns the lock
var ErrNotAcquired = errors.New("lock: not acquired")

// Lease is a held lock. Release is safe to call more than once.
type Lease interface {
	Key() string
	Release(ctx context.Context) error
}

// Locker acquires named locks that expire after ttl if never released
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}
