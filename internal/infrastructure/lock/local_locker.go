package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalLocker is an in-process Locker for single replica deployments and tests
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localEntry
	nowFn func() time.Time
}

type localEntry struct {
	token     uuid.UUID
	expiresAt time.Time
}

// NewLocalLocker creates an empty in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held:  make(map[string]localEntry),
		nowFn: time.Now,
	}
}

// Acquire takes the lock unless a live holder exists
func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if e, ok := l.held[key]; ok && now.Before(e.expiresAt) {
		return nil, ErrNotAcquired
	}
	token := uuid.New()
	l.held[key] = localEntry{token: token, expiresAt: now.Add(ttl)}
	return &localLease{key: key, token: token, owner: l}, nil
}

// IsHeld reports whether key currently has a live holder
func (l *LocalLocker) IsHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.held[key]
	return ok && l.nowFn().Before(e.expiresAt)
}

func (l *LocalLocker) release(key string, token uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// a lease that expired and was taken over must not free the new holder
	if e, ok := l.held[key]; ok && e.token == token {
		delete(l.held, key)
	}
}

type localLease struct {
	key   string
	token uuid.UUID
	owner *LocalLocker
}

func (l *localLease) Key() string { return l.key }

func (l *localLease) Release(_ context.Context) error {
	l.owner.release(l.key, l.token)
	return nil
}

var _ Locker = (*LocalLocker)(nil)
