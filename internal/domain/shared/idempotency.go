package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys (event ids) that were already handled so a
// redelivered event does not trigger a second sync
type IdempotencyStore interface {
	// MarkProcessed atomically records key for ttl. It returns false when the
	// key was already recorded and has not expired.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Unmark forgets key so that a redelivery is handled again
	Unmark(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig holds configuration for idempotent event handling
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns a 24h TTL with idempotency enabled
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
