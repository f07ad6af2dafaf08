package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erp/acctsync/internal/domain/shared"
	"github.com/erp/acctsync/internal/infrastructure/config"
	"github.com/erp/acctsync/internal/infrastructure/lock"
)

// Backends bundles the coordination primitives shared by the event handler
// and the sweep scheduler
type Backends struct {
	Idempotency shared.IdempotencyStore
	Locker      lock.Locker
	Distributed bool

	client *redis.Client
}

// Close releases the idempotency store and the redis client, if any
func (b *Backends) Close() error {
	var firstErr error
	if b.Idempotency != nil {
		firstErr = b.Idempotency.Close()
	}
	if b.client != nil {
		if err := b.client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Ping checks the redis connection. In-process backends are always reachable.
func (b *Backends) Ping(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	return b.client.Ping(ctx).Err()
}

// BackendFactory builds Backends from configuration
type BackendFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	pingTimeout           time.Duration
}

// BackendFactoryOption configures a BackendFactory
type BackendFactoryOption func(*BackendFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) BackendFactoryOption {
	return func(f *BackendFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable redis degrades to
// in-process backends (default true)
func WithInMemoryFallback(allow bool) BackendFactoryOption {
	return func(f *BackendFactory) {
		f.allowInMemoryFallback = allow
	}
}

// WithPingTimeout bounds the redis connectivity check
func WithPingTimeout(d time.Duration) BackendFactoryOption {
	return func(f *BackendFactory) {
		f.pingTimeout = d
	}
}

// NewBackendFactory creates a new factory
func NewBackendFactory(cfg config.RedisConfig, opts ...BackendFactoryOption) *BackendFactory {
	f := &BackendFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		pingTimeout:           5 * time.Second,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns redis backed primitives when redis is enabled and reachable,
// in-process ones otherwise
func (f *BackendFactory) Create(ctx context.Context) (*Backends, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-process idempotency store and locks")
		return f.local(), nil
	}

	client, err := f.connect(ctx)
	if err == nil {
		f.logger.Info("Using Redis idempotency store and locks", zap.String("addr", f.redisConfig.Addr()))
		return &Backends{
			Idempotency: NewRedisIdempotencyStore(client, ""),
			Locker:      lock.NewRedisLocker(client, ""),
			Distributed: true,
			client:      client,
		}, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-process backends; "+
		"sweeps and event deduplication are no longer coordinated across replicas",
		zap.Error(err),
	)
	return f.local(), nil
}

func (f *BackendFactory) local() *Backends {
	return &Backends{
		Idempotency: NewInMemoryIdempotencyStore(0),
		Locker:      lock.NewLocalLocker(),
	}
}

func (f *BackendFactory) connect(ctx context.Context) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        f.redisConfig.Addr(),
		Password:    f.redisConfig.Password,
		DB:          f.redisConfig.DB,
		DialTimeout: f.pingTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, f.pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", f.redisConfig.Addr(), err)
	}
	return client, nil
}
