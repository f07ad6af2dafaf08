//go:build integration

package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLocker_Integration(t *testing.T) {
	ctx := context.Background()
	client := newRedisClient(t)

	first := NewRedisLocker(client, "")
	second := NewRedisLocker(client, "")

	lease, err := first.Acquire(ctx, "retry-sweep", 5*time.Second)
	require.NoError(t, err)

	ttl, err := client.PTTL(ctx, defaultKeyPrefix+"retry-sweep").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	_, err = second.Acquire(ctx, "retry-sweep", 5*time.Second)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, lease.Release(ctx))
	// releasing twice maps ErrLockNotHeld to nil
	require.NoError(t, lease.Release(ctx))

	again, err := second.Acquire(ctx, "retry-sweep", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisLocker_Expiry_Integration(t *testing.T) {
	ctx := context.Background()
	locker := NewRedisLocker(newRedisClient(t), "test:")

	_, err := locker.Acquire(ctx, "k", 200*time.Millisecond)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		lease, err := locker.Acquire(ctx, "k", time.Second)
		if err != nil {
			return false
		}
		_ = lease.Release(ctx)
		return true
	}, 3*time.Second, 50*time.Millisecond)
}
