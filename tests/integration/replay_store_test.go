package integration

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ordersync/internal/infrastructure/cache"
	"github.com/erp/ordersync/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func startRedis(t *testing.T) config.RedisConfig {
	t.Helper()
	skipIfShort(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return config.RedisConfig{Host: host, Port: port.Int()}
}

func TestRedisReplayStore(t *testing.T) {
	cfg := startRedis(t)
	ctx := context.Background()

	factory := cache.NewReplayStoreFactory(cfg, cache.WithLogger(zap.NewNop()), cache.WithInMemoryFallback(false))
	store, err := factory.CreateStore(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	redisStore, ok := store.(*cache.RedisReplayStore)
	require.True(t, ok, "expected the Redis store, got %T", store)
	require.NoError(t, redisStore.Ping(ctx))

	seen, err := store.IsProcessed(ctx, "1001")
	require.NoError(t, err)
	assert.False(t, seen)

	first, err := store.MarkProcessed(ctx, "1001", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := store.MarkProcessed(ctx, "1001", time.Minute)
	require.NoError(t, err)
	assert.False(t, again)

	seen, err = store.IsProcessed(ctx, "1001")
	require.NoError(t, err)
	assert.True(t, seen)

	require.NoError(t, store.Forget(ctx, "1001"))
	seen, err = store.IsProcessed(ctx, "1001")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisReplayStore_Expiry(t *testing.T) {
	cfg := startRedis(t)
	ctx := context.Background()

	store, err := cache.NewReplayStoreFactory(cfg, cache.WithInMemoryFallback(false)).CreateStore(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.MarkProcessed(ctx, "2002", time.Second)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		seen, err := store.IsProcessed(ctx, "2002")
		return err == nil && !seen
	}, 5*time.Second, 100*time.Millisecond)
}

func TestReplayStoreFactory_RequireRedis(t *testing.T) {
	skipIfShort(t)

	// nothing listens on port 1
	cfg := config.RedisConfig{Host: "127.0.0.1", Port: 1}

	_, err := cache.NewReplayStoreFactory(cfg, cache.WithInMemoryFallback(false)).CreateStore(context.Background())
	assert.Error(t, err)

	store, err := cache.NewReplayStoreFactory(cfg, cache.WithInMemoryFallback(true)).CreateStore(context.Background())
	require.NoError(t, err)
	_, isRedis := store.(*cache.RedisReplayStore)
	assert.False(t, isRedis)
	_ = store.Close()
}
