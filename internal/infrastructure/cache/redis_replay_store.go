package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultReplayKeyPrefix namespaces webhook replay keys in Redis
const DefaultReplayKeyPrefix = "ordersync:webhook:"

const redisPingTimeout = 5 * time.Second

// RedisReplayStore implements shared.IdempotencyStore on Redis so that
// every instance sees the same processed keys
type RedisReplayStore struct {
	client    *redis.Client
	keyPrefix string
}

var _ shared.IdempotencyStore = (*RedisReplayStore)(nil)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewRedisClient opens a client and pings it
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewRedisReplayStore creates a store on an existing client. An empty prefix uses DefaultReplayKeyPrefix.
func NewRedisReplayStore(client *redis.Client, keyPrefix string) *RedisReplayStore {
	if keyPrefix == "" {
		keyPrefix = DefaultReplayKeyPrefix
	}
	return &RedisReplayStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed sets the key with SET NX and a TTL in one round trip
func (s *RedisReplayStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s as processed: %w", key, err)
	}
	return ok, nil
}

// IsProcessed reports whether the key exists
func (s *RedisReplayStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return n > 0, nil
}

// Forget deletes the key
func (s *RedisReplayStore) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to forget %s: %w", key, err)
	}
	return nil
}

// Ping checks the Redis connection
func (s *RedisReplayStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisReplayStore) Close() error {
	return s.client.Close()
}
