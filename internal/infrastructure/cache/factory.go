package cache

import (
	"context"
	"fmt"

	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/erp/ordersync/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ReplayStoreFactory creates webhook replay stores based on configuration
type ReplayStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	connect               func(ctx context.Context, cfg RedisConfig) (shared.IdempotencyStore, error)
}

// ReplayStoreFactoryOption is a functional option for configuring the factory
type ReplayStoreFactoryOption func(*ReplayStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ReplayStoreFactoryOption {
	return func(f *ReplayStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to the in-memory store.
// Default is true.
func WithInMemoryFallback(allow bool) ReplayStoreFactoryOption {
	return func(f *ReplayStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewReplayStoreFactory creates a new factory
func NewReplayStoreFactory(cfg config.RedisConfig, opts ...ReplayStoreFactoryOption) *ReplayStoreFactory {
	f := &ReplayStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
		connect:               connectRedisReplayStore,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func connectRedisReplayStore(ctx context.Context, cfg RedisConfig) (shared.IdempotencyStore, error) {
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewRedisReplayStore(client, DefaultReplayKeyPrefix), nil
}

// CreateStore returns a Redis store, or an in-memory store when Redis is
// unreachable and fallback is allowed
func (f *ReplayStoreFactory) CreateStore(ctx context.Context) (shared.IdempotencyStore, error) {
	store, err := f.connect(ctx, RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis webhook replay store")
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for webhook replay guard but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory webhook replay store",
		zap.Error(err),
	)
	return NewInMemoryReplayStore(), nil
}
