package database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/bankcore/backend/internal/config"
)

// OpenRedis returns nil when Redis is unreachable; idempotency keys, ledger
// events and token revocation are then disabled.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis connection failed, continuing without redis", zap.Error(err))
		rdb.Close()
		return nil
	}

	logger.Info("redis connection established", zap.String("addr", cfg.Addr()))
	return rdb
}
