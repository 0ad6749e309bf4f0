package database

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/ruralpay/atm/internal/config"
	"github.com/ruralpay/atm/internal/logging"
	"go.uber.org/zap"
)

// NewRedis returns a client for the ledger event journal, or nil when the
// journal is disabled or Redis is unreachable.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *logging.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis connection failed, continuing without journal",
			zap.String("addr", cfg.Addr()), zap.Error(err))
		_ = rdb.Close()
		return nil
	}

	logger.Info("redis connection established", zap.String("addr", cfg.Addr()))
	return rdb
}
