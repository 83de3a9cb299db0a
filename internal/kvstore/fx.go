package kvstore

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/meterbook/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var SQLModule = fx.Module("kvstore.sql",
	fx.Provide(ProvideSQL),
)

var RedisModule = fx.Module("kvstore.redis",
	fx.Provide(ProvideRedis),
)

func ProvideSQL(db *gorm.DB, log *zap.Logger) Store {
	return NewSQLStore(db, log)
}

func ProvideRedis(client *redis.Client, cfg config.Config, log *zap.Logger) Store {
	return NewRedisStore(client, cfg.Redis.KeyPrefix, log)
}
