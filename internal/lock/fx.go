package lock

import (
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/meterbook/internal/config"
	"go.uber.org/fx"
)

var LocalModule = fx.Module("lock.local",
	fx.Provide(func() Locker { return NewLocalLocker() }),
)

var RedisModule = fx.Module("lock.redis",
	fx.Provide(func(client *redis.Client, cfg config.Config) Locker {
		return NewRedisLocker(client, cfg.Redis.KeyPrefix+DefaultKey)
	}),
)
