package kvstore

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChunkSize = 500

// RedisStore keeps every entry as a plain string key under a common prefix.
type RedisStore struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

func NewRedisStore(client *redis.Client, prefix string, log *zap.Logger) *RedisStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		log:    log.Named("kvstore.redis"),
	}
}

func (s *RedisStore) Backend() string { return BackendRedis }

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisStore) GetMany(ctx context.Context, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, part := range chunk(keys, redisChunkSize) {
		prefixed := make([]string, len(part))
		for i, k := range part {
			prefixed[i] = s.key(k)
		}
		values, err := s.client.MGet(ctx, prefixed...).Result()
		if err != nil {
			return nil, fmt.Errorf("kvstore get many: %w", err)
		}
		for i, v := range values {
			if str, ok := v.(string); ok {
				out[part[i]] = str
			}
		}
	}
	return out, nil
}

// Write sends the batch as one MULTI/EXEC transaction, preserving order.
func (s *RedisStore) Write(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	if err := batch.validate(); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, op := range batch.ops {
			if op.Delete {
				pipe.Del(ctx, s.key(op.Key))
				continue
			}
			pipe.Set(ctx, s.key(op.Key), op.Value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("kvstore write: %w", err)
	}
	s.log.Debug("batch written", zap.Int("ops", batch.Len()))
	return nil
}

var _ Store = (*RedisStore)(nil)
