// Package lock serializes record store mutations.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	DefaultKey   = "records_mutation_lock"
	defaultTTL   = 30 * time.Second
	defaultRetry = 50 * time.Millisecond
)

var ErrNotAcquired = errors.New("lock_not_acquired")

// Locker hands out exclusive access; the returned func releases it.
type Locker interface {
	Lock(ctx context.Context) (func(), error)
}

// LocalLocker serializes callers inside one process.
type LocalLocker struct {
	sem chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{sem: make(chan struct{}, 1)}
}

func (l *LocalLocker) Lock(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RedisLocker also serializes separate processes sharing one redis store.
type RedisLocker struct {
	local  *LocalLocker
	client *redis.Client
	script *redis.Script
	key    string
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client, key string) *RedisLocker {
	if key == "" {
		key = DefaultKey
	}
	return &RedisLocker{
		local:  NewLocalLocker(),
		client: client,
		script: redis.NewScript(lockReleaseScript),
		key:    key,
		ttl:    defaultTTL,
		retry:  defaultRetry,
	}
}

func (l *RedisLocker) Lock(ctx context.Context) (func(), error) {
	releaseLocal, err := l.local.Lock(ctx)
	if err != nil {
		return nil, err
	}

	for {
		token, ok, err := l.TryLock(ctx)
		if err != nil {
			releaseLocal()
			return nil, err
		}
		if ok {
			return func() {
				_ = l.Release(context.Background(), token)
				releaseLocal()
			}, nil
		}

		select {
		case <-ctx.Done():
			releaseLocal()
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-time.After(l.retry):
		}
	}
}

func (l *RedisLocker) TryLock(ctx context.Context) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("lock client not configured")
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, token string) error {
	if l == nil || l.client == nil || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{l.key}, token).Err()
}
