// Package lock keeps two newsletter runs from overlapping.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so a lock that
// expired and was taken by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a run lock shared by every process using the same Redis key.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisLock(client *redis.Client, key string, ttl time.Duration, logger *slog.Logger) *RedisLock {
	return &RedisLock{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger.With("component", "redis_lock"),
	}
}

// TryAcquire sets the key if it is free. The TTL bounds how long a crashed holder
// can block later runs.
func (l *RedisLock) TryAcquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("set lock key: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// release even when the run's context is already done
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			l.logger.Warn("failed to release lock", "key", l.key, "error", err)
		}
	}

	return release, true, nil
}
