package lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/ports"
	"github.com/SscSPs/roundup_vault/internal/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	redisKeyPrefix     = "vault:lock:"
	defaultRetryDelay  = 25 * time.Millisecond
	releaseTimeout     = 2 * time.Second
	compareAndDeleteJS = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
)

// RedisLocker serializes work per user across instances with SET NX PX.
// The lock expires after ttl if its holder dies.
type RedisLocker struct {
	client     redis.Cmdable
	ttl        time.Duration
	retryDelay time.Duration
	newToken   func() string
}

// NewRedisLocker creates a Redis backed locker.
func NewRedisLocker(client redis.Cmdable, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:     client,
		ttl:        ttl,
		retryDelay: defaultRetryDelay,
		newToken:   uuid.NewString,
	}
}

var _ ports.UserLocker = (*RedisLocker)(nil)

// Lock polls SET NX until it wins or ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := redisKeyPrefix + userID
	token := l.newToken()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrLockNotAcquired, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(l.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", ports.ErrLockNotAcquired, ctx.Err())
		case <-timer.C:
		}
	}

	logger := middleware.GetLoggerFromCtx(ctx)
	return func() {
		// Release must run even when the caller's context is already cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := l.client.Eval(rctx, compareAndDeleteJS, []string{key}, token).Err(); err != nil {
			logger.Warn("Failed to release user lock", slog.String("user_id", userID), slog.String("error", err.Error()))
		}
	}, nil
}
