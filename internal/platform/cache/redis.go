// Package cache holds the Redis balance cache. The ledger stays the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/core/ports"
	"github.com/go-redis/redis/v8"
)

const balanceKeyPrefix = "vault:balance:"

// RedisBalanceCache stores folded balances as JSON.
type RedisBalanceCache struct {
	client redis.Cmdable
}

// NewRedisBalanceCache creates a balance cache on top of a Redis client.
func NewRedisBalanceCache(client redis.Cmdable) *RedisBalanceCache {
	return &RedisBalanceCache{client: client}
}

var _ ports.BalanceCache = (*RedisBalanceCache)(nil)

func (c *RedisBalanceCache) Get(ctx context.Context, userID string) (*domain.VaultBalance, bool, error) {
	raw, err := c.client.Get(ctx, balanceKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached balance: %w", err)
	}
	var balance domain.VaultBalance
	if err := json.Unmarshal([]byte(raw), &balance); err != nil {
		return nil, false, fmt.Errorf("decoding cached balance: %w", err)
	}
	return &balance, true, nil
}

func (c *RedisBalanceCache) Set(ctx context.Context, balance domain.VaultBalance, ttl time.Duration) error {
	b, err := json.Marshal(balance)
	if err != nil {
		return fmt.Errorf("encoding balance: %w", err)
	}
	return c.client.Set(ctx, balanceKeyPrefix+balance.UserID, string(b), ttl).Err()
}

func (c *RedisBalanceCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, balanceKeyPrefix+userID).Err()
}
