package cache_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/platform/cache"
	"github.com/go-redis/redismock/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBalanceCache_RoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewRedisBalanceCache(client)
	ctx := context.Background()

	balance := domain.VaultBalance{
		UserID:       "user-1",
		CurrencyCode: "EUR",
		Balance:      decimal.RequireFromString("1.17"),
		RawBalance:   decimal.RequireFromString("1.17"),
		EntryCount:   2,
		AsOf:         time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	encoded, err := json.Marshal(balance)
	require.NoError(t, err)

	mock.ExpectSet("vault:balance:user-1", string(encoded), 10*time.Minute).SetVal("OK")
	mock.ExpectGet("vault:balance:user-1").SetVal(string(encoded))

	require.NoError(t, c.Set(ctx, balance, 10*time.Minute))
	got, ok, err := c.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Balance.Equal(balance.Balance))
	assert.Equal(t, 2, got.EntryCount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBalanceCache_Miss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewRedisBalanceCache(client)

	mock.ExpectGet("vault:balance:user-1").RedisNil()

	got, ok, err := c.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisBalanceCache_Invalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := cache.NewRedisBalanceCache(client)

	mock.ExpectDel("vault:balance:user-1").SetVal(1)

	require.NoError(t, c.Invalidate(context.Background(), "user-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
