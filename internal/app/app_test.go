package app_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SscSPs/roundup_vault/internal/app"
	"github.com/SscSPs/roundup_vault/internal/platform/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func memoryConfig() *config.Config {
	return &config.Config{
		StoreDriver:      config.StoreDriverMemory,
		ProviderDriver:   config.ProviderDriverSandbox,
		DefaultCurrency:  "EUR",
		BusinessTimeZone: time.UTC,
		MaxMonthlyCap:    decimal.NewFromInt(500),
		ProviderTimeout:  time.Second,
		WithdrawalSLA:    72 * time.Hour,
		SweepParallelism: 2,
		BalanceCacheTTL:  time.Minute,
		LockTTL:          time.Second,
	}
}

func TestBuild_MemoryStoreWithSandbox(t *testing.T) {
	a, err := app.Build(context.Background(), memoryConfig(), quietLogger(), true)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Services)
	assert.NoError(t, a.Repos.Health.Ping(context.Background()))

	b, err := a.Services.Balance.GetBalance(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "EUR", b.CurrencyCode)
	assert.True(t, b.Balance.IsZero())
}

func TestBuild_HTTPProviders(t *testing.T) {
	cfg := memoryConfig()
	cfg.ProviderDriver = config.ProviderDriverHTTP
	cfg.BrokerageBaseURL = "http://broker.invalid"
	cfg.PayoutBaseURL = "http://payouts.invalid"

	a, err := app.Build(context.Background(), cfg, quietLogger(), false)
	require.NoError(t, err)
	a.Close()
}

func TestBuild_BadRedisURL(t *testing.T) {
	cfg := memoryConfig()
	cfg.RedisURL = "not-a-redis-url"

	_, err := app.Build(context.Background(), cfg, quietLogger(), false)
	assert.ErrorContains(t, err, "redis")
}

func TestBuild_PostgresWithoutURL(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreDriver = config.StoreDriverPostgres

	_, err := app.Build(context.Background(), cfg, quietLogger(), false)
	assert.Error(t, err)
}
