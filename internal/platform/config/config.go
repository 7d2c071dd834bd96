package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	ProviderDriverSandbox = "sandbox"
	ProviderDriverHTTP    = "http"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	MigrationsPath string
	StoreDriver    string
	RedisURL       string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	LogLevel       string

	JWTSecret      string
	JWTIssuer      string
	InternalAPIKey string
	// InternalAPIKeyHash is a bcrypt hash of the internal key. It takes precedence over InternalAPIKey.
	InternalAPIKeyHash string
	AllowedOrigins []string
	// WithdrawalRateLimit uses the ulule/limiter formatted notation, e.g. "5-M".
	WithdrawalRateLimit string

	// Engine
	DefaultCurrency        string
	BusinessTimeZone       *time.Location
	ExcludedCategories     []string
	MaxMonthlyCap          decimal.Decimal
	ProviderTimeout        time.Duration
	WithdrawalSLA          time.Duration
	SweepParallelism       int
	BalanceCacheTTL        time.Duration
	ReconcileAfterMutation bool
	LockTTL                time.Duration

	// External providers
	ProviderDriver       string
	BrokerageBaseURL     string
	PayoutBaseURL        string
	ProviderTokenURL     string
	ProviderClientID     string
	ProviderClientSecret string

	// Cron binary schedules
	SweepCronSpec         string
	ReconcileCronSpec     string
	PortfolioSyncCronSpec string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "roundup-vault")
	viper.SetDefault("INTERNAL_API_KEY", "")
	viper.SetDefault("INTERNAL_API_KEY_HASH", "")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("WITHDRAWAL_RATE_LIMIT", "5-M")
	viper.SetDefault("DEFAULT_CURRENCY", "EUR")
	viper.SetDefault("BUSINESS_TIMEZONE", "UTC")
	viper.SetDefault("EXCLUDED_CATEGORIES", "")
	viper.SetDefault("MAX_MONTHLY_CAP", "500")
	viper.SetDefault("PROVIDER_TIMEOUT", "10s")
	viper.SetDefault("WITHDRAWAL_SLA", "72h")
	viper.SetDefault("SWEEP_PARALLELISM", 4)
	viper.SetDefault("BALANCE_CACHE_TTL", "10m")
	viper.SetDefault("RECONCILE_AFTER_MUTATION", false)
	viper.SetDefault("LOCK_TTL", "30s")
	viper.SetDefault("PROVIDER_DRIVER", ProviderDriverSandbox)
	viper.SetDefault("BROKERAGE_BASE_URL", "")
	viper.SetDefault("PAYOUT_BASE_URL", "")
	viper.SetDefault("PROVIDER_TOKEN_URL", "")
	viper.SetDefault("PROVIDER_CLIENT_ID", "")
	viper.SetDefault("PROVIDER_CLIENT_SECRET", "")
	viper.SetDefault("SWEEP_CRON_SPEC", "0 6 * * *")
	viper.SetDefault("RECONCILE_CRON_SPEC", "*/15 * * * *")
	viper.SetDefault("PORTFOLIO_SYNC_CRON_SPEC", "0 * * * *")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.StoreDriver = strings.ToLower(viper.GetString("STORE_DRIVER"))
	if cfg.StoreDriver != StoreDriverPostgres && cfg.StoreDriver != StoreDriverMemory {
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" && cfg.StoreDriver == StoreDriverPostgres {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")
	cfg.RedisURL = viper.GetString("REDIS_URL")

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.LogLevel = viper.GetString("LOG_LEVEL")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	cfg.InternalAPIKey = viper.GetString("INTERNAL_API_KEY")
	cfg.InternalAPIKeyHash = viper.GetString("INTERNAL_API_KEY_HASH")
	if cfg.InternalAPIKey == "" && cfg.InternalAPIKeyHash == "" {
		log.Println("Warning: INTERNAL_API_KEY not set. Internal endpoints will reject every request.")
	}
	cfg.AllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))
	cfg.WithdrawalRateLimit = viper.GetString("WITHDRAWAL_RATE_LIMIT")

	cfg.DefaultCurrency = strings.ToUpper(viper.GetString("DEFAULT_CURRENCY"))
	if len(cfg.DefaultCurrency) != 3 {
		return nil, fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter code, got %q", cfg.DefaultCurrency)
	}

	tz := viper.GetString("BUSINESS_TIMEZONE")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TIMEZONE %q: %w", tz, err)
	}
	cfg.BusinessTimeZone = loc

	cfg.ExcludedCategories = splitList(viper.GetString("EXCLUDED_CATEGORIES"))

	maxCapStr := viper.GetString("MAX_MONTHLY_CAP")
	cfg.MaxMonthlyCap, err = decimal.NewFromString(maxCapStr)
	if err != nil || !cfg.MaxMonthlyCap.IsPositive() {
		return nil, fmt.Errorf("MAX_MONTHLY_CAP must be a positive decimal, got %q", maxCapStr)
	}

	cfg.ProviderTimeout = durationOrDefault("PROVIDER_TIMEOUT", 10*time.Second)
	cfg.WithdrawalSLA = durationOrDefault("WITHDRAWAL_SLA", 72*time.Hour)
	cfg.BalanceCacheTTL = durationOrDefault("BALANCE_CACHE_TTL", 10*time.Minute)
	cfg.LockTTL = durationOrDefault("LOCK_TTL", 30*time.Second)
	cfg.SweepParallelism = viper.GetInt("SWEEP_PARALLELISM")
	if cfg.SweepParallelism <= 0 {
		cfg.SweepParallelism = 4
		log.Printf("Warning: Invalid SWEEP_PARALLELISM. Defaulting to %d.\n", cfg.SweepParallelism)
	}
	cfg.ReconcileAfterMutation = viper.GetBool("RECONCILE_AFTER_MUTATION")

	cfg.ProviderDriver = strings.ToLower(viper.GetString("PROVIDER_DRIVER"))
	cfg.BrokerageBaseURL = viper.GetString("BROKERAGE_BASE_URL")
	cfg.PayoutBaseURL = viper.GetString("PAYOUT_BASE_URL")
	cfg.ProviderTokenURL = viper.GetString("PROVIDER_TOKEN_URL")
	cfg.ProviderClientID = viper.GetString("PROVIDER_CLIENT_ID")
	cfg.ProviderClientSecret = viper.GetString("PROVIDER_CLIENT_SECRET")
	switch cfg.ProviderDriver {
	case ProviderDriverSandbox:
		if cfg.IsProduction {
			log.Println("Warning: PROVIDER_DRIVER is sandbox in production. No real orders or payouts will be made.")
		}
	case ProviderDriverHTTP:
		if cfg.BrokerageBaseURL == "" || cfg.PayoutBaseURL == "" {
			return nil, fmt.Errorf("PROVIDER_DRIVER=http requires BROKERAGE_BASE_URL and PAYOUT_BASE_URL")
		}
	default:
		return nil, fmt.Errorf("unknown PROVIDER_DRIVER %q", cfg.ProviderDriver)
	}

	cfg.SweepCronSpec = viper.GetString("SWEEP_CRON_SPEC")
	cfg.ReconcileCronSpec = viper.GetString("RECONCILE_CRON_SPEC")
	cfg.PortfolioSyncCronSpec = viper.GetString("PORTFOLIO_SYNC_CRON_SPEC")

	return cfg, nil
}

// durationOrDefault parses a duration key, falling back with a warning.
func durationOrDefault(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback.String())
		}
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
