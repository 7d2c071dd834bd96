package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/roundup_vault/internal/adapters/providers/httpapi"
	"github.com/SscSPs/roundup_vault/internal/adapters/providers/sandbox"
	"github.com/SscSPs/roundup_vault/internal/core/ports"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/core/services"
	"github.com/SscSPs/roundup_vault/internal/platform/cache"
	"github.com/SscSPs/roundup_vault/internal/platform/config"
	"github.com/SscSPs/roundup_vault/internal/platform/lock"
	"github.com/SscSPs/roundup_vault/internal/repositories/database/pgsql"
	"github.com/SscSPs/roundup_vault/internal/repositories/memory"
	"github.com/SscSPs/roundup_vault/pkg/database"
)

// App holds the wired engine shared by the API server and the cron runner.
type App struct {
	Repos    portsrepo.RepositoryProvider
	Services *portssvc.ServiceContainer

	closers []func()
}

// Build wires storage, coordination and providers according to cfg.
// Callers must Close the returned App.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, runMigrations bool) (*App, error) {
	a := &App{}

	repos, err := a.buildRepositories(ctx, cfg, logger, runMigrations)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Repos = repos

	collab, err := a.buildCollaborators(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Services = services.NewServiceContainer(repos, collab, services.OptionsFromConfig(cfg)...)
	return a, nil
}

// Close releases pools and clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) buildRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger, runMigrations bool) (portsrepo.RepositoryProvider, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("Using in-memory store. Data is lost on restart.")
		return memory.NewRepositoryProvider(memory.NewStore()), nil
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return portsrepo.RepositoryProvider{}, fmt.Errorf("failed to initialize database pool: %w", err)
	}
	a.closers = append(a.closers, dbPool.Close)
	logger.Info("Database connection pool established.")

	if runMigrations {
		if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return portsrepo.RepositoryProvider{}, err
		}
	}
	return pgsql.NewRepositoryProvider(dbPool), nil
}

func (a *App) buildCollaborators(ctx context.Context, cfg *config.Config, logger *slog.Logger) (services.Collaborators, error) {
	var collab services.Collaborators

	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return collab, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				logger.Error("Error closing redis client", slog.String("error", err.Error()))
			}
		})
		collab.Locker = lock.NewRedisLocker(client, cfg.LockTTL)
		collab.Cache = cache.NewRedisBalanceCache(client)
		logger.Info("Redis connected: distributed user locks and balance cache enabled.")
	} else {
		collab.Locker = lock.NewKeyedLocker()
		logger.Info("REDIS_URL not set: using in-process user locks without balance cache.")
	}

	broker, payouts := buildProviders(ctx, cfg)
	collab.Broker = broker
	collab.Payouts = payouts
	logger.Info("External providers configured", slog.String("driver", cfg.ProviderDriver))
	return collab, nil
}

func buildProviders(ctx context.Context, cfg *config.Config) (ports.BrokerageClient, ports.PayoutClient) {
	if cfg.ProviderDriver != config.ProviderDriverHTTP {
		return sandbox.NewBrokerage(), sandbox.NewPayouts()
	}
	httpClient := httpapi.NewHTTPClient(ctx, httpapi.Credentials{
		TokenURL:     cfg.ProviderTokenURL,
		ClientID:     cfg.ProviderClientID,
		ClientSecret: cfg.ProviderClientSecret,
	}, cfg.ProviderTimeout)
	return httpapi.NewBrokerage(cfg.BrokerageBaseURL, httpClient), httpapi.NewPayouts(cfg.PayoutBaseURL, httpClient)
}
