package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/roundup_vault/internal/app"
	"github.com/SscSPs/roundup_vault/internal/handlers"
	"github.com/SscSPs/roundup_vault/internal/middleware"
	"github.com/SscSPs/roundup_vault/internal/platform/config"
	"github.com/SscSPs/roundup_vault/internal/platform/logger"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// @title Round-Up Vault API
// @version 1.0
// @description Round-up ledger, scheduled investment sweeps and withdrawals.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey InternalApiKey
// @in header
// @name X-Internal-Api-Key
// @description Shared secret of internal callers.

// @security BearerAuth
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel, cfg.IsProduction)

	if err := run(cfg, log); err != nil {
		log.Error("Server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	vault, err := app.Build(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer vault.Close()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(log), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		return err
	}

	var withdrawalLimiter *limiter.Limiter
	if cfg.WithdrawalRateLimit != "" {
		rate, err := limiter.NewRateFromFormatted(cfg.WithdrawalRateLimit)
		if err != nil {
			return err
		}
		withdrawalLimiter = limiter.New(memory.NewStore(), rate)
	}

	if err := handlers.RegisterRoutes(r, cfg, vault.Services, withdrawalLimiter); err != nil {
		return err
	}
	handlers.RegisterReadinessRoute(r, vault.Repos.Health)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", slog.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}

	log.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("Server stopped")
	return nil
}
