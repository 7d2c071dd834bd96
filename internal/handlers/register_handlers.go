package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SscSPs/roundup_vault/cmd/docs"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/SscSPs/roundup_vault/internal/middleware"
	"github.com/SscSPs/roundup_vault/internal/platform/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces.
// withdrawalLimiter may be nil, in which case withdrawals are not rate limited.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	withdrawalLimiter *limiter.Limiter,
) error {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := dto.RegisterValidators(v); err != nil {
			return fmt.Errorf("failed to register request validators: %w", err)
		}
	}

	if len(cfg.AllowedOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
		r.Use(cors.New(corsCfg))
	}

	// Add health check route
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// Setup API v1 routes with Auth Middleware, passing service interfaces
	setupAPIV1Routes(r, cfg, services, withdrawalLimiter)

	// Service-to-service routes
	setupInternalRoutes(r, cfg, services)

	// Swagger routes (typically public or conditionally available)
	setupSwaggerRoutes(r, cfg)
	return nil
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	service *portssvc.ServiceContainer,
	withdrawalLimiter *limiter.Limiter,
) {
	// Apply AuthMiddleware to the entire v1 group
	v1 := r.Group("/api/v1", middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))

	var createLimit gin.HandlerFunc
	if withdrawalLimiter != nil {
		createLimit = middleware.RateLimit(withdrawalLimiter)
	}

	registerVaultRoutes(v1, service.Balance)
	registerSweepRoutes(v1, service.Settings, service.Sweep)
	registerWithdrawalRoutes(v1, service.Withdrawal, createLimit)
	registerTransactionRoutes(v1, service.Transaction)
	registerPortfolioRoutes(v1, service.Portfolio)
}

func setupInternalRoutes(r *gin.Engine, cfg *config.Config, service *portssvc.ServiceContainer) {
	internal := r.Group("/internal", middleware.InternalAuth(cfg.InternalAPIKey, cfg.InternalAPIKeyHash))
	registerInternalRoutes(internal, service)
}

// setupSwaggerRoutes configures the swagger documentation routes
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// RegisterReadinessRoute adds /ready, which reports whether the backing store is reachable.
func RegisterReadinessRoute(r *gin.Engine, checker portsrepo.HealthChecker) {
	r.GET("/ready", func(c *gin.Context) {
		if err := checker.Ping(c.Request.Context()); err != nil {
			middleware.GetLoggerFromCtx(c.Request.Context()).Error("Readiness check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}
