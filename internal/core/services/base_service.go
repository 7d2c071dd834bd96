package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	"github.com/SscSPs/roundup_vault/internal/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EngineOptions carries the tunables shared by the engine services.
type EngineOptions struct {
	Clock                  func() time.Time
	Location               *time.Location
	DefaultCurrency        string
	ExcludedCategories     []string
	MaxMonthlyCap          decimal.Decimal
	ProviderTimeout        time.Duration
	WithdrawalSLA          time.Duration
	SweepParallelism       int
	BalanceCacheTTL        time.Duration
	ReconcileAfterMutation bool
}

// Option is a functional option for configuring the engine services
type Option func(*EngineOptions)

// WithClock replaces time.Now, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(o *EngineOptions) {
		o.Clock = clock
	}
}

// WithLocation sets the business time zone used for month boundaries and sweep days.
func WithLocation(loc *time.Location) Option {
	return func(o *EngineOptions) {
		if loc != nil {
			o.Location = loc
		}
	}
}

// WithDefaultCurrency sets the vault currency used when a request omits one.
func WithDefaultCurrency(code string) Option {
	return func(o *EngineOptions) {
		if code != "" {
			o.DefaultCurrency = strings.ToUpper(code)
		}
	}
}

// WithExcludedCategories replaces the default category exclusion list.
func WithExcludedCategories(categories []string) Option {
	return func(o *EngineOptions) {
		if len(categories) > 0 {
			o.ExcludedCategories = categories
		}
	}
}

// WithMaxMonthlyCap sets the upper bound users may configure as monthly cap.
func WithMaxMonthlyCap(limit decimal.Decimal) Option {
	return func(o *EngineOptions) {
		if limit.IsPositive() {
			o.MaxMonthlyCap = limit
		}
	}
}

// WithProviderTimeout bounds every brokerage and payout call.
func WithProviderTimeout(d time.Duration) Option {
	return func(o *EngineOptions) {
		if d > 0 {
			o.ProviderTimeout = d
		}
	}
}

// WithWithdrawalSLA sets how long a withdrawal may stay open before it is failed.
func WithWithdrawalSLA(d time.Duration) Option {
	return func(o *EngineOptions) {
		if d > 0 {
			o.WithdrawalSLA = d
		}
	}
}

// WithSweepParallelism bounds how many users a sweep trigger evaluates at once.
func WithSweepParallelism(n int) Option {
	return func(o *EngineOptions) {
		if n > 0 {
			o.SweepParallelism = n
		}
	}
}

// WithBalanceCacheTTL sets how long a folded balance stays in the cache.
func WithBalanceCacheTTL(d time.Duration) Option {
	return func(o *EngineOptions) {
		if d > 0 {
			o.BalanceCacheTTL = d
		}
	}
}

// WithReconcileAfterMutation forces a cache reconciliation after every ledger write.
func WithReconcileAfterMutation(enabled bool) Option {
	return func(o *EngineOptions) {
		o.ReconcileAfterMutation = enabled
	}
}

func newEngineOptions(options []Option) EngineOptions {
	opts := EngineOptions{
		Clock:              time.Now,
		Location:           time.UTC,
		DefaultCurrency:    "EUR",
		ExcludedCategories: domain.DefaultExcludedCategories,
		MaxMonthlyCap:      decimal.NewFromInt(domain.DefaultMaxMonthlyCap),
		ProviderTimeout:    10 * time.Second,
		WithdrawalSLA:      72 * time.Hour,
		SweepParallelism:   4,
		BalanceCacheTTL:    10 * time.Minute,
	}
	for _, option := range options {
		option(&opts)
	}
	return opts
}

// BaseService provides common functionality for all services
type BaseService struct {
	opts      EngineOptions
	auditRepo portsrepo.AuditRepository
}

func newBaseService(auditRepo portsrepo.AuditRepository, options []Option) BaseService {
	return BaseService{opts: newEngineOptions(options), auditRepo: auditRepo}
}

// now returns the current time truncated to microseconds, the resolution Postgres stores.
func (s *BaseService) now() time.Time {
	return s.opts.Clock().UTC().Truncate(time.Microsecond)
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// RecordAudit appends an audit log entry. Failures are logged and never surface to the caller.
func (s *BaseService) RecordAudit(ctx context.Context, userID string, action domain.AuditAction, entityType, entityID string, details any) {
	if s.auditRepo == nil {
		return
	}
	var raw json.RawMessage
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			s.LogError(ctx, err, "Failed to encode audit details", slog.String("action", string(action)))
		} else {
			raw = b
		}
	}
	entry := domain.AuditLog{
		AuditLogID: uuid.NewString(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    raw,
		CreatedAt:  s.now(),
	}
	if err := s.auditRepo.SaveAuditLog(ctx, entry); err != nil {
		s.LogError(ctx, err, "Failed to save audit log",
			slog.String("user_id", userID),
			slog.String("action", string(action)))
	}
}

// withProviderTimeout derives a context bounded by the provider timeout.
func (s *BaseService) withProviderTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.ProviderTimeout)
}
