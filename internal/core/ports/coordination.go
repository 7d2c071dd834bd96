package ports

import (
	"context"
	"errors"
	"time"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
)

// ErrLockNotAcquired is returned when a per-user lock could not be taken before the deadline.
var ErrLockNotAcquired = errors.New("user lock not acquired")

// UserLocker serializes mutations of a single user's vault. It never locks across users.
type UserLocker interface {
	// Lock blocks until the user's lock is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}

// BalanceCache holds the last folded balance per user. It is never the source of truth.
type BalanceCache interface {
	// Get returns the cached balance and whether it was present.
	Get(ctx context.Context, userID string) (*domain.VaultBalance, bool, error)
	Set(ctx context.Context, balance domain.VaultBalance, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string) error
}

// BrokerageClient places investment orders. Fills may be asynchronous.
type BrokerageClient interface {
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderOutcome, error)
	// GetOrder looks an order up by the idempotency key it was placed with.
	GetOrder(ctx context.Context, clientOrderID string) (domain.OrderOutcome, error)
	// GetPositions reports the holdings and uninvested cash of a user's account.
	GetPositions(ctx context.Context, userID string) (domain.BrokerageSnapshot, error)
}

// PayoutClient moves withdrawn funds to a user's bank account.
type PayoutClient interface {
	// InitiatePayout returns an in-flight outcome carrying the provider reference, or a failed outcome.
	InitiatePayout(ctx context.Context, req domain.PayoutRequest) (domain.PayoutOutcome, error)
	GetPayoutStatus(ctx context.Context, withdrawalID string) (domain.PayoutOutcome, error)
}
