package sandbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/core/ports"
	"github.com/google/uuid"
)

// Payouts simulates a payout rail. Payouts are keyed by withdrawal id.
type Payouts struct {
	mu       sync.Mutex
	behavior Behavior
	payouts  map[string]domain.PayoutOutcome
	calls    int
}

// NewPayouts creates a payout rail that accepts every payout and leaves it in flight.
func NewPayouts() *Payouts {
	return &Payouts{behavior: Accept, payouts: make(map[string]domain.PayoutOutcome)}
}

var _ ports.PayoutClient = (*Payouts)(nil)

// SetBehavior changes how new payouts are answered.
func (p *Payouts) SetBehavior(behavior Behavior) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.behavior = behavior
}

// Calls returns how many InitiatePayout calls were received.
func (p *Payouts) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *Payouts) InitiatePayout(ctx context.Context, req domain.PayoutRequest) (domain.PayoutOutcome, error) {
	p.mu.Lock()
	p.calls++
	if existing, ok := p.payouts[req.WithdrawalID]; ok {
		p.mu.Unlock()
		return existing, nil
	}
	behavior := p.behavior
	p.mu.Unlock()

	switch behavior {
	case Hang:
		<-ctx.Done()
		return domain.PayoutOutcome{}, ctx.Err()
	case Fail:
		return domain.PayoutOutcome{}, fmt.Errorf("%w: %v", apperrors.ErrExternalProvider, errSandboxUnavailable)
	}

	outcome := domain.PayoutOutcome{ProviderReference: "SBX-PAY-" + uuid.NewString()}
	switch behavior {
	case Reject:
		outcome.Status = domain.PayoutFailed
		outcome.Reason = "destination account rejected by sandbox"
	case Complete:
		outcome.Status = domain.PayoutSucceeded
	default:
		outcome.Status = domain.PayoutInFlight
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.payouts[req.WithdrawalID] = outcome
	return outcome, nil
}

func (p *Payouts) GetPayoutStatus(ctx context.Context, withdrawalID string) (domain.PayoutOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	outcome, ok := p.payouts[withdrawalID]
	if !ok {
		return domain.PayoutOutcome{}, apperrors.ErrNotFound
	}
	return outcome, nil
}

// Resolve settles an in-flight payout.
func (p *Payouts) Resolve(withdrawalID string, status domain.PayoutStatus, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	outcome, ok := p.payouts[withdrawalID]
	if !ok {
		return apperrors.ErrNotFound
	}
	outcome.Status = status
	outcome.Reason = reason
	p.payouts[withdrawalID] = outcome
	return nil
}
