package services

import (
	"context"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

// openSweepCommitments sums the user's runs that may still insert an
// investment reversal, whatever month they were scheduled in. Callers must
// hold the user's lock.
func openSweepCommitments(ctx context.Context, runs portsrepo.SweepRunReader, userID string) (decimal.Decimal, error) {
	if runs == nil {
		return decimal.Zero, nil
	}
	open, err := runs.ListSweepRunsByStatus(ctx, domain.SweepPending, domain.SweepProcessing)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, run := range open {
		if run.UserID == userID {
			total = total.Add(run.Amount)
		}
	}
	return total, nil
}

// uncommittedBalance is what is left in the vault once open sweep runs settle.
func uncommittedBalance(ctx context.Context, runs portsrepo.SweepRunReader, balance *domain.VaultBalance) (decimal.Decimal, error) {
	committed, err := openSweepCommitments(ctx, runs, balance.UserID)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Balance.Sub(committed), nil
}
