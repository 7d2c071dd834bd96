package jobs

import (
	"context"
	"log/slog"

	"github.com/SscSPs/roundup_vault/internal/middleware"
)

// TriggerSweeps evaluates every configured user and executes the runs that are due.
func (jr *JobRunner) TriggerSweeps() error {
	return jr.runWithRecovery("TriggerSweeps", func(ctx context.Context) error {
		summary, err := jr.services.Sweep.TriggerSweeps(ctx, jr.now())
		if err != nil {
			return err
		}
		middleware.GetLoggerFromCtx(ctx).Info("Sweep trigger finished",
			slog.Int("evaluated", summary.Evaluated),
			slog.Int("runs_created", summary.RunsCreated),
			slog.Int("skipped", summary.Skipped),
			slog.Int("failed", summary.Failed))
		return nil
	})
}

// ReconcileSweeps settles pending and processing sweep runs against the brokerage.
func (jr *JobRunner) ReconcileSweeps() error {
	return jr.runWithRecovery("ReconcileSweeps", func(ctx context.Context) error {
		runs, err := jr.services.Sweep.ReconcileOpenSweepRuns(ctx)
		if err != nil {
			return err
		}
		middleware.GetLoggerFromCtx(ctx).Info("Open sweep runs reconciled", slog.Int("runs", len(runs)))
		return nil
	})
}

// ReconcileWithdrawals polls the payout provider and fails withdrawals past the SLA.
func (jr *JobRunner) ReconcileWithdrawals() error {
	return jr.runWithRecovery("ReconcileWithdrawals", func(ctx context.Context) error {
		ws, err := jr.services.Withdrawal.ReconcilePendingWithdrawals(ctx, jr.now())
		if err != nil {
			return err
		}
		middleware.GetLoggerFromCtx(ctx).Info("Open withdrawals reconciled", slog.Int("withdrawals", len(ws)))
		return nil
	})
}

// SyncPortfolios refreshes the stored brokerage holdings of every vault user.
func (jr *JobRunner) SyncPortfolios() error {
	return jr.runWithRecovery("SyncPortfolios", func(ctx context.Context) error {
		resp, err := jr.services.Portfolio.SyncAllPortfolios(ctx)
		if err != nil {
			return err
		}
		middleware.GetLoggerFromCtx(ctx).Info("Portfolios synced", slog.Int("synced", resp.Synced), slog.Int("failed", resp.Failed))
		return nil
	})
}

// ReconcileBalances repairs cached balances that drifted from the ledger.
func (jr *JobRunner) ReconcileBalances() error {
	return jr.runWithRecovery("ReconcileBalances", func(ctx context.Context) error {
		resp, err := jr.services.Balance.ReconcileAllBalances(ctx)
		if err != nil {
			return err
		}
		logger := middleware.GetLoggerFromCtx(ctx)
		if resp.Mismatched > 0 {
			logger.Warn("Balance cache mismatches repaired", slog.Int("checked", resp.Checked), slog.Int("mismatched", resp.Mismatched))
			return nil
		}
		logger.Info("Balance cache consistent", slog.Int("checked", resp.Checked))
		return nil
	})
}
