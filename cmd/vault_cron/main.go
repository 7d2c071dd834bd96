package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SscSPs/roundup_vault/internal/app"
	"github.com/SscSPs/roundup_vault/internal/jobs"
	"github.com/SscSPs/roundup_vault/internal/platform/config"
	"github.com/SscSPs/roundup_vault/internal/platform/logger"
	"github.com/SscSPs/roundup_vault/internal/scheduler"
)

func main() {
	// Parse command-line flags
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'trigger-sweeps', 'all-reconcile')")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.IsProduction)
	log.Info("Starting vault cron runner...", slog.String("log_level", cfg.LogLevel))

	// The API server owns migrations.
	vault, err := app.Build(context.Background(), cfg, log, false)
	if err != nil {
		log.Error("Failed to build application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	jobRunner := jobs.NewJobRunner(vault.Services, log, 0)

	// Check if running a single job
	if *runOnce != "" {
		log.Info("Running job once", slog.String("job", *runOnce))
		err := runJobOnce(jobRunner, *runOnce)
		vault.Close()
		if err != nil {
			os.Exit(1)
		}
		return
	}

	cronScheduler, err := scheduler.NewScheduler(jobRunner, scheduler.Specs{
		TriggerSweeps:  cfg.SweepCronSpec,
		Reconcile:      cfg.ReconcileCronSpec,
		SyncPortfolios: cfg.PortfolioSyncCronSpec,
	}, cfg.BusinessTimeZone, log)
	if err != nil {
		log.Error("Failed to create scheduler", slog.String("error", err.Error()))
		vault.Close()
		os.Exit(1)
	}

	cronScheduler.Start()
	log.Info("Cron scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	cronScheduler.Stop()
	vault.Close()
	log.Info("Cron runner stopped. Goodbye!")
}

// runJobOnce runs a specific job once
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) error {
	switch jobName {
	case "trigger-sweeps":
		return jobRunner.TriggerSweeps()
	case "reconcile-sweeps":
		return jobRunner.ReconcileSweeps()
	case "reconcile-withdrawals":
		return jobRunner.ReconcileWithdrawals()
	case "reconcile-balances":
		return jobRunner.ReconcileBalances()
	case "sync-portfolios":
		return jobRunner.SyncPortfolios()
	case "all-reconcile":
		return jobRunner.RunAllReconcileJobs()
	default:
		fmt.Printf("Unknown job %q. Available jobs:\n", jobName)
		fmt.Printf("  - trigger-sweeps\n")
		fmt.Printf("  - reconcile-sweeps\n")
		fmt.Printf("  - reconcile-withdrawals\n")
		fmt.Printf("  - reconcile-balances\n")
		fmt.Printf("  - sync-portfolios\n")
		fmt.Printf("  - all-reconcile\n")
		return fmt.Errorf("unknown job %q", jobName)
	}
}
