package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	"github.com/SscSPs/roundup_vault/internal/core/ports"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	skipInactive     = "sweeps are disabled"
	skipHeld         = "integrity hold in place"
	skipBelowMinimum = "balance below minimum threshold"
	skipCapExhausted = "monthly sweep cap already scheduled"
	skipEmptyVault   = "vault is empty"
	skipCommitted    = "balance committed to open sweep runs"
)

// sweepService runs the per-user sweep state machine and settles runs against the brokerage.
type sweepService struct {
	BaseService
	settingsRepo portsrepo.SweepSettingsRepository
	ledgerRepo   portsrepo.LedgerReader
	runRepo      portsrepo.SweepRunRepositoryFacade
	orderRepo    portsrepo.OrderRepository
	balances     portssvc.BalanceSvcFacade
	broker       ports.BrokerageClient
	locker       ports.UserLocker
}

// NewSweepService creates a new sweep service.
func NewSweepService(
	repos portsrepo.RepositoryProvider,
	balances portssvc.BalanceSvcFacade,
	broker ports.BrokerageClient,
	locker ports.UserLocker,
	options ...Option,
) portssvc.SweepSvcFacade {
	return &sweepService{
		BaseService:  newBaseService(repos.AuditRepo, options),
		settingsRepo: repos.SweepSettingsRepo,
		ledgerRepo:   repos.LedgerRepo,
		runRepo:      repos.SweepRunRepo,
		orderRepo:    repos.OrderRepo,
		balances:     balances,
		broker:       broker,
		locker:       locker,
	}
}

var _ portssvc.SweepSvcFacade = (*sweepService)(nil)

func (s *sweepService) TriggerSweeps(ctx context.Context, now time.Time) (*dto.SweepTriggerSummary, error) {
	settingsByUser, err := s.candidates(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to load sweep candidates")
		return nil, err
	}

	summary := &dto.SweepTriggerSummary{TriggeredAt: now, Errors: map[string]string{}}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.opts.SweepParallelism)
	for _, settings := range settingsByUser {
		settings := settings
		g.Go(func() error {
			evaluation, err := s.evaluateAndExecute(ctx, settings, now)

			mu.Lock()
			defer mu.Unlock()
			summary.Evaluated++
			if err != nil {
				summary.Failed++
				summary.Errors[settings.UserID] = err.Error()
				return nil
			}
			switch evaluation.State {
			case domain.SweepStateRunCreated:
				summary.RunsCreated++
			case domain.SweepStateSkipped:
				summary.Skipped++
			case domain.SweepStateAlreadyScheduled:
				summary.AlreadyScheduled++
			default:
				summary.Idle++
			}
			if evaluation.State != domain.SweepStateIdle {
				summary.Evaluations = append(summary.Evaluations, *evaluation)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(summary.Evaluations, func(i, j int) bool {
		return summary.Evaluations[i].UserID < summary.Evaluations[j].UserID
	})

	s.LogInfo(ctx, "Sweep trigger finished",
		slog.Time("triggered_at", now),
		slog.Int("evaluated", summary.Evaluated),
		slog.Int("runs_created", summary.RunsCreated),
		slog.Int("skipped", summary.Skipped),
		slog.Int("already_scheduled", summary.AlreadyScheduled),
		slog.Int("failed", summary.Failed))
	return summary, nil
}

func (s *sweepService) EvaluateUser(ctx context.Context, userID string, now time.Time) (*domain.SweepEvaluation, error) {
	settings, err := s.settingsRepo.FindSweepSettings(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		defaults := domain.DefaultSweepSettings(userID)
		settings = &defaults
	} else if err != nil {
		return nil, err
	}
	return s.evaluateAndExecute(ctx, *settings, now)
}

// candidates returns the settings of every user with a settings row or a ledger.
// Users without a row are evaluated with the default settings.
func (s *sweepService) candidates(ctx context.Context) ([]domain.SweepSettings, error) {
	stored, err := s.settingsRepo.ListSweepSettings(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(stored))
	for _, st := range stored {
		seen[st.UserID] = struct{}{}
	}

	userIDs, err := s.ledgerRepo.ListLedgerUserIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, userID := range userIDs {
		if _, ok := seen[userID]; !ok {
			stored = append(stored, domain.DefaultSweepSettings(userID))
		}
	}
	return stored, nil
}

func (s *sweepService) evaluateAndExecute(ctx context.Context, settings domain.SweepSettings, now time.Time) (*domain.SweepEvaluation, error) {
	evaluation, err := s.evaluate(ctx, settings, now)
	if err != nil {
		s.LogError(ctx, err, "Sweep evaluation failed", slog.String("user_id", settings.UserID))
		return nil, err
	}
	if evaluation.State != domain.SweepStateRunCreated {
		return evaluation, nil
	}

	run, err := s.ExecuteSweepRun(ctx, evaluation.Run.SweepRunID)
	if err != nil {
		// The run exists; reconciliation picks it up on the next pass.
		s.LogError(ctx, err, "Sweep hand-off failed", slog.String("sweep_run_id", evaluation.Run.SweepRunID))
		return evaluation, nil
	}
	evaluation.Run = run
	return evaluation, nil
}

func (s *sweepService) evaluate(ctx context.Context, settings domain.SweepSettings, now time.Time) (*domain.SweepEvaluation, error) {
	userID := settings.UserID
	evaluation := &domain.SweepEvaluation{UserID: userID, State: domain.SweepStateIdle}

	due, occurrence := domain.SweepDue(now, settings.SweepDay, s.opts.Location)
	if !due {
		return evaluation, nil
	}

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: locking vault of user %s: %v", apperrors.ErrConcurrencyConflict, userID, err)
	}
	defer unlock()

	existing, err := s.runRepo.FindSweepRunByScheduledDate(ctx, userID, occurrence)
	if err == nil {
		evaluation.State = domain.SweepStateAlreadyScheduled
		evaluation.Run = existing
		return evaluation, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if !settings.IsActive {
		return s.skip(ctx, evaluation, occurrence, skipInactive, nil), nil
	}
	if settings.IsHalted() {
		return s.skip(ctx, evaluation, occurrence, skipHeld, map[string]any{"haltReason": settings.HaltReason}), nil
	}

	balance, err := s.balances.ComputeBalance(ctx, userID, &now)
	if err != nil {
		return nil, err
	}
	if !balance.Balance.IsPositive() {
		return s.skip(ctx, evaluation, occurrence, skipEmptyVault, nil), nil
	}
	available, err := uncommittedBalance(ctx, s.runRepo, balance)
	if err != nil {
		return nil, err
	}
	if !available.IsPositive() {
		return s.skip(ctx, evaluation, occurrence, skipCommitted, map[string]any{
			"balance": balance.Balance.String(),
		}), nil
	}
	if available.LessThan(settings.MinimumThreshold) {
		return s.skip(ctx, evaluation, occurrence, skipBelowMinimum, map[string]any{
			"balance":          available.String(),
			"minimumThreshold": settings.MinimumThreshold.String(),
		}), nil
	}

	scheduled, err := s.scheduledThisMonth(ctx, userID, occurrence)
	if err != nil {
		return nil, err
	}
	remaining := settings.MonthlyCap.Sub(scheduled)
	amount := decimal.Min(available, remaining).Truncate(domain.MinorUnits(balance.CurrencyCode))
	if !amount.IsPositive() {
		return s.skip(ctx, evaluation, occurrence, skipCapExhausted, map[string]any{
			"monthlyCap": settings.MonthlyCap.String(),
			"scheduled":  scheduled.String(),
		}), nil
	}

	run := domain.SweepRun{
		SweepRunID:     uuid.NewString(),
		UserID:         userID,
		ScheduledFor:   occurrence,
		ScheduledAt:    s.now(),
		Amount:         amount,
		InvestedAmount: decimal.Zero,
		CurrencyCode:   balance.CurrencyCode,
		RiskProfile:    settings.RiskProfile,
		Status:         domain.SweepPending,
	}
	if err := s.runRepo.CreateSweepRun(ctx, run); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			existing, findErr := s.runRepo.FindSweepRunByScheduledDate(ctx, userID, occurrence)
			if findErr != nil {
				return nil, findErr
			}
			evaluation.State = domain.SweepStateAlreadyScheduled
			evaluation.Run = existing
			return evaluation, nil
		}
		return nil, err
	}

	s.LogInfo(ctx, "Sweep run created",
		slog.String("user_id", userID),
		slog.String("sweep_run_id", run.SweepRunID),
		slog.String("amount", amount.String()))
	s.RecordAudit(ctx, userID, domain.AuditSweepRunCreated, "sweep_run", run.SweepRunID, map[string]string{
		"amount":       amount.String(),
		"scheduledFor": occurrence.Format(time.DateOnly),
	})

	evaluation.State = domain.SweepStateRunCreated
	evaluation.Run = &run
	return evaluation, nil
}

func (s *sweepService) skip(ctx context.Context, evaluation *domain.SweepEvaluation, occurrence time.Time, reason string, details map[string]any) *domain.SweepEvaluation {
	evaluation.State = domain.SweepStateSkipped
	evaluation.SkipReason = reason

	if details == nil {
		details = map[string]any{}
	}
	details["reason"] = reason
	details["scheduledFor"] = occurrence.Format(time.DateOnly)

	s.LogInfo(ctx, "Sweep skipped", slog.String("user_id", evaluation.UserID), slog.String("reason", reason))
	s.RecordAudit(ctx, evaluation.UserID, domain.AuditSweepSkipped, "sweep_run", "", details)
	return evaluation
}

func (s *sweepService) scheduledThisMonth(ctx context.Context, userID string, occurrence time.Time) (decimal.Decimal, error) {
	from := domain.StartOfMonth(occurrence, s.opts.Location)
	runs, err := s.runRepo.ListSweepRunsInRange(ctx, userID, from, from.AddDate(0, 1, 0))
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, run := range runs {
		if run.Status != domain.SweepFailed {
			total = total.Add(run.Amount)
		}
	}
	return total, nil
}

func (s *sweepService) ExecuteSweepRun(ctx context.Context, sweepRunID string) (*domain.SweepRun, error) {
	run, err := s.runRepo.FindSweepRunByID(ctx, sweepRunID)
	if err != nil {
		return nil, err
	}
	if run.Status != domain.SweepPending {
		return run, nil
	}

	// Claiming the run makes the hand-off single-shot.
	if err := s.runRepo.TransitionSweepRun(ctx, run.SweepRunID, domain.SweepPending, domain.SweepProcessing, "", nil); err != nil {
		if errors.Is(err, apperrors.ErrConcurrencyConflict) {
			return s.runRepo.FindSweepRunByID(ctx, sweepRunID)
		}
		return nil, err
	}
	run.Status = domain.SweepProcessing

	orders, err := s.placeOrders(ctx, run)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, run, orders)
}

func (s *sweepService) placeOrders(ctx context.Context, run *domain.SweepRun) ([]domain.Order, error) {
	legs := domain.Allocate(run.Amount, run.CurrencyCode, run.RiskProfile)
	orders := make([]domain.Order, 0, len(legs))

	now := s.now()
	for _, leg := range legs {
		order := domain.Order{
			OrderID:          uuid.NewString(),
			UserID:           run.UserID,
			SweepRunID:       run.SweepRunID,
			ClientOrderID:    clientOrderID(run.SweepRunID, leg.Symbol),
			InstrumentSymbol: leg.Symbol,
			InstrumentName:   leg.Name,
			Amount:           leg.Amount,
			CurrencyCode:     run.CurrencyCode,
			Status:           domain.OrderPending,
			FilledQuantity:   decimal.Zero,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		// Persisted before the broker call so a timeout leaves a traceable pending order.
		if err := s.orderRepo.SaveOrder(ctx, order); err != nil {
			s.LogError(ctx, err, "Failed to save order", slog.String("sweep_run_id", run.SweepRunID))
			return nil, err
		}
		orders = append(orders, order)
	}

	for i := range orders {
		s.submit(ctx, &orders[i])
	}
	return orders, nil
}

// submit places one order and records the outcome. Errors never escape: a rejected or
// still-pending order is a valid state of the run.
func (s *sweepService) submit(ctx context.Context, order *domain.Order) {
	logger := s.GetLogger(ctx).With(
		slog.String("sweep_run_id", order.SweepRunID),
		slog.String("client_order_id", order.ClientOrderID))

	pctx, cancel := s.withProviderTimeout(ctx)
	outcome, err := s.broker.PlaceOrder(pctx, domain.OrderRequest{
		UserID:        order.UserID,
		Symbol:        order.InstrumentSymbol,
		Amount:        order.Amount,
		CurrencyCode:  order.CurrencyCode,
		SweepRunID:    order.SweepRunID,
		ClientOrderID: order.ClientOrderID,
	})
	timedOut := errors.Is(pctx.Err(), context.DeadlineExceeded)
	cancel()

	switch {
	case err != nil && (timedOut || errors.Is(err, context.DeadlineExceeded)):
		logger.Warn("Order placement timed out, left pending for reconciliation")
		return
	case err != nil:
		logger.Warn("Order rejected by provider error", slog.String("error", err.Error()))
		outcome = domain.OrderOutcome{Status: domain.OrderRejected, Reason: err.Error()}
	}

	s.applyOutcome(ctx, order, outcome)
}

func (s *sweepService) applyOutcome(ctx context.Context, order *domain.Order, outcome domain.OrderOutcome) {
	if outcome.Status == "" {
		outcome.Status = domain.OrderPending
	}
	order.Status = outcome.Status
	order.FailureReason = outcome.Reason
	if outcome.ExternalOrderID != "" {
		order.ExternalOrderID = outcome.ExternalOrderID
	}
	if !outcome.FilledQuantity.IsZero() {
		order.FilledQuantity = outcome.FilledQuantity
	}
	order.ExecutedAt = outcome.ExecutedAt
	order.UpdatedAt = s.now()

	if err := s.orderRepo.UpdateOrder(ctx, *order); err != nil {
		s.LogError(ctx, err, "Failed to record order outcome", slog.String("client_order_id", order.ClientOrderID))
	}
}

// settle applies the run-level consequence of its orders' states.
func (s *sweepService) settle(ctx context.Context, run *domain.SweepRun, orders []domain.Order) (*domain.SweepRun, error) {
	if len(orders) == 0 {
		return run, nil
	}

	filled := decimal.Zero
	anyFilled, allFinal := false, true
	var reasons []string
	for _, o := range orders {
		switch o.Status {
		case domain.OrderFilled:
			anyFilled = true
			filled = filled.Add(o.Amount)
		case domain.OrderRejected:
			reasons = append(reasons, o.InstrumentSymbol+": "+o.FailureReason)
		default:
			allFinal = false
		}
	}
	if !allFinal {
		return run, nil
	}

	now := s.now()
	if !anyFilled {
		detail := "all orders rejected: " + strings.Join(reasons, "; ")
		if err := s.runRepo.TransitionSweepRun(ctx, run.SweepRunID, run.Status, domain.SweepFailed, detail, &now); err != nil {
			return nil, err
		}
		run.Status = domain.SweepFailed
		run.ErrorDetail = detail
		run.ExecutedAt = &now
		s.GetLogger(ctx).Warn("Sweep run failed", slog.String("sweep_run_id", run.SweepRunID), slog.String("detail", detail))
		s.RecordAudit(ctx, run.UserID, domain.AuditSweepRunFailed, "sweep_run", run.SweepRunID, map[string]string{"detail": detail})
		return run, nil
	}

	entry := domain.LedgerEntry{
		EntryID:      uuid.NewString(),
		UserID:       run.UserID,
		Amount:       filled,
		CurrencyCode: run.CurrencyCode,
		IsReversal:   true,
		SweepRunID:   domain.StringRef(run.SweepRunID),
		CreatedAt:    now,
	}

	unlock, err := s.locker.Lock(ctx, run.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: locking vault of user %s: %v", apperrors.ErrConcurrencyConflict, run.UserID, err)
	}
	err = s.runRepo.CompleteSweepRun(ctx, run.SweepRunID, run.Status, filled, now, entry)
	unlock()
	if err != nil {
		s.LogError(ctx, err, "Failed to complete sweep run", slog.String("sweep_run_id", run.SweepRunID))
		return nil, err
	}

	run.Status = domain.SweepCompleted
	run.InvestedAmount = filled
	run.ExecutedAt = &now

	s.balances.RefreshAfterMutation(ctx, run.UserID)
	s.LogInfo(ctx, "Sweep run completed",
		slog.String("sweep_run_id", run.SweepRunID),
		slog.String("invested", filled.String()),
		slog.Int("rejected_orders", len(reasons)))
	s.RecordAudit(ctx, run.UserID, domain.AuditSweepRunCompleted, "sweep_run", run.SweepRunID, map[string]string{"invested": filled.String()})
	return run, nil
}

func (s *sweepService) ReconcileSweepRun(ctx context.Context, sweepRunID string) (*domain.SweepRun, error) {
	run, err := s.runRepo.FindSweepRunByID(ctx, sweepRunID)
	if err != nil {
		return nil, err
	}
	switch {
	case run.Status.IsTerminal():
		return run, nil
	case run.Status == domain.SweepPending:
		return s.ExecuteSweepRun(ctx, sweepRunID)
	}

	orders, err := s.orderRepo.ListOrdersBySweepRun(ctx, sweepRunID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		// Claimed but the process stopped before any order was saved.
		orders, err = s.placeOrders(ctx, run)
		if err != nil {
			return nil, err
		}
		return s.settle(ctx, run, orders)
	}

	for i := range orders {
		if orders[i].Status.IsFinal() {
			continue
		}
		s.poll(ctx, &orders[i])
	}
	return s.settle(ctx, run, orders)
}

func (s *sweepService) poll(ctx context.Context, order *domain.Order) {
	pctx, cancel := s.withProviderTimeout(ctx)
	outcome, err := s.broker.GetOrder(pctx, order.ClientOrderID)
	cancel()

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		// The broker never saw it; the client order id makes a re-submit safe.
		s.submit(ctx, order)
	case err != nil:
		s.GetLogger(ctx).Warn("Order status poll failed",
			slog.String("client_order_id", order.ClientOrderID),
			slog.String("error", err.Error()))
	case outcome.Status != order.Status:
		s.applyOutcome(ctx, order, outcome)
	}
}

func (s *sweepService) ReconcileOpenSweepRuns(ctx context.Context) ([]domain.SweepRun, error) {
	open, err := s.runRepo.ListSweepRunsByStatus(ctx, domain.SweepPending, domain.SweepProcessing)
	if err != nil {
		return nil, err
	}

	results := make([]domain.SweepRun, 0, len(open))
	for _, run := range open {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		reconciled, err := s.ReconcileSweepRun(ctx, run.SweepRunID)
		if err != nil {
			s.LogError(ctx, err, "Sweep reconciliation failed", slog.String("sweep_run_id", run.SweepRunID))
			continue
		}
		results = append(results, *reconciled)
	}
	return results, nil
}

func (s *sweepService) ListSweepRuns(ctx context.Context, userID string, limit int) ([]domain.SweepRun, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	return s.runRepo.ListSweepRunsByUser(ctx, userID, limit)
}

func clientOrderID(sweepRunID, symbol string) string {
	return sweepRunID + "-" + strings.ToLower(symbol)
}
