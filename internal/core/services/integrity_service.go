package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
)

type integrityService struct {
	BaseService
	settingsRepo portsrepo.SweepSettingsRepository
}

// NewIntegrityService creates the service that places and releases integrity holds.
func NewIntegrityService(settingsRepo portsrepo.SweepSettingsRepository, auditRepo portsrepo.AuditRepository, options ...Option) portssvc.IntegritySvc {
	return &integrityService{
		BaseService:  newBaseService(auditRepo, options),
		settingsRepo: settingsRepo,
	}
}

var _ portssvc.IntegritySvc = (*integrityService)(nil)

func (s *integrityService) PlaceHold(ctx context.Context, userID, reason string) {
	logger := s.GetLogger(ctx).With(slog.String("user_id", userID))
	// Logged at Error: a hold means the ledger disagrees with itself and needs a human.
	logger.Error("Placing integrity hold", slog.String("reason", reason))

	if err := s.settingsRepo.PlaceIntegrityHold(ctx, userID, reason, s.now()); err != nil {
		s.LogError(ctx, err, "Failed to persist integrity hold", slog.String("user_id", userID))
		return
	}
	s.RecordAudit(ctx, userID, domain.AuditIntegrityHoldPlaced, "sweep_settings", userID, map[string]string{"reason": reason})
}

func (s *integrityService) ReleaseHold(ctx context.Context, userID string) error {
	settings, err := s.settingsRepo.FindSweepSettings(ctx, userID)
	if err != nil {
		return err
	}
	if !settings.IsHalted() {
		return fmt.Errorf("%w: no integrity hold in place for user %s", apperrors.ErrValidation, userID)
	}
	if err := s.settingsRepo.ClearIntegrityHold(ctx, userID, s.now()); err != nil {
		s.LogError(ctx, err, "Failed to clear integrity hold", slog.String("user_id", userID))
		return err
	}
	s.LogInfo(ctx, "Integrity hold released", slog.String("user_id", userID), slog.String("previous_reason", settings.HaltReason))
	s.RecordAudit(ctx, userID, domain.AuditIntegrityHoldReleased, "sweep_settings", userID, map[string]string{"previous_reason": settings.HaltReason})
	return nil
}
