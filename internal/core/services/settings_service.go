package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/roundup_vault/internal/core/ports/services"
	"github.com/SscSPs/roundup_vault/internal/dto"
)

type settingsService struct {
	BaseService
	settingsRepo portsrepo.SweepSettingsRepository
}

// NewSettingsService creates a new sweep settings service.
func NewSettingsService(settingsRepo portsrepo.SweepSettingsRepository, auditRepo portsrepo.AuditRepository, options ...Option) portssvc.SweepSettingsSvc {
	return &settingsService{
		BaseService:  newBaseService(auditRepo, options),
		settingsRepo: settingsRepo,
	}
}

var _ portssvc.SweepSettingsSvc = (*settingsService)(nil)

func (s *settingsService) GetSweepSettings(ctx context.Context, userID string) (*domain.SweepSettings, error) {
	settings, err := s.settingsRepo.FindSweepSettings(ctx, userID)
	if errors.Is(err, apperrors.ErrNotFound) {
		defaults := domain.DefaultSweepSettings(userID)
		return &defaults, nil
	}
	return settings, err
}

func (s *settingsService) UpdateSweepSettings(ctx context.Context, userID string, req dto.UpdateSweepSettingsRequest) (*domain.SweepSettings, error) {
	current, err := s.GetSweepSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	updated := *current
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	if req.SweepDay != nil {
		updated.SweepDay = *req.SweepDay
	}
	if req.MonthlyCap != nil {
		updated.MonthlyCap = *req.MonthlyCap
	}
	if req.MinimumThreshold != nil {
		updated.MinimumThreshold = *req.MinimumThreshold
	}
	if req.RiskProfile != nil {
		updated.RiskProfile = domain.RiskProfile(*req.RiskProfile)
	}

	if err := updated.Validate(s.opts.MaxMonthlyCap); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	now := s.now()
	if updated.CreatedAt.IsZero() {
		updated.CreatedAt = now
	}
	updated.UpdatedAt = now

	if err := s.settingsRepo.UpsertSweepSettings(ctx, updated); err != nil {
		s.LogError(ctx, err, "Failed to save sweep settings", slog.String("user_id", userID))
		return nil, err
	}

	s.RecordAudit(ctx, userID, domain.AuditSettingsUpdated, "sweep_settings", userID, dto.ToSweepSettingsResponse(&updated))
	return &updated, nil
}
