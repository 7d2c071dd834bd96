package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	"github.com/SscSPs/roundup_vault/internal/models"
	"github.com/SscSPs/roundup_vault/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAuditRepository struct {
	BaseRepository
}

func newPgxAuditRepository(pool *pgxpool.Pool) portsrepo.AuditRepository {
	return &PgxAuditRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.AuditRepository = (*PgxAuditRepository)(nil)

func (r *PgxAuditRepository) SaveAuditLog(ctx context.Context, entry domain.AuditLog) error {
	m := mapping.ToModelAuditLog(entry)
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO audit_logs (audit_log_id, user_id, action, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`, m.AuditLogID, m.UserID, m.Action, m.EntityType, m.EntityID, m.Details, m.CreatedAt)
	if err != nil {
		return apperrors.NewAppError(500, "failed to save audit log "+entry.AuditLogID, err)
	}
	return nil
}

func (r *PgxAuditRepository) ListAuditLogsByUser(ctx context.Context, userID string, limit int) ([]domain.AuditLog, error) {
	query := `
		SELECT audit_log_id, user_id, action, entity_type, entity_id, details, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := r.Pool.Query(ctx, query+`;`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs of user %s: %w", userID, err)
	}
	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AuditLog, error) {
		var m models.AuditLog
		err := row.Scan(&m.AuditLogID, &m.UserID, &m.Action, &m.EntityType, &m.EntityID, &m.Details, &m.CreatedAt)
		return mapping.ToDomainAuditLog(m), err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit logs of user %s: %w", userID, err)
	}
	return logs, nil
}
