package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxMerchantRepository struct {
	BaseRepository
}

// newPgxMerchantRepository creates a new repository for excluded merchants.
func newPgxMerchantRepository(pool *pgxpool.Pool) portsrepo.MerchantExclusionRepository {
	return &PgxMerchantRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.MerchantExclusionRepository = (*PgxMerchantRepository)(nil)

func (r *PgxMerchantRepository) ListExcludedMerchants(ctx context.Context, userID string) ([]domain.ExcludedMerchant, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT user_id, merchant_name, created_at
		FROM excluded_merchants
		WHERE user_id = $1
		ORDER BY LOWER(merchant_name);
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query excluded merchants: %w", err)
	}
	merchants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ExcludedMerchant, error) {
		var m domain.ExcludedMerchant
		err := row.Scan(&m.UserID, &m.MerchantName, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan excluded merchants: %w", err)
	}
	return merchants, nil
}

func (r *PgxMerchantRepository) AddExcludedMerchant(ctx context.Context, merchant domain.ExcludedMerchant) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO excluded_merchants (user_id, merchant_name, created_at)
		VALUES ($1, $2, $3);
	`, merchant.UserID, merchant.MerchantName, merchant.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: merchant %q is already excluded", apperrors.ErrDuplicate, merchant.MerchantName)
		}
		return apperrors.NewAppError(500, "failed to exclude merchant "+merchant.MerchantName, err)
	}
	return nil
}

func (r *PgxMerchantRepository) RemoveExcludedMerchant(ctx context.Context, userID, merchantName string) error {
	tag, err := r.Pool.Exec(ctx, `
		DELETE FROM excluded_merchants
		WHERE user_id = $1 AND LOWER(merchant_name) = LOWER($2);
	`, userID, merchantName)
	if err != nil {
		return apperrors.NewAppError(500, "failed to remove excluded merchant "+merchantName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
