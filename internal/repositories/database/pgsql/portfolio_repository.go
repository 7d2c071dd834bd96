package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/roundup_vault/internal/apperrors"
	"github.com/SscSPs/roundup_vault/internal/core/domain"
	portsrepo "github.com/SscSPs/roundup_vault/internal/core/ports/repositories"
	"github.com/SscSPs/roundup_vault/internal/models"
	"github.com/SscSPs/roundup_vault/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const positionColumns = `user_id, instrument_symbol, instrument_name, quantity, average_cost, current_value, currency_code, updated_at`

type PgxPortfolioRepository struct {
	BaseRepository
}

// newPgxPortfolioRepository creates a new repository for synced brokerage snapshots.
func newPgxPortfolioRepository(pool *pgxpool.Pool) portsrepo.PortfolioRepository {
	return &PgxPortfolioRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.PortfolioRepository = (*PgxPortfolioRepository)(nil)

func (r *PgxPortfolioRepository) FindPortfolio(ctx context.Context, userID string) (*domain.Portfolio, error) {
	var account models.BrokerageAccount
	err := r.Pool.QueryRow(ctx, `
		SELECT user_id, cash_balance, currency_code, synced_at
		FROM brokerage_accounts WHERE user_id = $1;
	`, userID).Scan(&account.UserID, &account.CashBalance, &account.CurrencyCode, &account.SyncedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query brokerage account of user %s: %w", userID, err)
	}

	rows, err := r.Pool.Query(ctx, `SELECT `+positionColumns+` FROM positions WHERE user_id = $1 ORDER BY instrument_symbol;`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions of user %s: %w", userID, err)
	}
	positions, err := pgx.CollectRows(rows, scanPosition)
	if err != nil {
		return nil, fmt.Errorf("failed to scan positions of user %s: %w", userID, err)
	}

	portfolio := mapping.ToDomainPortfolio(account, positions)
	return &portfolio, nil
}

func (r *PgxPortfolioRepository) SavePortfolio(ctx context.Context, portfolio domain.Portfolio) error {
	if portfolio.SyncedAt == nil {
		return fmt.Errorf("%w: portfolio of user %s has no sync time", apperrors.ErrValidation, portfolio.UserID)
	}
	return r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO brokerage_accounts (user_id, cash_balance, currency_code, synced_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id) DO UPDATE SET
				cash_balance = EXCLUDED.cash_balance,
				currency_code = EXCLUDED.currency_code,
				synced_at = EXCLUDED.synced_at;
		`, portfolio.UserID, portfolio.CashBalance, portfolio.CurrencyCode, *portfolio.SyncedAt)
		if err != nil {
			return apperrors.NewAppError(500, "failed to save brokerage account of user "+portfolio.UserID, err)
		}

		symbols := make([]string, 0, len(portfolio.Positions))
		for _, p := range portfolio.Positions {
			m := mapping.ToModelPosition(p)
			symbols = append(symbols, m.InstrumentSymbol)
			_, err := tx.Exec(ctx, `
				INSERT INTO positions (`+positionColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (user_id, instrument_symbol) DO UPDATE SET
					instrument_name = EXCLUDED.instrument_name,
					quantity = EXCLUDED.quantity,
					average_cost = EXCLUDED.average_cost,
					current_value = EXCLUDED.current_value,
					currency_code = EXCLUDED.currency_code,
					updated_at = EXCLUDED.updated_at;
			`,
				m.UserID,
				m.InstrumentSymbol,
				m.InstrumentName,
				m.Quantity,
				m.AverageCost,
				m.CurrentValue,
				m.CurrencyCode,
				m.UpdatedAt,
			)
			if err != nil {
				return apperrors.NewAppError(500, "failed to save position "+m.InstrumentSymbol+" of user "+portfolio.UserID, err)
			}
		}

		_, err = tx.Exec(ctx, `DELETE FROM positions WHERE user_id = $1 AND NOT (instrument_symbol = ANY($2));`, portfolio.UserID, symbols)
		if err != nil {
			return apperrors.NewAppError(500, "failed to prune positions of user "+portfolio.UserID, err)
		}
		return nil
	})
}

func scanPosition(row pgx.CollectableRow) (models.Position, error) {
	var m models.Position
	err := row.Scan(
		&m.UserID,
		&m.InstrumentSymbol,
		&m.InstrumentName,
		&m.Quantity,
		&m.AverageCost,
		&m.CurrentValue,
		&m.CurrencyCode,
		&m.UpdatedAt,
	)
	return m, err
}
