package repositories

import (
	"context"

	"github.com/SscSPs/roundup_vault/internal/core/domain"
)

// LedgerReader defines read operations for ledger entries
type LedgerReader interface {
	// ListEntriesByUser returns every entry of a user. Callers fold them; order is not significant.
	ListEntriesByUser(ctx context.Context, userID string) ([]domain.LedgerEntry, error)

	// ListEntriesByTransaction returns the entries that reference a transaction.
	ListEntriesByTransaction(ctx context.Context, transactionID string) ([]domain.LedgerEntry, error)

	// ListEntriesPage returns a page of a user's entries, newest first, and a token for the next page.
	ListEntriesPage(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error)

	// ListLedgerUserIDs returns every user that owns at least one entry.
	ListLedgerUserIDs(ctx context.Context) ([]string, error)
}

// LedgerWriter defines append operations. Entries are never updated or deleted.
type LedgerWriter interface {
	// AppendEntry appends a single entry.
	AppendEntry(ctx context.Context, entry domain.LedgerEntry) error

	// AppendTransactionEntry appends an entry that references a transaction only if the
	// transaction's live round-up count (credits minus reversals) equals expectedLive.
	// Otherwise it returns apperrors.ErrConcurrencyConflict and writes nothing.
	AppendTransactionEntry(ctx context.Context, entry domain.LedgerEntry, expectedLive int) error
}

// LedgerRepositoryFacade combines all ledger-related repository interfaces
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
}
