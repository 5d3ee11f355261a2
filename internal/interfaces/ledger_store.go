package interfaces

import (
	"context"

	"github.com/sheikh-saqib/ledger-posting-engine/internal/models"
)

// AccountDirectory resolves accounts for the ledger. Implementations return an
// error wrapping apperrors.ErrNotFound for unknown accounts.
type AccountDirectory interface {
	FindByID(ctx context.Context, id string) (models.Account, error)
	FindSystemAccount(ctx context.Context, currency string) (models.Account, error)
}

// AccountRegistry creates reference data. Used by seeding and tests, never by postings.
type AccountRegistry interface {
	CreateCurrency(ctx context.Context, currency models.Currency) error
	FindCurrency(ctx context.Context, code string) (models.Currency, error)
	CreateAccount(ctx context.Context, account models.Account) (models.Account, error)
	FindByCode(ctx context.Context, code string) (models.Account, error)
}

// LedgerTx is one atomic, isolated unit of work. Nothing written through it is
// visible to other units until RunInTx commits.
type LedgerTx interface {
	// ReserveIdempotencyKey inserts (key, txnID) unless key already exists.
	// It reports whether this call made the reservation.
	ReserveIdempotencyKey(ctx context.Context, key, txnID string) (bool, error)
	// LookupIdempotencyKey returns the txn id already mapped to key.
	LookupIdempotencyKey(ctx context.Context, key string) (string, error)
	// InsertEntry appends a ledger entry and projects it onto the account
	// balance in the same atomic step. A non-system balance going negative
	// fails with apperrors.ErrInsufficientFunds.
	InsertEntry(ctx context.Context, entry models.LedgerEntry) (models.LedgerEntry, error)
}

// LedgerStore persists ledger entries, balances and idempotency records.
type LedgerStore interface {
	AccountDirectory

	// RunInTx runs fn in one unit of work, committing if fn returns nil and
	// rolling everything back otherwise. Retryable conflicts are reported
	// wrapping apperrors.ErrTransient.
	RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error

	GetBalance(ctx context.Context, accountID string) (models.AccountBalance, error)
	GetEntriesByTxn(ctx context.Context, txnID string) ([]models.LedgerEntry, error)
	GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error)
}
