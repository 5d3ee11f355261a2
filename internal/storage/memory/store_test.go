package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sheikh-saqib/ledger-posting-engine/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ledger-posting-engine/internal/interfaces"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeededStore(t *testing.T) (*MemoryLedgerStore, models.Account, models.Account) {
	t.Helper()

	ctx := context.Background()
	store := NewMemoryLedgerStore()
	require.NoError(t, store.CreateCurrency(ctx, models.Currency{Code: "eur", Name: "Euro", Exponent: 2}))

	system, err := store.CreateAccount(ctx, models.Account{Code: models.SystemAccountCode("EUR"), CurrencyCode: "EUR", IsSystem: true})
	require.NoError(t, err)
	user, err := store.CreateAccount(ctx, models.Account{Code: "user:1:eur:1", CurrencyCode: "EUR"})
	require.NoError(t, err)

	return store, system, user
}

func entry(txnID, leg, accountID string, amount int64) models.LedgerEntry {
	return models.LedgerEntry{
		TxnID:        txnID,
		AccountID:    accountID,
		AmountMinor:  amount,
		CurrencyCode: "EUR",
		EffectiveAt:  time.Now().UTC(),
		DedupKey:     models.LegDedupKey(txnID, leg),
	}
}

func TestMemoryLedgerStore_OneSystemAccountPerCurrency(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newSeededStore(t)

	_, err := store.CreateAccount(ctx, models.Account{Code: "system:other:eur", CurrencyCode: "eur", IsSystem: true})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	require.NoError(t, store.CreateCurrency(ctx, models.Currency{Code: "USD", Name: "US Dollar", Exponent: 2}))
	_, err = store.CreateAccount(ctx, models.Account{Code: models.SystemAccountCode("USD"), CurrencyCode: "USD", IsSystem: true})
	assert.NoError(t, err)
}

func TestMemoryLedgerStore_Directory(t *testing.T) {
	ctx := context.Background()
	store, system, user := newSeededStore(t)

	got, err := store.FindSystemAccount(ctx, "eur")
	require.NoError(t, err)
	assert.Equal(t, system.ID, got.ID)
	assert.True(t, got.IsSystem)

	got, err = store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "EUR", got.CurrencyCode)

	_, err = store.FindSystemAccount(ctx, "USD")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = store.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = store.CreateAccount(ctx, models.Account{Code: "user:1:eur:1", CurrencyCode: "EUR"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = store.CreateAccount(ctx, models.Account{Code: "user:2:gbp:1", CurrencyCode: "GBP"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryLedgerStore_RunInTx_CommitsBothLegs(t *testing.T) {
	ctx := context.Background()
	store, system, user := newSeededStore(t)

	err := store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		reserved, err := tx.ReserveIdempotencyKey(ctx, "k1", "txn-1")
		require.NoError(t, err)
		require.True(t, reserved)

		if _, err := tx.InsertEntry(ctx, entry("txn-1", models.LegDebit, system.ID, -1000)); err != nil {
			return err
		}
		_, err = tx.InsertEntry(ctx, entry("txn-1", models.LegCredit, user.ID, 1000))
		return err
	})
	require.NoError(t, err)

	systemBalance, err := store.GetBalance(ctx, system.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-1000), systemBalance.BalanceMinor)

	userBalance, err := store.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), userBalance.BalanceMinor)

	entries, err := store.GetEntriesByTxn(ctx, "txn-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.NotEmpty(t, entries[0].ID)
	assert.Zero(t, entries[0].AmountMinor+entries[1].AmountMinor)
}

func TestMemoryLedgerStore_RunInTx_InsufficientFundsRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	store, _, user := newSeededStore(t)
	other, err := store.CreateAccount(ctx, models.Account{Code: "user:2:eur:1", CurrencyCode: "EUR"})
	require.NoError(t, err)

	err = store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		if _, err := tx.ReserveIdempotencyKey(ctx, "k1", "txn-1"); err != nil {
			return err
		}
		if _, err := tx.InsertEntry(ctx, entry("txn-1", models.LegCredit, other.ID, 1000)); err != nil {
			return err
		}
		_, err := tx.InsertEntry(ctx, entry("txn-1", models.LegDebit, user.ID, -1000))
		return err
	})
	require.ErrorIs(t, err, apperrors.ErrInsufficientFunds)

	assert.Empty(t, store.GetLedgerEntries())

	balance, err := store.GetBalance(ctx, other.ID)
	require.NoError(t, err)
	assert.Zero(t, balance.BalanceMinor)

	// the key was rolled back with the postings and can be reserved again
	err = store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		reserved, err := tx.ReserveIdempotencyKey(ctx, "k1", "txn-2")
		require.NoError(t, err)
		assert.True(t, reserved)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryLedgerStore_ReserveIdempotencyKey_Existing(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newSeededStore(t)

	require.NoError(t, store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		_, err := tx.ReserveIdempotencyKey(ctx, "k1", "txn-1")
		return err
	}))

	require.NoError(t, store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		reserved, err := tx.ReserveIdempotencyKey(ctx, "k1", "txn-2")
		require.NoError(t, err)
		assert.False(t, reserved)

		txnID, err := tx.LookupIdempotencyKey(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "txn-1", txnID)
		return nil
	}))
}

func TestMemoryLedgerStore_InsertEntry_RejectsDuplicateLegAndZeroAmount(t *testing.T) {
	ctx := context.Background()
	store, system, user := newSeededStore(t)

	err := store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		if _, err := tx.InsertEntry(ctx, entry("txn-1", models.LegDebit, system.ID, -10)); err != nil {
			return err
		}
		_, err := tx.InsertEntry(ctx, entry("txn-1", models.LegDebit, system.ID, -10))
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	err = store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		_, err := tx.InsertEntry(ctx, entry("txn-2", models.LegCredit, user.ID, 0))
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrInternal)
	assert.Empty(t, store.GetLedgerEntries())
}

func TestMemoryLedgerStore_RunInTx_CancelledContext(t *testing.T) {
	store, system, _ := newSeededStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		_, err := tx.InsertEntry(ctx, entry("txn-1", models.LegDebit, system.ID, -10))
		cancel()
		return err
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, store.GetLedgerEntries())
}
