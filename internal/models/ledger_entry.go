package models

import (
	"time"
)

// Leg labels used to build the per-leg dedup key of an entry.
const (
	LegDebit  = "debit"
	LegCredit = "credit"
)

// LedgerEntry represents a single immutable ledger record for an account
type LedgerEntry struct {
	ID           string    // unique identifier
	TxnID        string    // groups exactly two entries
	AccountID    string    // which account this entry belongs to
	AmountMinor  int64     // signed, in minor units (never zero)
	CurrencyCode string    // ISO 4217 code shared by both legs
	EffectiveAt  time.Time // business timestamp, same for both legs
	CreatedAt    time.Time // insertion timestamp
	DedupKey     string    // unique per leg of a transaction
}

// LegDedupKey returns the dedup key for one leg of txnID.
func LegDedupKey(txnID, leg string) string {
	return txnID + ":" + leg
}

// AccountBalance is the materialized running balance of an account.
// It always equals the sum of the account's ledger entries.
type AccountBalance struct {
	AccountID    string
	BalanceMinor int64
	UpdatedAt    time.Time
}

// IdempotencyRecord maps a client (or generated) key to the transaction it produced.
type IdempotencyRecord struct {
	Key       string
	TxnID     string
	CreatedAt time.Time
}
