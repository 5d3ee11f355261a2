package models

import "time"

// Kind tells which ledger operation produced a transaction.
type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindTransfer Kind = "transfer"
)

// Posting represents an intent to move money between two accounts.
// It is turned into two balanced ledger entries sharing one transaction id.
type Posting struct {
	Kind         Kind
	FromAccount  Account
	ToAccount    Account
	AmountMinor  int64
	CurrencyCode string
	EffectiveAt  time.Time
}

// Legs builds the debit and credit entries of the posting for txnID.
func (p Posting) Legs(txnID string) (debit LedgerEntry, credit LedgerEntry) {
	debit = LedgerEntry{
		TxnID:        txnID,
		AccountID:    p.FromAccount.ID,
		AmountMinor:  -p.AmountMinor,
		CurrencyCode: p.CurrencyCode,
		EffectiveAt:  p.EffectiveAt,
		DedupKey:     LegDedupKey(txnID, LegDebit),
	}

	credit = LedgerEntry{
		TxnID:        txnID,
		AccountID:    p.ToAccount.ID,
		AmountMinor:  p.AmountMinor,
		CurrencyCode: p.CurrencyCode,
		EffectiveAt:  p.EffectiveAt,
		DedupKey:     LegDedupKey(txnID, LegCredit),
	}
	return debit, credit
}
