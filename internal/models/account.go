package models

import (
	"strings"
	"time"
)

// SystemCashInPrefix prefixes the code of the per-currency system cash-in account.
const SystemCashInPrefix = "system:cashin:"

// Account is a ledger account. Its currency never changes after creation.
type Account struct {
	ID           string
	Code         string // unique
	CurrencyCode string
	IsSystem     bool // external funding source, may go negative
	CreatedAt    time.Time
}

// Currency is reference data describing a currency's minor unit.
type Currency struct {
	Code     string
	Name     string
	Exponent int32 // number of minor-unit digits, 2 for EUR
}

// SystemAccountCode returns the code of the cash-in account for currency.
func SystemAccountCode(currency string) string {
	return SystemCashInPrefix + strings.ToLower(currency)
}
