// Package seed creates reference currencies, system accounts and funded demo
// accounts. Running it twice leaves the ledger unchanged.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sheikh-saqib/ledger-posting-engine/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ledger-posting-engine/internal/interfaces"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/ledger"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/models"
	"go.uber.org/zap"
)

const defaultExponent = 2

var currencyNames = map[string]string{
	"EUR": "Euro",
	"USD": "US Dollar",
	"GBP": "Pound Sterling",
}

// Depositor funds demo accounts.
type Depositor interface {
	Deposit(ctx context.Context, toAccountID string, amountMinor int64, currency, idemKey string) (ledger.Result, error)
}

type Options struct {
	Currencies          []string
	AccountsPerCurrency int
	StartingBalance     int64 // minor units, 0 leaves demo accounts empty
}

type Report struct {
	Accounts []models.Account
	Funded   int
	Replayed int
}

// Run ensures every currency in opts has a system cash-in account and
// AccountsPerCurrency demo accounts. Funding uses a deterministic
// idempotency key per account, so reruns replay instead of posting again.
func Run(ctx context.Context, registry interfaces.AccountRegistry, depositor Depositor, opts Options, logger *zap.Logger) (Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.StartingBalance < 0 {
		return Report{}, fmt.Errorf("%w: negative starting balance", apperrors.ErrInvalidRequest)
	}

	var report Report
	for _, raw := range opts.Currencies {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if code == "" {
			continue
		}

		if err := ensureCurrency(ctx, registry, code); err != nil {
			return report, err
		}

		system, err := ensureAccount(ctx, registry, models.Account{
			Code:         models.SystemAccountCode(code),
			CurrencyCode: code,
			IsSystem:     true,
		})
		if err != nil {
			return report, err
		}
		report.Accounts = append(report.Accounts, system)

		for i := 1; i <= opts.AccountsPerCurrency; i++ {
			account, err := ensureAccount(ctx, registry, models.Account{
				Code:         demoAccountCode(i, code),
				CurrencyCode: code,
			})
			if err != nil {
				return report, err
			}
			report.Accounts = append(report.Accounts, account)

			if opts.StartingBalance == 0 {
				continue
			}

			res, err := depositor.Deposit(ctx, account.ID, opts.StartingBalance, code, "seed:"+account.Code)
			if err != nil {
				return report, fmt.Errorf("failed to fund %s: %w", account.Code, err)
			}
			if res.Replayed {
				report.Replayed++
			} else {
				report.Funded++
			}
		}

		logger.Info("seeded currency",
			zap.String("currency", code),
			zap.Int("demo_accounts", opts.AccountsPerCurrency))
	}

	return report, nil
}

func demoAccountCode(i int, currency string) string {
	return fmt.Sprintf("user:demo-%d:%s:1", i, strings.ToLower(currency))
}

func ensureCurrency(ctx context.Context, registry interfaces.AccountRegistry, code string) error {
	name, ok := currencyNames[code]
	if !ok {
		name = code
	}

	err := registry.CreateCurrency(ctx, models.Currency{Code: code, Name: name, Exponent: defaultExponent})
	if err != nil && !errors.Is(err, apperrors.ErrConflict) {
		return fmt.Errorf("failed to create currency %s: %w", code, err)
	}
	return nil
}

func ensureAccount(ctx context.Context, registry interfaces.AccountRegistry, account models.Account) (models.Account, error) {
	created, err := registry.CreateAccount(ctx, account)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, apperrors.ErrConflict) {
		return models.Account{}, fmt.Errorf("failed to create account %s: %w", account.Code, err)
	}

	existing, err := registry.FindByCode(ctx, account.Code)
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to load account %s: %w", account.Code, err)
	}
	if existing.IsSystem != account.IsSystem || existing.CurrencyCode != account.CurrencyCode {
		return models.Account{}, fmt.Errorf("%w: account %s exists with different attributes", apperrors.ErrConflict, account.Code)
	}
	return existing, nil
}
