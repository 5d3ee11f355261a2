// Package api exposes the posting engine over HTTP.
package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/ledger"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
)

// Poster is the part of the ledger the HTTP layer drives.
type Poster interface {
	Deposit(ctx context.Context, toAccountID string, amountMinor int64, currency, idemKey string) (ledger.Result, error)
	Transfer(ctx context.Context, fromAccountID, toAccountID string, amountMinor int64, currency, idemKey string) (ledger.Result, error)
	Balance(ctx context.Context, accountID string) (models.Account, models.AccountBalance, error)
	EntriesByTxn(ctx context.Context, txnID string) ([]models.LedgerEntry, error)
}

// CurrencyFinder resolves the exponent used to render minor units.
type CurrencyFinder interface {
	FindCurrency(ctx context.Context, code string) (models.Currency, error)
}

type Handler struct {
	ledger     Poster
	currencies CurrencyFinder
	logger     *zap.Logger
	production bool
}

func NewHandler(poster Poster, currencies CurrencyFinder, logger *zap.Logger, production bool) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		ledger:     poster,
		currencies: currencies,
		logger:     logger,
		production: production,
	}
}

// NewApp builds the fiber application with every route registered.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "ledger-posting-engine",
		DisableStartupMessage: true,
		ErrorHandler:          fiberErrorHandler,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})
	app.Use(recover.New())

	app.Get("/health", h.Health)
	app.Post("/top-up", h.TopUp)
	app.Post("/transfers", h.CreateTransfer)
	app.Get("/accounts/:id/balance", h.GetBalance)
	app.Get("/transactions/:txn_id/entries", h.GetTransactionEntries)

	return app
}

type topUpRequest struct {
	AccountID      string `json:"account_id"`
	Amount         int64  `json:"amount"`
	CurrencyCode   string `json:"currency_code"`
	IdempotencyKey string `json:"idempotency_key"`
}

type transferRequest struct {
	FromAccountID  string `json:"from_account_id"`
	ToAccountID    string `json:"to_account_id"`
	Amount         int64  `json:"amount"`
	CurrencyCode   string `json:"currency_code"`
	IdempotencyKey string `json:"idempotency_key"`
}

type postingResponse struct {
	Status   string `json:"status"`
	TxnID    string `json:"txn_id"`
	Replayed bool   `json:"replayed"`
}

type balanceResponse struct {
	AccountID    string `json:"account_id"`
	CurrencyCode string `json:"currency_code"`
	BalanceMinor int64  `json:"balance_minor"`
	Balance      string `json:"balance"`
}

type entryResponse struct {
	ID           string    `json:"id"`
	TxnID        string    `json:"txn_id"`
	AccountID    string    `json:"account_id"`
	AmountMinor  int64     `json:"amount_minor"`
	Amount       string    `json:"amount"`
	CurrencyCode string    `json:"currency_code"`
	EffectiveAt  time.Time `json:"effective_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) TopUp(c *fiber.Ctx) error {
	var req topUpRequest
	if err := c.BodyParser(&req); err != nil {
		return h.unprocessable(c, "malformed request body")
	}

	key := idempotencyKey(c, req.IdempotencyKey)
	if msg := validate(key, req.Amount, req.CurrencyCode, req.AccountID); msg != "" {
		return h.unprocessable(c, msg)
	}

	res, err := h.ledger.Deposit(c.UserContext(), req.AccountID, req.Amount, strings.ToUpper(req.CurrencyCode), key)
	if err != nil {
		return h.writeError(c, err)
	}
	return postingCreated(c, res)
}

func (h *Handler) CreateTransfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return h.unprocessable(c, "malformed request body")
	}

	key := idempotencyKey(c, req.IdempotencyKey)
	if msg := validate(key, req.Amount, req.CurrencyCode, req.FromAccountID, req.ToAccountID); msg != "" {
		return h.unprocessable(c, msg)
	}

	res, err := h.ledger.Transfer(c.UserContext(), req.FromAccountID, req.ToAccountID, req.Amount, strings.ToUpper(req.CurrencyCode), key)
	if err != nil {
		return h.writeError(c, err)
	}
	return postingCreated(c, res)
}

func (h *Handler) GetBalance(c *fiber.Ctx) error {
	ctx := c.UserContext()

	account, balance, err := h.ledger.Balance(ctx, c.Params("id"))
	if err != nil {
		return h.writeError(c, err)
	}

	currency, err := h.currencies.FindCurrency(ctx, account.CurrencyCode)
	if err != nil {
		return h.writeError(c, fmt.Errorf("currency of account %s: %w", account.ID, err))
	}

	return c.JSON(balanceResponse{
		AccountID:    account.ID,
		CurrencyCode: account.CurrencyCode,
		BalanceMinor: balance.BalanceMinor,
		Balance:      majorUnits(balance.BalanceMinor, currency.Exponent),
	})
}

func (h *Handler) GetTransactionEntries(c *fiber.Ctx) error {
	ctx := c.UserContext()

	entries, err := h.ledger.EntriesByTxn(ctx, c.Params("txn_id"))
	if err != nil {
		return h.writeError(c, err)
	}

	exponents := make(map[string]int32)
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		exp, ok := exponents[e.CurrencyCode]
		if !ok {
			currency, err := h.currencies.FindCurrency(ctx, e.CurrencyCode)
			if err != nil {
				return h.writeError(c, fmt.Errorf("currency of entry %s: %w", e.ID, err))
			}
			exp = currency.Exponent
			exponents[e.CurrencyCode] = exp
		}

		out = append(out, entryResponse{
			ID:           e.ID,
			TxnID:        e.TxnID,
			AccountID:    e.AccountID,
			AmountMinor:  e.AmountMinor,
			Amount:       majorUnits(e.AmountMinor, exp),
			CurrencyCode: e.CurrencyCode,
			EffectiveAt:  e.EffectiveAt,
			CreatedAt:    e.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{"txn_id": c.Params("txn_id"), "entries": out})
}

func postingCreated(c *fiber.Ctx, res ledger.Result) error {
	status := fiber.StatusCreated
	if res.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(postingResponse{Status: "ok", TxnID: res.TxnID, Replayed: res.Replayed})
}

// idempotencyKey prefers the header over the body field.
func idempotencyKey(c *fiber.Ctx, fromBody string) string {
	if key := strings.TrimSpace(c.Get(IdempotencyKeyHeader)); key != "" {
		return key
	}
	return strings.TrimSpace(fromBody)
}

func validate(key string, amount int64, currency string, accountIDs ...string) string {
	for _, id := range accountIDs {
		if strings.TrimSpace(id) == "" {
			return "account ids are required"
		}
	}
	if len(key) > maxIdempotencyKeyLen {
		return fmt.Sprintf("idempotency key longer than %d characters", maxIdempotencyKeyLen)
	}
	if amount < 1 {
		return "amount must be a positive number of minor units"
	}
	if !isCurrencyCode(currency) {
		return "currency_code must be three letters"
	}
	return ""
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

func majorUnits(minor int64, exponent int32) string {
	return decimal.New(minor, -exponent).StringFixed(exponent)
}
