package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/ledger"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/models"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	app   *fiber.App
	store *memory.MemoryLedgerStore
	alice models.Account
	bob   models.Account
}

func newAPIFixture(t *testing.T, production bool) *apiFixture {
	t.Helper()

	ctx := context.Background()
	store := memory.NewMemoryLedgerStore()
	require.NoError(t, store.CreateCurrency(ctx, models.Currency{Code: "EUR", Name: "Euro", Exponent: 2}))
	require.NoError(t, store.CreateCurrency(ctx, models.Currency{Code: "JPY", Name: "Yen", Exponent: 0}))

	_, err := store.CreateAccount(ctx, models.Account{Code: models.SystemAccountCode("EUR"), CurrencyCode: "EUR", IsSystem: true})
	require.NoError(t, err)
	alice, err := store.CreateAccount(ctx, models.Account{Code: "user:alice:eur:1", CurrencyCode: "EUR"})
	require.NoError(t, err)
	bob, err := store.CreateAccount(ctx, models.Account{Code: "user:bob:eur:1", CurrencyCode: "EUR"})
	require.NoError(t, err)

	h := NewHandler(ledger.NewLedger(store), store, nil, production)
	return &apiFixture{app: NewApp(h), store: store, alice: alice, bob: bob}
}

func (f *apiFixture) do(t *testing.T, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer func() { assert.NoError(t, resp.Body.Close()) }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (f *apiFixture) topUp(t *testing.T, accountID string, amount int, key string) (int, map[string]any) {
	t.Helper()
	body := `{"account_id":"` + accountID + `","amount":` + itoa(amount) + `,"currency_code":"eur","idempotency_key":"` + key + `"}`
	return f.do(t, http.MethodPost, "/top-up", body, nil)
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t, false)

	status, body := f.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestTopUp_CreatedThenReplayed(t *testing.T) {
	f := newAPIFixture(t, false)

	status, first := f.topUp(t, f.alice.ID, 1050, "top-up-1")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, false, first["replayed"])
	assert.NotEmpty(t, first["txn_id"])

	status, second := f.topUp(t, f.alice.ID, 1050, "top-up-1")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, second["replayed"])
	assert.Equal(t, first["txn_id"], second["txn_id"])

	status, balance := f.do(t, http.MethodGet, "/accounts/"+f.alice.ID+"/balance", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1050), balance["balance_minor"])
	assert.Equal(t, "10.50", balance["balance"])
	assert.Equal(t, "EUR", balance["currency_code"])
}

func TestTransfer_HeaderKeyWinsOverBody(t *testing.T) {
	f := newAPIFixture(t, false)
	status, _ := f.topUp(t, f.alice.ID, 5000, "")
	require.Equal(t, http.StatusCreated, status)

	body := `{"from_account_id":"` + f.alice.ID + `","to_account_id":"` + f.bob.ID + `","amount":1000,"currency_code":"EUR","idempotency_key":"body-key"}`
	headers := map[string]string{IdempotencyKeyHeader: "header-key"}

	status, first := f.do(t, http.MethodPost, "/transfers", body, headers)
	require.Equal(t, http.StatusCreated, status)

	// same header, different body key: still a replay
	body2 := strings.Replace(body, "body-key", "other-body-key", 1)
	status, second := f.do(t, http.MethodPost, "/transfers", body2, headers)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, first["txn_id"], second["txn_id"])

	// body key alone was never used, so this posts again
	status, third := f.do(t, http.MethodPost, "/transfers", body, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.NotEqual(t, first["txn_id"], third["txn_id"])

	status, entries := f.do(t, http.MethodGet, "/transactions/"+first["txn_id"].(string)+"/entries", "", nil)
	require.Equal(t, http.StatusOK, status)
	list := entries["entries"].([]any)
	require.Len(t, list, 2)
	debit := list[0].(map[string]any)
	assert.Equal(t, f.alice.ID, debit["account_id"])
	assert.Equal(t, "-10.00", debit["amount"])
}

func TestTransfer_ValidationIsUnprocessable(t *testing.T) {
	f := newAPIFixture(t, false)

	tests := map[string]string{
		"malformed json":   `{"from_account_id":`,
		"zero amount":      `{"from_account_id":"a","to_account_id":"b","amount":0,"currency_code":"EUR"}`,
		"negative amount":  `{"from_account_id":"a","to_account_id":"b","amount":-5,"currency_code":"EUR"}`,
		"bad currency":     `{"from_account_id":"a","to_account_id":"b","amount":5,"currency_code":"EURO"}`,
		"digits currency":  `{"from_account_id":"a","to_account_id":"b","amount":5,"currency_code":"E1R"}`,
		"missing account":  `{"from_account_id":"","to_account_id":"b","amount":5,"currency_code":"EUR"}`,
		"key too long":     `{"from_account_id":"a","to_account_id":"b","amount":5,"currency_code":"EUR","idempotency_key":"` + strings.Repeat("k", 129) + `"}`,
		"fractional input": `{"from_account_id":"a","to_account_id":"b","amount":1.5,"currency_code":"EUR"}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			status, resp := f.do(t, http.MethodPost, "/transfers", body, nil)

			assert.Equal(t, http.StatusUnprocessableEntity, status)
			assert.Equal(t, "invalid_request", resp["title"])
			assert.NotEmpty(t, resp["detail"])
		})
	}

	assert.Empty(t, f.store.GetLedgerEntries())
}

func TestTransfer_ErrorMapping(t *testing.T) {
	f := newAPIFixture(t, false)

	t.Run("insufficient funds", func(t *testing.T) {
		body := `{"from_account_id":"` + f.alice.ID + `","to_account_id":"` + f.bob.ID + `","amount":100,"currency_code":"EUR"}`
		status, resp := f.do(t, http.MethodPost, "/transfers", body, nil)

		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "insufficient_funds", resp["title"])
	})

	t.Run("unknown account", func(t *testing.T) {
		body := `{"from_account_id":"nobody","to_account_id":"` + f.bob.ID + `","amount":100,"currency_code":"EUR"}`
		status, resp := f.do(t, http.MethodPost, "/transfers", body, nil)

		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "not_found", resp["title"])
	})

	t.Run("same account", func(t *testing.T) {
		body := `{"from_account_id":"` + f.alice.ID + `","to_account_id":"` + f.alice.ID + `","amount":100,"currency_code":"EUR"}`
		status, _ := f.do(t, http.MethodPost, "/transfers", body, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, status)
	})

	t.Run("system account as destination", func(t *testing.T) {
		system, err := f.store.FindSystemAccount(context.Background(), "EUR")
		require.NoError(t, err)

		body := `{"from_account_id":"` + f.alice.ID + `","to_account_id":"` + system.ID + `","amount":100,"currency_code":"EUR"}`
		status, resp := f.do(t, http.MethodPost, "/transfers", body, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, status)
		assert.Contains(t, resp["detail"], "system accounts cannot receive")
	})

	t.Run("currency mismatch", func(t *testing.T) {
		body := `{"from_account_id":"` + f.alice.ID + `","to_account_id":"` + f.bob.ID + `","amount":100,"currency_code":"JPY"}`
		status, _ := f.do(t, http.MethodPost, "/transfers", body, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, status)
	})
}

func TestReadSide_NotFound(t *testing.T) {
	f := newAPIFixture(t, false)

	status, _ := f.do(t, http.MethodGet, "/accounts/nobody/balance", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(t, http.MethodGet, "/transactions/unknown/entries", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, resp := f.do(t, http.MethodGet, "/no-such-route", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, float64(http.StatusNotFound), resp["status"])
}

func TestProductionHidesDetail(t *testing.T) {
	f := newAPIFixture(t, true)

	body := `{"from_account_id":"` + f.alice.ID + `","to_account_id":"` + f.bob.ID + `","amount":100,"currency_code":"EUR"}`
	status, resp := f.do(t, http.MethodPost, "/transfers", body, nil)

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "insufficient_funds", resp["title"])
	assert.NotContains(t, resp, "detail")
}

func TestMajorUnits(t *testing.T) {
	assert.Equal(t, "10.50", majorUnits(1050, 2))
	assert.Equal(t, "-0.07", majorUnits(-7, 2))
	assert.Equal(t, "1500", majorUnits(1500, 0))
	assert.Equal(t, "0.000", majorUnits(0, 3))
}
