package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ledger-posting-engine/internal/interfaces"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/models"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// Units of work are serialized on a single mutex, so every RunInTx is isolated
// from every other one and writes become visible only on commit.
type MemoryLedgerStore struct {
	mu sync.Mutex // held for the whole unit of work and for every read

	currencies  map[string]models.Currency
	accounts    map[string]models.Account
	codes       map[string]string // account code -> account id
	entries     []models.LedgerEntry
	dedup       map[string]struct{}
	balances    map[string]models.AccountBalance
	idempotency map[string]models.IdempotencyRecord

	now func() time.Time
}

// NewMemoryLedgerStore creates and returns a new MemoryLedgerStore instance
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		currencies:  make(map[string]models.Currency),
		accounts:    make(map[string]models.Account),
		codes:       make(map[string]string),
		entries:     make([]models.LedgerEntry, 0),
		dedup:       make(map[string]struct{}),
		balances:    make(map[string]models.AccountBalance),
		idempotency: make(map[string]models.IdempotencyRecord),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryLedgerStore) CreateCurrency(ctx context.Context, currency models.Currency) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := strings.ToUpper(currency.Code)
	if _, exists := m.currencies[code]; exists {
		return fmt.Errorf("%w: currency %s", apperrors.ErrConflict, code)
	}

	currency.Code = code
	m.currencies[code] = currency
	return nil
}

func (m *MemoryLedgerStore) FindCurrency(ctx context.Context, code string) (models.Currency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	currency, exists := m.currencies[strings.ToUpper(code)]
	if !exists {
		return models.Currency{}, fmt.Errorf("%w: currency %s", apperrors.ErrNotFound, code)
	}
	return currency, nil
}

func (m *MemoryLedgerStore) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account.CurrencyCode = strings.ToUpper(account.CurrencyCode)
	if _, exists := m.currencies[account.CurrencyCode]; !exists {
		return models.Account{}, fmt.Errorf("%w: currency %s", apperrors.ErrNotFound, account.CurrencyCode)
	}
	if _, exists := m.codes[account.Code]; exists {
		return models.Account{}, fmt.Errorf("%w: account code %s", apperrors.ErrConflict, account.Code)
	}
	if account.IsSystem {
		for _, existing := range m.accounts {
			if existing.IsSystem && existing.CurrencyCode == account.CurrencyCode {
				return models.Account{}, fmt.Errorf("%w: system account for %s already exists", apperrors.ErrConflict, account.CurrencyCode)
			}
		}
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if _, exists := m.accounts[account.ID]; exists {
		return models.Account{}, fmt.Errorf("%w: account %s", apperrors.ErrConflict, account.ID)
	}
	account.CreatedAt = m.now()

	m.accounts[account.ID] = account
	m.codes[account.Code] = account.ID
	return account, nil
}

func (m *MemoryLedgerStore) FindByID(ctx context.Context, id string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, exists := m.accounts[id]
	if !exists {
		return models.Account{}, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
	}
	return account, nil
}

func (m *MemoryLedgerStore) FindByCode(ctx context.Context, code string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.findByCodeLocked(code)
}

func (m *MemoryLedgerStore) FindSystemAccount(ctx context.Context, currency string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.findByCodeLocked(models.SystemAccountCode(currency))
}

func (m *MemoryLedgerStore) findByCodeLocked(code string) (models.Account, error) {
	id, exists := m.codes[code]
	if !exists {
		return models.Account{}, fmt.Errorf("%w: account code %s", apperrors.ErrNotFound, code)
	}
	return m.accounts[id], nil
}

// RunInTx stages every write of fn and applies them only when fn succeeds.
func (m *MemoryLedgerStore) RunInTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{
		store:    m,
		dedup:    make(map[string]struct{}),
		balances: make(map[string]models.AccountBalance),
		keys:     make(map[string]models.IdempotencyRecord),
	}

	if err := fn(tx); err != nil {
		return err
	}

	// a unit of work that outlived its deadline is rolled back
	if err := ctx.Err(); err != nil {
		return err
	}

	m.entries = append(m.entries, tx.entries...)
	for key := range tx.dedup {
		m.dedup[key] = struct{}{}
	}
	for id, balance := range tx.balances {
		m.balances[id] = balance
	}
	for key, record := range tx.keys {
		m.idempotency[key] = record
	}
	return nil
}

func (m *MemoryLedgerStore) GetBalance(ctx context.Context, accountID string) (models.AccountBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	balance, exists := m.balances[accountID]
	if !exists {
		return models.AccountBalance{AccountID: accountID}, nil
	}
	return balance, nil
}

// GetEntriesByTxn returns a copy of the entries of one transaction, debit first.
func (m *MemoryLedgerStore) GetEntriesByTxn(ctx context.Context, txnID string) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.LedgerEntry
	for _, e := range m.entries {
		if e.TxnID == txnID {
			result = append(result, e)
		}
	}
	return result, nil
}

// GetEntriesByAccount returns the account's entries ordered by effective time.
func (m *MemoryLedgerStore) GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			result = append(result, e)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EffectiveAt.Before(result[j].EffectiveAt)
	})
	return result, nil
}

// GetLedgerEntries returns a copy of all ledger entries stored in memory.
func (m *MemoryLedgerStore) GetLedgerEntries() []models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]models.LedgerEntry, len(m.entries))
	copy(copied, m.entries)
	return copied
}

// memoryTx is only used while the store mutex is held by RunInTx.
type memoryTx struct {
	store    *MemoryLedgerStore
	entries  []models.LedgerEntry
	dedup    map[string]struct{}
	balances map[string]models.AccountBalance
	keys     map[string]models.IdempotencyRecord
}

func (t *memoryTx) ReserveIdempotencyKey(ctx context.Context, key, txnID string) (bool, error) {
	if _, exists := t.store.idempotency[key]; exists {
		return false, nil
	}
	if _, exists := t.keys[key]; exists {
		return false, nil
	}

	t.keys[key] = models.IdempotencyRecord{Key: key, TxnID: txnID, CreatedAt: t.store.now()}
	return true, nil
}

func (t *memoryTx) LookupIdempotencyKey(ctx context.Context, key string) (string, error) {
	if record, exists := t.keys[key]; exists {
		return record.TxnID, nil
	}
	if record, exists := t.store.idempotency[key]; exists {
		return record.TxnID, nil
	}
	return "", fmt.Errorf("%w: idempotency key %s", apperrors.ErrNotFound, key)
}

// InsertEntry appends the entry and applies it to the account balance. The
// check and the write happen under the unit-of-work lock, so no other posting
// can observe or change the balance in between.
func (t *memoryTx) InsertEntry(ctx context.Context, entry models.LedgerEntry) (models.LedgerEntry, error) {
	if entry.AmountMinor == 0 {
		return models.LedgerEntry{}, fmt.Errorf("%w: ledger entry amount must be non-zero", apperrors.ErrInternal)
	}

	account, exists := t.store.accounts[entry.AccountID]
	if !exists {
		return models.LedgerEntry{}, fmt.Errorf("%w: ledger entry references unknown account %s", apperrors.ErrInternal, entry.AccountID)
	}

	_, committed := t.store.dedup[entry.DedupKey]
	_, staged := t.dedup[entry.DedupKey]
	if committed || staged {
		return models.LedgerEntry{}, fmt.Errorf("%w: ledger entry dedup key %s", apperrors.ErrConflict, entry.DedupKey)
	}

	now := t.store.now()
	balance, exists := t.balances[entry.AccountID]
	if !exists {
		balance, exists = t.store.balances[entry.AccountID]
	}
	if !exists {
		balance = models.AccountBalance{AccountID: entry.AccountID}
	}

	balance.BalanceMinor += entry.AmountMinor
	balance.UpdatedAt = now
	if !account.IsSystem && balance.BalanceMinor < 0 {
		return models.LedgerEntry{}, fmt.Errorf("%w: account %s would become %d (minor units)",
			apperrors.ErrInsufficientFunds, entry.AccountID, balance.BalanceMinor)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = now

	t.balances[entry.AccountID] = balance
	t.dedup[entry.DedupKey] = struct{}{}
	t.entries = append(t.entries, entry)
	return entry, nil
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var (
	_ interfaces.LedgerStore     = (*MemoryLedgerStore)(nil)
	_ interfaces.AccountRegistry = (*MemoryLedgerStore)(nil)
)
