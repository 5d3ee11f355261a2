package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ledger-posting-engine/internal/interfaces"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/models"
)

type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

func (p *PostgresLedgerStore) CreateCurrency(ctx context.Context, currency models.Currency) error {
	const query = `INSERT INTO currencies (code, name, exponent) VALUES ($1, $2, $3)`

	_, err := p.db.ExecContext(ctx, query, strings.ToUpper(currency.Code), currency.Name, currency.Exponent)
	return classify(err)
}

func (p *PostgresLedgerStore) FindCurrency(ctx context.Context, code string) (models.Currency, error) {
	const query = `SELECT code, name, exponent FROM currencies WHERE code = $1`

	var currency models.Currency
	err := p.db.QueryRowContext(ctx, query, strings.ToUpper(code)).Scan(&currency.Code, &currency.Name, &currency.Exponent)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Currency{}, fmt.Errorf("%w: currency %s", apperrors.ErrNotFound, code)
	}
	if err != nil {
		return models.Currency{}, classify(err)
	}
	return currency, nil
}

func (p *PostgresLedgerStore) CreateAccount(ctx context.Context, account models.Account) (models.Account, error) {
	const query = `INSERT INTO accounts (id, code, currency_code, is_system)
	VALUES ($1, $2, $3, $4)
	RETURNING created_at`

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.CurrencyCode = strings.ToUpper(account.CurrencyCode)

	err := p.db.QueryRowContext(ctx, query, account.ID, account.Code, account.CurrencyCode, account.IsSystem).Scan(&account.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == codeForeignKeyViolation {
			return models.Account{}, fmt.Errorf("%w: currency %s", apperrors.ErrNotFound, account.CurrencyCode)
		}
		return models.Account{}, classify(err)
	}
	return account, nil
}

const accountColumns = `id, code, currency_code, is_system, created_at`

func (p *PostgresLedgerStore) FindByID(ctx context.Context, id string) (models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Account{}, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, id)
	}

	return p.findAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (p *PostgresLedgerStore) FindByCode(ctx context.Context, code string) (models.Account, error) {
	return p.findAccount(ctx, `SELECT `+accountColumns+` FROM accounts WHERE code = $1`, code)
}

func (p *PostgresLedgerStore) FindSystemAccount(ctx context.Context, currency string) (models.Account, error) {
	return p.FindByCode(ctx, models.SystemAccountCode(currency))
}

func (p *PostgresLedgerStore) findAccount(ctx context.Context, query string, arg string) (models.Account, error) {
	var account models.Account
	err := p.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.Code,
		&account.CurrencyCode,
		&account.IsSystem,
		&account.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, arg)
	}
	if err != nil {
		return models.Account{}, classify(err)
	}
	return account, nil
}

// RunInTx runs fn in a SERIALIZABLE transaction. Serialization failures and
// deadlocks, including those raised at commit, wrap apperrors.ErrTransient.
func (p *PostgresLedgerStore) RunInTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) (err error) {
	dbTx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return classify(err)
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if err = fn(&postgresTx{tx: dbTx}); err != nil {
		return err
	}

	if err = dbTx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

func (p *PostgresLedgerStore) GetBalance(ctx context.Context, accountID string) (models.AccountBalance, error) {
	const query = `SELECT account_id, balance_minor, updated_at FROM account_balances WHERE account_id = $1`

	if _, err := uuid.Parse(accountID); err != nil {
		return models.AccountBalance{AccountID: accountID}, nil
	}

	var balance models.AccountBalance
	err := p.db.QueryRowContext(ctx, query, accountID).Scan(&balance.AccountID, &balance.BalanceMinor, &balance.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AccountBalance{AccountID: accountID}, nil
	}
	if err != nil {
		return models.AccountBalance{}, classify(err)
	}
	return balance, nil
}

const entryColumns = `id, txn_id, account_id, amount_minor, currency_code, effective_at, created_at, dedup_key`

// GetEntriesByTxn returns the entries of one transaction, debit first.
func (p *PostgresLedgerStore) GetEntriesByTxn(ctx context.Context, txnID string) ([]models.LedgerEntry, error) {
	if _, err := uuid.Parse(txnID); err != nil {
		return nil, nil
	}

	return p.queryEntries(ctx, `SELECT `+entryColumns+` FROM ledger_entries
	WHERE txn_id = $1 ORDER BY amount_minor`, txnID)
}

func (p *PostgresLedgerStore) GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	if _, err := uuid.Parse(accountID); err != nil {
		return nil, nil
	}

	return p.queryEntries(ctx, `SELECT `+entryColumns+` FROM ledger_entries
	WHERE account_id = $1 ORDER BY effective_at, created_at`, accountID)
}

func (p *PostgresLedgerStore) queryEntries(ctx context.Context, query string, arg string) ([]models.LedgerEntry, error) {
	rows, err := p.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		err := rows.Scan(
			&entry.ID,
			&entry.TxnID,
			&entry.AccountID,
			&entry.AmountMinor,
			&entry.CurrencyCode,
			&entry.EffectiveAt,
			&entry.CreatedAt,
			&entry.DedupKey,
		)
		if err != nil {
			return nil, classify(err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return entries, nil
}

// postgresTx is the LedgerTx of one SERIALIZABLE transaction.
type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) ReserveIdempotencyKey(ctx context.Context, key, txnID string) (bool, error) {
	const query = `INSERT INTO idempotency_keys (key, txn_id, created_at)
	VALUES ($1, $2, now())
	ON CONFLICT (key) DO NOTHING
	RETURNING txn_id`

	var reserved string
	err := t.tx.QueryRowContext(ctx, query, key, txnID).Scan(&reserved)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(err)
	}
	return reserved == txnID, nil
}

func (t *postgresTx) LookupIdempotencyKey(ctx context.Context, key string) (string, error) {
	const query = `SELECT txn_id FROM idempotency_keys WHERE key = $1`

	var txnID string
	err := t.tx.QueryRowContext(ctx, query, key).Scan(&txnID)
	if errors.Is(err, sql.ErrNoRows) {
		// the conflicting reservation committed after this snapshot was taken
		return "", fmt.Errorf("%w: idempotency key %s not visible yet", apperrors.ErrTransient, key)
	}
	if err != nil {
		return "", classify(err)
	}
	return txnID, nil
}

// InsertEntry relies on trg_apply_balance to project the entry onto the
// account balance inside the same statement.
func (t *postgresTx) InsertEntry(ctx context.Context, entry models.LedgerEntry) (models.LedgerEntry, error) {
	const query = `INSERT INTO ledger_entries (id, txn_id, account_id, amount_minor, currency_code, effective_at, dedup_key)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at`

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	err := t.tx.QueryRowContext(ctx, query,
		entry.ID,
		entry.TxnID,
		entry.AccountID,
		entry.AmountMinor,
		entry.CurrencyCode,
		entry.EffectiveAt,
		entry.DedupKey,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return models.LedgerEntry{}, classify(err)
	}
	return entry, nil
}

var (
	_ interfaces.LedgerStore     = (*PostgresLedgerStore)(nil)
	_ interfaces.AccountRegistry = (*PostgresLedgerStore)(nil)
)
