package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ledger-posting-engine/internal/interfaces"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/logging"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/models"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/models/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts    = 3
	DefaultPostingTimeout = 5 * time.Second

	tracerName = "github.com/sheikh-saqib/ledger-posting-engine/internal/ledger"
)

// Ledger is the transaction orchestrator. It validates business preconditions
// and drives the idempotency gate to post both legs of a transaction atomically.
type Ledger struct {
	store     interfaces.LedgerStore
	cache     interfaces.ReplayCache
	publisher interfaces.EventPublisher
	metrics   interfaces.PostingMetrics
	logger    *zap.Logger
	tracer    trace.Tracer

	topic       string
	maxAttempts int
	retryBase   time.Duration
	timeout     time.Duration

	now   func() time.Time
	newID func() string
}

// Option configures a Ledger.
type Option func(*Ledger)

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithReplayCache(cache interfaces.ReplayCache) Option {
	return func(l *Ledger) { l.cache = cache }
}

// WithPublisher publishes a TransactionCompleted event to topic after every fresh posting.
func WithPublisher(publisher interfaces.EventPublisher, topic string) Option {
	return func(l *Ledger) {
		l.publisher = publisher
		if topic != "" {
			l.topic = topic
		}
	}
}

func WithMetrics(metrics interfaces.PostingMetrics) Option {
	return func(l *Ledger) {
		if metrics != nil {
			l.metrics = metrics
		}
	}
}

// WithMaxAttempts bounds how many times a unit of work is tried on transient conflicts.
func WithMaxAttempts(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

func WithRetryBackoff(base time.Duration) Option {
	return func(l *Ledger) { l.retryBase = base }
}

// WithPostingTimeout sets the deadline applied to postings whose context has none.
func WithPostingTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger creates a new Ledger on top of store
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:       store,
		metrics:     noopMetrics{},
		logger:      zap.NewNop(),
		tracer:      otel.Tracer(tracerName),
		topic:       events.TopicTransactionCompleted,
		maxAttempts: DefaultMaxAttempts,
		retryBase:   10 * time.Millisecond,
		timeout:     DefaultPostingTimeout,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}

	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Deposit funds toAccountID from the system cash-in account of currency.
func (l *Ledger) Deposit(ctx context.Context, toAccountID string, amountMinor int64, currency, idemKey string) (Result, error) {
	currency = strings.ToUpper(currency)

	return l.observe(ctx, models.KindDeposit, func(ctx context.Context) (Result, error) {
		system, err := l.store.FindSystemAccount(ctx, currency)
		if err != nil {
			return Result{}, fmt.Errorf("missing system cash-in account for %s: %w", currency, err)
		}
		if !system.IsSystem {
			return Result{}, fmt.Errorf("%w: cash-in account for %s is not marked as system", apperrors.ErrInternal, currency)
		}

		to, err := l.store.FindByID(ctx, toAccountID)
		if err != nil {
			return Result{}, err
		}

		if err := validatePosting(system, to, amountMinor, currency); err != nil {
			return Result{}, err
		}

		return l.post(ctx, idemKey, models.Posting{
			Kind:         models.KindDeposit,
			FromAccount:  system,
			ToAccount:    to,
			AmountMinor:  amountMinor,
			CurrencyCode: currency,
		})
	})
}

// Transfer moves amountMinor between two non-system accounts of the same currency.
func (l *Ledger) Transfer(ctx context.Context, fromAccountID, toAccountID string, amountMinor int64, currency, idemKey string) (Result, error) {
	currency = strings.ToUpper(currency)

	return l.observe(ctx, models.KindTransfer, func(ctx context.Context) (Result, error) {
		if fromAccountID == toAccountID {
			return Result{}, fmt.Errorf("%w: cannot transfer to the same account", apperrors.ErrInvalidRequest)
		}

		from, err := l.store.FindByID(ctx, fromAccountID)
		if err != nil {
			return Result{}, err
		}
		to, err := l.store.FindByID(ctx, toAccountID)
		if err != nil {
			return Result{}, err
		}

		if err := validatePosting(from, to, amountMinor, currency); err != nil {
			return Result{}, err
		}
		if from.IsSystem {
			return Result{}, fmt.Errorf("%w: system accounts cannot be used as the source for user transfers", apperrors.ErrInvalidRequest)
		}
		if to.IsSystem {
			return Result{}, fmt.Errorf("%w: system accounts cannot receive user transfers", apperrors.ErrInvalidRequest)
		}

		return l.post(ctx, idemKey, models.Posting{
			Kind:         models.KindTransfer,
			FromAccount:  from,
			ToAccount:    to,
			AmountMinor:  amountMinor,
			CurrencyCode: currency,
		})
	})
}

func validatePosting(from, to models.Account, amountMinor int64, currency string) error {
	if from.ID == to.ID {
		return fmt.Errorf("%w: cannot transfer to the same account", apperrors.ErrInvalidRequest)
	}
	if from.CurrencyCode != currency || to.CurrencyCode != currency {
		return fmt.Errorf("%w: currency mismatch", apperrors.ErrInvalidRequest)
	}
	if amountMinor <= 0 {
		return fmt.Errorf("%w: amount must be a positive integer (minor units)", apperrors.ErrInvalidRequest)
	}
	return nil
}

// post writes the debit leg then the credit leg under one transaction id.
func (l *Ledger) post(ctx context.Context, idemKey string, p models.Posting) (Result, error) {
	p.EffectiveAt = l.now()

	res, err := l.reserveAndRun(ctx, string(p.Kind), idemKey, func(ctx context.Context, tx interfaces.LedgerTx, txnID string) error {
		debit, credit := p.Legs(txnID)

		if _, err := tx.InsertEntry(ctx, debit); err != nil {
			return err
		}
		_, err := tx.InsertEntry(ctx, credit)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	if !res.Replayed {
		l.publishCompleted(ctx, res.TxnID, p)
	}
	return res, nil
}

func (l *Ledger) publishCompleted(ctx context.Context, txnID string, p models.Posting) {
	if l.publisher == nil {
		return
	}

	event := events.TransactionCompleted{
		TransactionID: txnID,
		Kind:          string(p.Kind),
		FromAccount:   p.FromAccount.ID,
		ToAccount:     p.ToAccount.ID,
		AmountMinor:   p.AmountMinor,
		Currency:      p.CurrencyCode,
		OccurredAt:    p.EffectiveAt,
	}

	// the posting is committed, so the event outlives the caller's deadline
	if err := l.publisher.Publish(context.WithoutCancel(ctx), l.topic, event); err != nil {
		l.metrics.IncPublishFailure()
		logging.FromContext(ctx, l.logger).Warn("failed to publish transaction completed event",
			zap.String("txn_id", txnID),
			zap.Error(err))
	}
}

// observe wraps an operation with its deadline, span, metrics and log line,
// and normalizes the error it returns to the ledger's taxonomy.
func (l *Ledger) observe(ctx context.Context, kind models.Kind, op func(ctx context.Context) (Result, error)) (Result, error) {
	ctx, span := l.tracer.Start(ctx, "ledger."+string(kind))
	defer span.End()

	if _, ok := ctx.Deadline(); !ok && l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := op(ctx)
	err = normalize(err)

	outcome := outcomeOf(res, err)
	l.metrics.ObservePosting(string(kind), outcome, time.Since(start).Seconds())
	if res.Replayed {
		l.metrics.IncReplay(string(kind))
	}

	logger := logging.FromContext(ctx, l.logger).With(
		zap.String("operation", string(kind)),
		zap.String("outcome", outcome))

	switch {
	case err == nil:
		span.SetAttributes(attribute.String("ledger.txn_id", res.TxnID), attribute.Bool("ledger.replayed", res.Replayed))
		logger.Info("posting resolved", zap.String("txn_id", res.TxnID), zap.Bool("replayed", res.Replayed))
	case errors.Is(err, apperrors.ErrInternal):
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("posting failed", zap.Error(err))
	default:
		span.SetStatus(codes.Error, outcome)
		logger.Info("posting rejected", zap.Error(err))
	}

	return res, err
}

// normalize maps store and context failures onto the ledger's error kinds.
// A conflict on a leg dedup key can only mean a broken txn id, so it is internal.
func normalize(err error) error {
	switch {
	case err == nil:
		return nil
	case apperrors.IsBusiness(err), errors.Is(err, apperrors.ErrInternal):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: posting aborted: %w", apperrors.ErrInternal, err)
	case errors.Is(err, apperrors.ErrConflict):
		return fmt.Errorf("%w: unexpected duplicate: %v", apperrors.ErrInternal, err)
	default:
		return fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
	}
}

func outcomeOf(res Result, err error) string {
	switch {
	case err == nil && res.Replayed:
		return "replayed"
	case err == nil:
		return "committed"
	case errors.Is(err, apperrors.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return "insufficient_funds"
	default:
		return "internal"
	}
}

// Balance returns the account and its materialized balance. An account
// without entries has a zero balance.
func (l *Ledger) Balance(ctx context.Context, accountID string) (models.Account, models.AccountBalance, error) {
	account, err := l.store.FindByID(ctx, accountID)
	if err != nil {
		return models.Account{}, models.AccountBalance{}, err
	}

	balance, err := l.store.GetBalance(ctx, accountID)
	if err != nil {
		return models.Account{}, models.AccountBalance{}, normalize(err)
	}
	return account, balance, nil
}

func (l *Ledger) EntriesByTxn(ctx context.Context, txnID string) ([]models.LedgerEntry, error) {
	entries, err := l.store.GetEntriesByTxn(ctx, txnID)
	if err != nil {
		return nil, normalize(err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: transaction %s", apperrors.ErrNotFound, txnID)
	}
	return entries, nil
}

func (l *Ledger) EntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	if _, err := l.store.FindByID(ctx, accountID); err != nil {
		return nil, err
	}

	entries, err := l.store.GetEntriesByAccount(ctx, accountID)
	if err != nil {
		return nil, normalize(err)
	}
	return entries, nil
}

type noopMetrics struct{}

func (noopMetrics) ObservePosting(string, string, float64) {}
func (noopMetrics) IncReplay(string)                       {}
func (noopMetrics) IncRetry()                              {}
func (noopMetrics) IncPublishFailure()                     {}
