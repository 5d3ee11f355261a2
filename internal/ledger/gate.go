package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/sheikh-saqib/ledger-posting-engine/internal/apperrors"
	interfaces "github.com/sheikh-saqib/ledger-posting-engine/internal/interfaces"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Result is the outcome of a posting. Replayed is set when the idempotency
// key was already bound to a committed transaction and nothing new was written.
type Result struct {
	TxnID    string
	Replayed bool
}

// producer writes the postings of a transaction inside the gate's unit of work.
type producer func(ctx context.Context, tx interfaces.LedgerTx, txnID string) error

// reserveAndRun is the idempotency gate. It binds key to a fresh transaction id
// and runs produce in the same unit of work, or returns the transaction id the
// key is already bound to without calling produce. An empty key is replaced by
// a generated one, which disables deduplication for the call.
func (l *Ledger) reserveAndRun(ctx context.Context, operation, key string, produce producer) (Result, error) {
	dedup := key != ""
	if !dedup {
		key = l.newID()
	}

	if dedup {
		if res, ok := l.cachedReplay(ctx, key); ok {
			return res, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt < l.maxAttempts; attempt++ {
		if attempt > 0 {
			l.metrics.IncRetry()
			if err := sleepWithContext(ctx, exponentialWithJitter(l.retryBase, attempt-1)); err != nil {
				return Result{}, err
			}
		}

		res, err := l.runOnce(ctx, attempt, key, produce)
		if err == nil {
			if dedup {
				l.remember(ctx, key, res.TxnID)
			}
			return res, nil
		}

		if !errors.Is(err, apperrors.ErrTransient) {
			return Result{}, err
		}

		lastErr = err
		logging.FromContext(ctx, l.logger).Warn("posting attempt hit a transient conflict",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", l.maxAttempts),
			zap.Error(err))
	}

	return Result{}, fmt.Errorf("%w: posting gave up after %d attempts: %v", apperrors.ErrInternal, l.maxAttempts, lastErr)
}

func (l *Ledger) runOnce(ctx context.Context, attempt int, key string, produce producer) (Result, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.idempotency_gate")
	defer span.End()
	span.SetAttributes(attribute.Int("ledger.attempt", attempt+1))

	candidate := l.newID()
	var res Result

	err := l.store.RunInTx(ctx, func(tx interfaces.LedgerTx) error {
		reserved, err := tx.ReserveIdempotencyKey(ctx, key, candidate)
		if err != nil {
			return err
		}

		if reserved {
			res = Result{TxnID: candidate}
			return produce(ctx, tx, candidate)
		}

		existing, err := tx.LookupIdempotencyKey(ctx, key)
		if errors.Is(err, apperrors.ErrTransient) {
			return err
		}
		if err != nil {
			return fmt.Errorf("%w: idempotency key vanished after conflict: %v", apperrors.ErrInternal, err)
		}
		res = Result{TxnID: existing, Replayed: true}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}

	span.SetAttributes(attribute.Bool("ledger.replayed", res.Replayed))
	return res, nil
}

func (l *Ledger) cachedReplay(ctx context.Context, key string) (Result, bool) {
	if l.cache == nil {
		return Result{}, false
	}

	txnID, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		logging.FromContext(ctx, l.logger).Warn("replay cache lookup failed", zap.Error(err))
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}
	return Result{TxnID: txnID, Replayed: true}, true
}

func (l *Ledger) remember(ctx context.Context, key, txnID string) {
	if l.cache == nil {
		return
	}

	if err := l.cache.Set(ctx, key, txnID); err != nil {
		logging.FromContext(ctx, l.logger).Warn("replay cache write failed", zap.Error(err))
	}
}
