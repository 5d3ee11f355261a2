package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sheikh-saqib/ledger-posting-engine/internal/apperrors"
)

const (
	codeCheckViolation       pq.ErrorCode = "23514"
	codeUniqueViolation      pq.ErrorCode = "23505"
	codeForeignKeyViolation  pq.ErrorCode = "23503"
	codeSerializationFailure pq.ErrorCode = "40001"
	codeDeadlockDetected     pq.ErrorCode = "40P01"

	// raised by fn_apply_ledger_to_balance
	constraintNonNegativeBalance = "account_balances_non_negative"
)

// classify maps driver errors onto the ledger error taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("%w: %v", apperrors.ErrInternal, err)
	}

	switch pqErr.Code {
	case codeCheckViolation:
		if pqErr.Constraint == constraintNonNegativeBalance {
			return fmt.Errorf("%w: %s", apperrors.ErrInsufficientFunds, pqErr.Message)
		}
		return fmt.Errorf("%w: check constraint %s violated: %s", apperrors.ErrInternal, pqErr.Constraint, pqErr.Message)
	case codeUniqueViolation:
		return fmt.Errorf("%w: %s", apperrors.ErrConflict, pqErr.Message)
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %s", apperrors.ErrTransient, pqErr.Message)
	default:
		return fmt.Errorf("%w: postgres %s: %s", apperrors.ErrInternal, pqErr.Code, pqErr.Message)
	}
}
