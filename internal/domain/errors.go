package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Account errors
	ErrLocked            = errors.New("account is locked")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Transaction errors
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidAmount          = errors.New("amount must not be negative")
	ErrDuplicateTransaction   = errors.New("transaction id already recorded")
	ErrMalformedRecord        = errors.New("malformed input record")

	// Dispute errors. All of them are referential integrity violations.
	ErrReferentialIntegrity     = errors.New("referential integrity violation")
	ErrAccountNotFound          = fmt.Errorf("%w: account not found", ErrReferentialIntegrity)
	ErrTransactionNotFound      = fmt.Errorf("%w: transaction not found", ErrReferentialIntegrity)
	ErrClientMismatch           = fmt.Errorf("%w: transaction owned by another client", ErrReferentialIntegrity)
	ErrInvalidDisputeTransition = fmt.Errorf("%w: invalid dispute transition", ErrReferentialIntegrity)

	// ErrLedgerInvariant marks ledger corruption. It is the only error that aborts a batch.
	ErrLedgerInvariant = errors.New("ledger invariant violation")
)

// InsufficientFundsError carries the balance that was too small for the request.
type InsufficientFundsError struct {
	Balance decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInsufficientFunds, e.Balance.String())
}

// Is makes errors.Is(err, ErrInsufficientFunds) match.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// IsFatal reports whether err signals ledger corruption rather than bad input.
func IsFatal(err error) bool {
	return errors.Is(err, ErrLedgerInvariant)
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrLedgerInvariant, fmt.Sprintf(format, args...))
}
