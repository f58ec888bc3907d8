package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidateAmount validates a deposit/withdrawal amount. Any non-negative amount is accepted.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, amount)
	}

	return nil
}

// Validate checks the fields a record of its type must carry.
func (t Transaction) Validate() error {
	if _, err := ParseTransactionType(string(t.Type)); err != nil {
		return err
	}
	if t.Type.HasAmount() {
		return ValidateAmount(t.Amount)
	}
	return nil
}
