package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TxID is a globally unique transaction identifier.
type TxID uint32

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeDispute    TransactionType = "dispute"
	TransactionTypeResolve    TransactionType = "resolve"
	TransactionTypeChargeback TransactionType = "chargeback"
)

// ParseTransactionType parses a type name, ignoring case and surrounding whitespace.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal,
		TransactionTypeDispute, TransactionTypeResolve, TransactionTypeChargeback:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, s)
	}
}

// HasAmount reports whether records of this type carry an amount.
func (t TransactionType) HasAmount() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeWithdrawal
}

// Transaction is one decoded input record.
// Amount is only meaningful for deposits and withdrawals.
type Transaction struct {
	Type   TransactionType
	Client ClientID
	TxID   TxID
	Amount decimal.Decimal
}

func NewDeposit(client ClientID, tx TxID, amount decimal.Decimal) Transaction {
	return Transaction{Type: TransactionTypeDeposit, Client: client, TxID: tx, Amount: amount}
}

func NewWithdrawal(client ClientID, tx TxID, amount decimal.Decimal) Transaction {
	return Transaction{Type: TransactionTypeWithdrawal, Client: client, TxID: tx, Amount: amount}
}

func NewDispute(client ClientID, tx TxID) Transaction {
	return Transaction{Type: TransactionTypeDispute, Client: client, TxID: tx}
}

func NewResolve(client ClientID, tx TxID) Transaction {
	return Transaction{Type: TransactionTypeResolve, Client: client, TxID: tx}
}

func NewChargeback(client ClientID, tx TxID) Transaction {
	return Transaction{Type: TransactionTypeChargeback, Client: client, TxID: tx}
}

func (t Transaction) String() string {
	if t.Type.HasAmount() {
		return fmt.Sprintf("%s(client=%d, tx=%d, amount=%s)", t.Type, t.Client, t.TxID, t.Amount)
	}
	return fmt.Sprintf("%s(client=%d, tx=%d)", t.Type, t.Client, t.TxID)
}
